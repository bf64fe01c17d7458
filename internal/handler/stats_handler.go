package handler

import (
	"net/http"

	"punkspace/internal/app/user"
	"punkspace/internal/pkg/errs"
	"punkspace/internal/pkg/logx"
	"punkspace/internal/pkg/resp"
)

// FeaturedView is the punk of the day card.
type FeaturedView struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
	Bio       string `json:"bio"`
}

// HandleOnlineUsers lists the distinct users with a live authenticated connection.
func HandleOnlineUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := deps.DB.ListUserSummaries(r.Context(), deps.Hub.OnlineUserIDs())
		if err != nil {
			logx.Error(err, "failed to resolve online users")
			resp.RespondError(w, r, errs.NewError(errs.ErrStoreUnavailable))
			return
		}

		resp.RespondSuccess(w, r, users)
	}
}

// HandlePunkOfTheDay returns the featured user for today's UTC date, or null without users.
func HandlePunkOfTheDay(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := deps.DB.ListAllUsers(r.Context())
		if err != nil {
			logx.Error(err, "failed to list users for featured pick")
			resp.RespondError(w, r, errs.NewError(errs.ErrStoreUnavailable))
			return
		}

		idx := user.FeaturedIndex(deps.now(), len(users))
		if idx < 0 {
			resp.RespondSuccess(w, r, nil)
			return
		}

		u := users[idx]
		resp.RespondSuccess(w, r, FeaturedView{
			ID:        u.ID,
			Username:  u.Username,
			AvatarURL: u.AvatarURL,
			Bio:       u.Bio,
		})
	}
}
