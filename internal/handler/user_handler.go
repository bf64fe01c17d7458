package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"punkspace/internal/app/db"
	"punkspace/internal/app/user"
	"punkspace/internal/pkg/auth/jwt"
	"punkspace/internal/pkg/errs"
	"punkspace/internal/pkg/logx"
	"punkspace/internal/pkg/req"
	"punkspace/internal/pkg/resp"
)

// ProfileView is a user's public page. It never carries the block list.
type ProfileView struct {
	ID             int64            `json:"id"`
	Username       string           `json:"username"`
	AvatarURL      string           `json:"avatar_url"`
	Bio            string           `json:"bio"`
	ProfileCSS     string           `json:"profile_css"`
	ProfileHTML    string           `json:"profile_html"`
	MediaURL       string           `json:"media_url"`
	TopFriends     []int64          `json:"top_friends"`
	TopFriendsData []db.UserSummary `json:"top_friends_data"`
	CreatedAt      time.Time        `json:"created_at"`
}

// HandleListUsers returns the public user directory.
func HandleListUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := deps.DB.ListUsers(r.Context(), db.DefaultUserListLimit)
		if err != nil {
			logx.Error(err, "failed to list users")
			resp.RespondError(w, r, errs.NewError(errs.ErrStoreUnavailable))
			return
		}

		resp.RespondSuccess(w, r, users)
	}
}

// HandleGetProfile returns a profile with its top friends resolved in their stored order.
func HandleGetProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := chi.URLParam(r, "username")

		u, err := deps.DB.GetUserByUsername(r.Context(), username)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
				return
			}
			logx.Error(err, "failed to load profile", "username", username)
			resp.RespondError(w, r, errs.NewError(errs.ErrStoreUnavailable))
			return
		}

		friends, err := deps.DB.ListUserSummaries(r.Context(), u.TopFriends)
		if err != nil {
			logx.Error(err, "failed to resolve top friends", "user_id", u.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrStoreUnavailable))
			return
		}

		resp.RespondSuccess(w, r, ProfileView{
			ID:             u.ID,
			Username:       u.Username,
			AvatarURL:      u.AvatarURL,
			Bio:            u.Bio,
			ProfileCSS:     u.ProfileCSS,
			ProfileHTML:    u.ProfileHTML,
			MediaURL:       u.MediaURL,
			TopFriends:     u.TopFriends,
			TopFriendsData: inOrder(u.TopFriends, friends),
			CreatedAt:      u.CreatedAt,
		})
	}
}

// inOrder arranges summaries to follow ids, dropping ids that no longer resolve.
func inOrder(ids []int64, summaries []db.UserSummary) []db.UserSummary {
	byID := make(map[int64]db.UserSummary, len(summaries))
	for _, s := range summaries {
		byID[s.ID] = s
	}

	out := make([]db.UserSummary, 0, len(ids))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

// HandleUpdateProfile overwrites the caller's editable profile fields.
func HandleUpdateProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)

		var input user.Profile
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := input.Validate(); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		updated, err := deps.DB.UpdateProfile(r.Context(), payload.ID, db.ProfileUpdate{
			AvatarURL:   input.AvatarURL,
			Bio:         input.Bio,
			ProfileCSS:  input.ProfileCSS,
			ProfileHTML: input.ProfileHTML,
			MediaURL:    input.MediaURL,
		})
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
				return
			}
			logx.Error(err, "failed to update profile", "user_id", payload.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrStoreUnavailable))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"success": true, "user": updated})
	}
}

type TopFriendInput struct {
	FriendID int64  `json:"friendId"`
	Action   string `json:"action"`
}

// HandleTopFriends adds or removes one entry of the caller's top-friend list.
func HandleTopFriends(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)

		var input TopFriendInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var mutate db.IDListMutator
		switch input.Action {
		case "add":
			if customErr := checkTarget(r, deps, payload.ID, input.FriendID); customErr != nil {
				resp.RespondError(w, r, customErr)
				return
			}
			mutate = func(current []int64) ([]int64, error) {
				return user.AddTopFriend(current, input.FriendID), nil
			}
		case "remove":
			mutate = func(current []int64) ([]int64, error) {
				return user.RemoveTopFriend(current, input.FriendID), nil
			}
		default:
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		friends, err := deps.DB.UpdateTopFriends(r.Context(), payload.ID, mutate)
		if err != nil {
			respondListUpdateError(w, r, err, payload.ID)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"success": true, "friends": friends})
	}
}

type BlockInput struct {
	UserID int64  `json:"userId"`
	Action string `json:"action"`
}

// HandleBlock adds or removes a user from the caller's block list.
func HandleBlock(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)

		var input BlockInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var mutate db.IDListMutator
		switch input.Action {
		case "block":
			if customErr := checkTarget(r, deps, payload.ID, input.UserID); customErr != nil {
				resp.RespondError(w, r, customErr)
				return
			}
			mutate = func(current []int64) ([]int64, error) {
				return user.Block(current, input.UserID), nil
			}
		case "unblock":
			mutate = func(current []int64) ([]int64, error) {
				return user.Unblock(current, input.UserID), nil
			}
		default:
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		blocked, err := deps.DB.UpdateBlockedUsers(r.Context(), payload.ID, mutate)
		if err != nil {
			respondListUpdateError(w, r, err, payload.ID)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"success": true, "blocked_users": blocked})
	}
}

// checkTarget rejects self-targeting and ids that do not name an existing user.
func checkTarget(r *http.Request, deps *AppDeps, self, target int64) *errs.CustomError {
	if target <= 0 {
		return errs.NewError(errs.ErrInvalidParams)
	}
	if target == self {
		return errs.NewError(errs.ErrCannotTargetSelf)
	}

	if _, err := deps.DB.GetUserSummary(r.Context(), target); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return errs.NewError(errs.ErrUserNotFound)
		}
		logx.Error(err, "failed to resolve target user", "target_id", target)
		return errs.NewError(errs.ErrStoreUnavailable)
	}
	return nil
}

func respondListUpdateError(w http.ResponseWriter, r *http.Request, err error, userID int64) {
	if errors.Is(err, db.ErrNotFound) {
		resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
		return
	}
	logx.Error(err, "failed to update id list", "user_id", userID)
	resp.RespondError(w, r, errs.NewError(errs.ErrStoreUnavailable))
}
