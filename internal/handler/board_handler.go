package handler

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"punkspace/internal/app/db"
	"punkspace/internal/pkg/auth/jwt"
	"punkspace/internal/pkg/errs"
	"punkspace/internal/pkg/logx"
	"punkspace/internal/pkg/req"
	"punkspace/internal/pkg/resp"
)

const (
	MaxPostTitleLength   = 200
	MaxPostContentLength = 10000
	MaxCommentLength     = 5000
)

// PostView is a board post with its visible comments.
type PostView struct {
	db.BoardPost
	Comments []db.BoardComment `json:"comments"`
}

// HandleListPosts returns the board, newest post first.
func HandleListPosts(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		posts, err := deps.DB.ListBoardPosts(r.Context())
		if err != nil {
			logx.Error(err, "failed to list board posts")
			resp.RespondError(w, r, errs.NewError(errs.ErrStoreUnavailable))
			return
		}

		resp.RespondSuccess(w, r, posts)
	}
}

type CreatePostInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// HandleCreatePost publishes a new board post for the caller.
func HandleCreatePost(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)

		var input CreatePostInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		title := strings.TrimSpace(input.Title)
		if title == "" || strings.TrimSpace(input.Content) == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrMessageContentEmpty))
			return
		}
		if len(title) > MaxPostTitleLength || len(input.Content) > MaxPostContentLength {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		id, err := deps.DB.CreateBoardPost(r.Context(), payload.ID, title, input.Content)
		if err != nil {
			logx.Error(err, "failed to create board post", "user_id", payload.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrStoreUnavailable))
			return
		}

		resp.RespondSuccess(w, r, map[string]int64{"id": id})
	}
}

// HandleGetPost returns a post and its comments, hiding comments by users the caller blocked.
func HandleGetPost(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, customErr := req.IDParam(r, "postID")
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		post, err := deps.DB.GetBoardPost(r.Context(), postID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrPostNotFound))
				return
			}
			logx.Error(err, "failed to load board post", "post_id", postID)
			resp.RespondError(w, r, errs.NewError(errs.ErrStoreUnavailable))
			return
		}

		comments, err := deps.DB.ListBoardComments(r.Context(), postID)
		if err != nil {
			logx.Error(err, "failed to load board comments", "post_id", postID)
			resp.RespondError(w, r, errs.NewError(errs.ErrStoreUnavailable))
			return
		}

		if payload := jwt.GetPayloadFromContext(r); payload != nil {
			viewer, err := deps.DB.GetUserByID(r.Context(), payload.ID)
			if err == nil {
				comments = withoutBlocked(comments, viewer.BlockedUsers)
			} else if !errors.Is(err, db.ErrNotFound) {
				logx.Warn("could not load viewer block list, showing all comments", "user_id", payload.ID)
			}
		}

		resp.RespondSuccess(w, r, PostView{BoardPost: *post, Comments: comments})
	}
}

func withoutBlocked(comments []db.BoardComment, blocked []int64) []db.BoardComment {
	if len(blocked) == 0 {
		return comments
	}

	visible := make([]db.BoardComment, 0, len(comments))
	for _, c := range comments {
		if !slices.Contains(blocked, c.UserID) {
			visible = append(visible, c)
		}
	}
	return visible
}

type CreateCommentInput struct {
	Content string `json:"content"`
}

// HandleCreateComment adds the caller's comment to a post.
func HandleCreateComment(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)

		postID, customErr := req.IDParam(r, "postID")
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var input CreateCommentInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if strings.TrimSpace(input.Content) == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrMessageContentEmpty))
			return
		}
		if len(input.Content) > MaxCommentLength {
			resp.RespondError(w, r, errs.NewError(errs.ErrMessageContentTooLong, MaxCommentLength))
			return
		}

		id, err := deps.DB.CreateBoardComment(r.Context(), postID, payload.ID, input.Content)
		if err != nil {
			if db.IsForeignKeyViolation(err) {
				resp.RespondError(w, r, errs.NewError(errs.ErrPostNotFound))
				return
			}
			logx.Error(err, "failed to create board comment", "post_id", postID)
			resp.RespondError(w, r, errs.NewError(errs.ErrStoreUnavailable))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"success": true, "id": id})
	}
}
