/*
Package handler provides the HTTP handlers and routing of the PunkSpace server.
*/
package handler

import (
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"punkspace/internal/app/db"
	"punkspace/internal/app/user"
	"punkspace/internal/pkg/auth/jwt"
	"punkspace/internal/pkg/errs"
	"punkspace/internal/pkg/logx"
	"punkspace/internal/pkg/req"
	"punkspace/internal/pkg/resp"
)

type CredentialsInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleRegister creates an account and starts a session for it.
func HandleRegister(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if payload := jwt.GetPayloadFromContext(r); payload != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrAlreadyLoggedIn))
			return
		}

		if !deps.PoW.ConsumeProofToken(r) {
			resp.RespondError(w, r, errs.NewError(errs.ErrPowChallengeRequired))
			return
		}

		var input CredentialsInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := user.ValidateCredentials(input.Username, input.Password); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
			return
		}

		created, err := deps.DB.CreateUser(r.Context(), input.Username, string(hashedPassword))
		if err != nil {
			if db.IsUniqueViolation(err) {
				logx.Warn("registration conflict: username already exists", "username", input.Username)
				resp.RespondError(w, r, errs.NewError(errs.ErrUserAlreadyExists))
				return
			}

			logx.Error(err, "failed to create user in database")
			resp.RespondError(w, r, errs.NewError(errs.ErrStoreUnavailable))
			return
		}

		logx.Info("user registered", "user_id", created.ID)
		startSession(w, r, deps, created)
	}
}

// HandleLogin verifies user credentials and issues a session token.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if identity := jwt.GetPayloadFromContext(r); identity != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrAlreadyLoggedIn))
			return
		}

		var input CredentialsInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		found, err := deps.DB.GetUserByUsername(r.Context(), input.Username)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
				return
			}
			logx.Error(err, "login: failed to load user")
			resp.RespondError(w, r, errs.NewError(errs.ErrStoreUnavailable))
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(found.PasswordHash), []byte(input.Password)); err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		startSession(w, r, deps, found)
	}
}

// HandleLogout revokes the caller's token and clears the session cookie.
func HandleLogout(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if payload := jwt.GetPayloadFromContext(r); payload != nil {
			token := jwt.GetRawTokenFromContext(r)
			if err := deps.Revoker.Revoke(r.Context(), token, payload.ExpiresAtTime()); err != nil {
				logx.Error(err, "logout: failed to revoke token", "user_id", payload.ID)
			}
		}

		jwt.ClearSessionCookie(w, deps.Config.CookieName, deps.Config.CookieSecure)
		resp.RespondSuccess(w, r, map[string]bool{"success": true})
	}
}

// HandleMe returns the caller's own account, or null when anonymous.
func HandleMe(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondSuccess(w, r, nil)
			return
		}

		me, err := deps.DB.GetUserByID(r.Context(), payload.ID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				jwt.ClearSessionCookie(w, deps.Config.CookieName, deps.Config.CookieSecure)
				resp.RespondSuccess(w, r, nil)
				return
			}
			logx.Error(err, "me: failed to load user", "user_id", payload.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrStoreUnavailable))
			return
		}

		resp.RespondSuccess(w, r, me)
	}
}

func startSession(w http.ResponseWriter, r *http.Request, deps *AppDeps, u *db.User) {
	payload := &jwt.Payload{
		ID:       u.ID,
		Username: u.Username,
	}

	tokenString, err := jwt.GenerateToken(payload, deps.Config.JWTSecret, jwt.SessionExpiration)
	if err != nil {
		logx.Error(err, "failed to generate session token", "user_id", u.ID)
		resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
		return
	}

	jwt.SetSessionCookie(w, deps.Config.CookieName, tokenString, deps.Config.CookieSecure, jwt.SessionExpiration)

	resp.RespondSuccess(w, r, map[string]any{
		"token": tokenString,
		"user":  u,
	})
}
