package handler

import (
	"errors"
	"net/http"

	"punkspace/internal/pkg/errs"
	"punkspace/internal/pkg/pow"
	"punkspace/internal/pkg/req"
	"punkspace/internal/pkg/resp"
)

// HandlePowChallenge hands out a registration challenge.
func HandlePowChallenge(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !deps.PoW.Enabled() {
			resp.RespondSuccess(w, r, map[string]any{"enabled": false})
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"enabled":    true,
			"nonce":      deps.PoW.GenerateNonce(),
			"difficulty": deps.PoW.Difficulty(),
		})
	}
}

type PowVerifyInput struct {
	Nonce   string `json:"nonce"`
	Counter string `json:"counter"`
}

// HandlePowVerify exchanges a solved challenge for a single-use proof token.
func HandlePowVerify(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input PowVerifyInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.Nonce == "" || input.Counter == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		token, err := deps.PoW.ValidateProof(input.Nonce, input.Counter)
		if err != nil {
			if errors.Is(err, pow.ErrNonceInvalid) || errors.Is(err, pow.ErrNonceAlreadyIssued) {
				resp.RespondError(w, r, errs.NewError(errs.ErrPowChallengeRequired))
				return
			}
			resp.RespondError(w, r, errs.NewError(errs.ErrPowChallengeInvalid))
			return
		}

		resp.RespondSuccess(w, r, map[string]string{"token": token})
	}
}
