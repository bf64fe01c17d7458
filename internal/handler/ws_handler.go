package handler

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"

	"punkspace/internal/app/chat"
	"punkspace/internal/pkg/errs"
	"punkspace/internal/pkg/logx"
	"punkspace/internal/pkg/resp"
)

// HandleWebSocket authenticates the handshake, upgrades the connection and runs the client.
// The token may come from the session cookie, a bearer header or the "token" query parameter.
func HandleWebSocket(deps *AppDeps, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := deps.Auth.TokenFromRequest(r)
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		payload, err := deps.Auth.Resolve(r.Context(), token)
		if err != nil {
			logx.Info("WebSocket connection rejected: invalid token", "error", err.Error())
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		stillActive := func(ctx context.Context) bool {
			return deps.Auth.Active(ctx, token)
		}

		client := chat.NewClient(context.WithoutCancel(r.Context()), deps.Hub, deps.Ingestor, conn, payload.ID, payload.ExpiresAtTime(), stillActive)

		if err := deps.Hub.Register(client); err != nil {
			logx.Warn("WebSocket client could not be registered", "error", err.Error())
			_ = conn.Close()
			return
		}

		go client.WritePump()

		logx.Info("WebSocket connection established", "conn_id", client.ID(), "user_id", payload.ID)

		client.ReadPump()
	}
}
