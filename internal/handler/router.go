package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"punkspace/internal/pkg/auth/jwt"
	"punkspace/internal/pkg/errs"
	"punkspace/internal/pkg/limiter"
	"punkspace/internal/pkg/logx"
	"punkspace/internal/pkg/resp"
)

const (
	AuthRate     = 0.2
	AuthBurst    = 5
	ConnectRate  = 1
	ConnectBurst = 10
	UploadRate   = 0.2
	UploadBurst  = 5
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// The limiters' cleanup loops stop with ctx.
func Router(ctx context.Context, deps *AppDeps) http.Handler {
	authLimiter := limiter.NewIPRateLimiter(ctx, rate.Limit(AuthRate), AuthBurst)
	connectLimiter := limiter.NewIPRateLimiter(ctx, rate.Limit(ConnectRate), ConnectBurst)
	uploadLimiter := limiter.NewIPRateLimiter(ctx, rate.Limit(UploadRate), UploadBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if origin == "" || sameHost(origin, r.Host) {
				return true
			}
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-PoW-Token"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := deps.DB.Ping(ctx); err != nil {
			logx.Error(err, "Health check: database unreachable")
			resp.RespondError(w, r, errs.NewError(errs.ErrStoreUnavailable))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"status":  "ok",
			"service": "PunkSpace",
			"online":  deps.Hub.OnlineCount(),
		})
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(deps.Auth.IdentityExtractorMiddleware)

		api.Group(func(auth chi.Router) {
			auth.Use(authLimiter.Middleware)
			auth.Post("/register", HandleRegister(deps))
			auth.Post("/login", HandleLogin(deps))
			auth.Get("/pow/challenge", HandlePowChallenge(deps))
			auth.Post("/pow/verify", HandlePowVerify(deps))
		})
		api.Post("/logout", HandleLogout(deps))
		api.Get("/me", HandleMe(deps))

		api.Get("/users", HandleListUsers(deps))
		api.Get("/users/{username}", HandleGetProfile(deps))

		api.Get("/rooms", HandleListRooms(deps))
		api.Get("/rooms/{roomID}/messages", HandleRoomHistory(deps))

		api.Get("/board", HandleListPosts(deps))
		api.Get("/board/{postID}", HandleGetPost(deps))

		api.Get("/stats/online", HandleOnlineUsers(deps))
		api.Get("/stats/punk-of-the-day", HandlePunkOfTheDay(deps))

		api.Group(func(private chi.Router) {
			private.Use(jwt.RequireIdentity)

			private.Put("/profile", HandleUpdateProfile(deps))
			private.Post("/friends/top", HandleTopFriends(deps))
			private.Post("/users/block", HandleBlock(deps))

			private.Post("/board", HandleCreatePost(deps))
			private.Post("/board/{postID}/comments", HandleCreateComment(deps))

			private.With(uploadLimiter.Middleware).Post("/upload", HandleUpload(deps))
		})

		api.NotFound(func(w http.ResponseWriter, r *http.Request) {
			resp.RespondError(w, r, errs.NewError(errs.ErrNotFound))
		})
	})

	r.With(connectLimiter.Middleware).Get("/ws", HandleWebSocket(deps, wsUpgrader))

	if !deps.Config.UseS3() {
		uploads := http.StripPrefix(deps.Config.UploadURLPath+"/", http.FileServer(http.Dir(deps.Config.UploadDir)))
		r.Get(deps.Config.UploadURLPath+"/*", func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/") {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
			uploads.ServeHTTP(w, r)
		})
	}

	if deps.Config.StaticDir != "" {
		r.NotFound(spaHandler(deps.Config.StaticDir))
	}

	return r
}

// sameHost reports whether origin points at the host serving the request.
func sameHost(origin, host string) bool {
	_, rest, ok := strings.Cut(origin, "://")
	return ok && strings.EqualFold(rest, host)
}
