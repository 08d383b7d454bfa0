package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/DoyleJ11/keyrace/internal/hub"
	"github.com/DoyleJ11/keyrace/internal/ws"
)

type Options struct {
	// AllowedOrigins are host patterns such as "localhost:*". They gate both
	// CORS and the websocket origin check. Empty allows any origin for REST
	// and same-origin only for websockets.
	AllowedOrigins []string
	Logger         *zap.Logger
	WS             ws.Options
}

func SetupRoutes(h *hub.Hub, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	opts.WS.OriginPatterns = opts.AllowedOrigins
	if opts.WS.Logger == nil {
		opts.WS.Logger = opts.Logger
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(corsHandler(opts.AllowedOrigins).Handler)

	// Public routes
	r.Post("/rooms", CreateRoom(h, opts.Logger))
	r.Get("/rooms", ListRooms(h))
	r.Get("/rooms/{code}", GetRoom(h))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, opts.WS))
	return r
}

func corsHandler(patterns []string) *cors.Cors {
	c := cors.Options{
		AllowedMethods: []string{http.MethodHead, http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"*"},
	}
	if len(patterns) == 0 {
		c.AllowedOrigins = []string{"*"}
	} else {
		c.AllowOriginFunc = func(origin string) bool { return originAllowed(patterns, origin) }
	}
	return cors.New(c)
}
