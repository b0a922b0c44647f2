package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"Panikkar/internal/config"
	"Panikkar/internal/http-server/handlers/errors"
	"Panikkar/internal/http-server/handlers/key"
	"Panikkar/internal/http-server/handlers/media"
	"Panikkar/internal/http-server/handlers/session"
	"Panikkar/internal/http-server/handlers/whatsapp"
	"Panikkar/internal/http-server/middleware/authenticate"
	"Panikkar/internal/lib/sl"
	"Panikkar/internal/ws"
)

const requestTimeout = 5 * time.Second

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	session.Core
	media.Core
	key.Core
}

// Routes holds the optional parts of the router. Nil fields are not mounted.
type Routes struct {
	Webhook  whatsapp.Webhook
	Hub      *ws.Hub
	Gatherer prometheus.Gatherer
}

// NewRouter mounts the public webhook, media and metrics endpoints next to
// the token protected /api/v1 group.
func NewRouter(log *slog.Logger, handler Handler, routes Routes) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	if routes.Webhook != nil {
		router.Route("/whatsapp/webhook", func(r chi.Router) {
			r.Get("/", whatsapp.WebhookVerify(log, routes.Webhook))
			r.Post("/", whatsapp.WebhookHandler(log, routes.Webhook))
		})
	}
	if routes.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(routes.Gatherer, promhttp.HandlerOpts{}))
	}
	if routes.Hub != nil {
		router.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
			ws.ServeWs(routes.Hub, handler, log, w, r)
		})
	}
	router.Get("/media/{file_id}", media.Download(log, handler))

	router.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(middleware.Timeout(requestTimeout))
		v1.Use(render.SetContentType(render.ContentTypeJSON))
		v1.Use(authenticate.New(log, handler))

		v1.Route("/sessions", func(r chi.Router) {
			r.Get("/idle", session.IdleSessions(log, handler))
			r.Get("/{phone}", session.GetSession(log, handler))
			r.Post("/{phone}/reset", session.ResetSession(log, handler))
			r.Get("/{phone}/media", session.SessionMedia(log, handler))
		})
		v1.Route("/key", func(r chi.Router) {
			r.Post("/new", key.Generate(log, handler))
		})
	})

	return router
}

// New serves the router until the listener fails.
func New(conf *config.Config, log *slog.Logger, router http.Handler) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:           router,
		ErrorLog:          httpLog,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIP, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}
