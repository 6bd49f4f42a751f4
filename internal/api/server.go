// Package api exposes campaigns, leads and settings over HTTP and pushes
// progress events over a websocket.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/campaign"
	"github.com/sells-group/prospect-cli/internal/metrics"
	"github.com/sells-group/prospect-cli/internal/settings"
	"github.com/sells-group/prospect-cli/internal/store"
)

// Deps are the services behind the API.
type Deps struct {
	Campaigns      *campaign.Service
	Store          store.Store
	Settings       *settings.Manager
	Hub            *Hub
	Metrics        *metrics.Metrics
	AllowedOrigins []string
}

type handler struct {
	Deps
}

// NewRouter builds the HTTP handler.
func NewRouter(d Deps) http.Handler {
	h := &handler{Deps: d}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.health)
	if d.Hub != nil {
		r.Handle("/ws", d.Hub)
	}
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", h.listCampaigns)
			r.Post("/", h.createCampaign)
			r.Get("/{id}", h.getCampaign)
			r.Get("/{id}/leads", h.listLeads)
			r.Get("/{id}/export", h.exportLeads)
		})
		r.Route("/leads/{id}", func(r chi.Router) {
			r.Get("/", h.getLead)
			r.Put("/email", h.updateLeadEmail)
			r.Post("/send", h.sendLead)
		})
		r.Route("/settings", func(r chi.Router) {
			r.Get("/", h.getSettings)
			r.Put("/", h.updateSettings)
			r.Post("/reset", h.resetSettings)
			r.Post("/test-email", h.testEmail)
			r.Post("/verify-email", h.verifyEmail)
		})
		r.Get("/probe/text", h.probeText)
		r.Get("/probe/image", h.probeImage)
		r.Get("/status", h.status)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
