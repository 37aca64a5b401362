// Package api provides the HTTP handlers and server composition for the
// WhatsApp coach service.
//
// It exposes the WhatsApp webhook, the registration and existence-check
// endpoints, and the operational routes (health, metrics).
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"whatscoach/internal/coach"
	"whatscoach/internal/directory"
	"whatscoach/internal/genai"
	"whatscoach/internal/messaging"
	"whatscoach/internal/observability"
	"whatscoach/internal/session"
	"whatscoach/internal/whatsapp"
)

// DefaultAddr is the default listen address for the API server.
const DefaultAddr = ":8080"

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the server listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// Server holds the handler dependencies for the HTTP API.
type Server struct {
	coach   *coach.Coach
	users   directory.Store
	sender  messaging.Sender
	metrics *observability.Metrics

	// messagingConfigured gates registration: a missing sending address
	// short-circuits with a configuration error before any external call.
	messagingConfigured bool
}

// NewServer creates an API server from its collaborators. Metrics may be nil.
func NewServer(c *coach.Coach, users directory.Store, sender messaging.Sender, metrics *observability.Metrics, messagingConfigured bool) *Server {
	return &Server{
		coach:               c,
		users:               users,
		sender:              sender,
		metrics:             metrics,
		messagingConfigured: messagingConfigured,
	}
}

// Router builds the HTTP route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/api/webhook/whatsapp", s.webhookStatusHandler)
	r.Post("/api/webhook/whatsapp", s.webhookHandler)
	r.Post("/api/auth/check-user", s.checkUserHandler)
	r.Post("/api/auth/register", s.registerHandler)

	r.Get("/healthz", s.healthHandler)
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, req)
	})

	return r
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":               "ok",
		"messaging_configured": s.messagingConfigured,
	})
}

// Run wires the service together from per-module options and serves the API.
// It blocks until the HTTP server exits.
func Run(dirOpts []directory.Option, genaiOpts []genai.Option, msgOpts []messaging.Option, waOpts []whatsapp.Option, apiOpts []Option) error {
	apiCfg := Opts{Addr: DefaultAddr}
	for _, opt := range apiOpts {
		opt(&apiCfg)
	}

	users, err := buildDirectory(dirOpts)
	if err != nil {
		return err
	}
	defer users.Close()

	genaiClient, err := genai.NewClient(genaiOpts...)
	if err != nil {
		return err
	}

	sender, messagingConfigured := buildSender(msgOpts, waOpts)

	metrics := observability.NewMetrics("whatscoach")
	sessions := session.NewInMemoryStore()
	c := coach.New(sessions, genaiClient, sender, metrics)

	server := NewServer(c, users, sender, metrics, messagingConfigured)
	slog.Info("API server listening", "addr", apiCfg.Addr)
	return http.ListenAndServe(apiCfg.Addr, server.Router())
}

// buildDirectory picks the directory backend from the configured DSN:
// Postgres for postgres DSNs, SQLite for file paths, in-memory when no DSN
// is given (development only; registrations are lost on restart).
func buildDirectory(dirOpts []directory.Option) (directory.Store, error) {
	var cfg directory.Opts
	for _, opt := range dirOpts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Warn("Run: no database DSN configured, using in-memory user directory")
		return directory.NewInMemoryStore(), nil
	}
	if directory.DetectDSNType(cfg.DSN) == "postgres" {
		slog.Debug("Run: detected PostgreSQL DSN for user directory")
		return directory.NewPostgresStore(dirOpts...)
	}
	slog.Debug("Run: detected SQLite DSN for user directory", "db_path", cfg.DSN)
	return directory.NewSQLiteStore(dirOpts...)
}

// buildSender picks the messaging transport: Twilio when configured, the
// native WhatsApp client when a device store DSN is set, otherwise a
// disabled sender that fails every delivery with a configuration error.
func buildSender(msgOpts []messaging.Option, waOpts []whatsapp.Option) (messaging.Sender, bool) {
	twilioSender, err := messaging.NewTwilioClient(msgOpts...)
	if err == nil {
		slog.Info("Run: using Twilio WhatsApp transport")
		return twilioSender, true
	}
	slog.Debug("Run: Twilio transport not configured", "error", err)

	var waCfg whatsapp.Opts
	for _, opt := range waOpts {
		opt(&waCfg)
	}
	if waCfg.DBDSN != "" {
		native, werr := whatsapp.NewClient(waOpts...)
		if werr == nil {
			slog.Info("Run: using native WhatsApp transport")
			return native, true
		}
		slog.Error("Run: native WhatsApp transport failed to start", "error", werr)
	}

	slog.Warn("Run: no messaging transport configured, outbound delivery disabled")
	return messaging.DisabledSender{}, false
}
