// Package web is the HTTP surface of voicedesk: the carrier webhook
// that answers a call, the media websocket that carries it, and the
// health and debug endpoints operators use.
package web

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/carelane/voicedesk/internal/config"
	"github.com/carelane/voicedesk/internal/metrics"
	"github.com/carelane/voicedesk/pkg/dialog"
	"github.com/carelane/voicedesk/pkg/pipeline"
	"github.com/carelane/voicedesk/pkg/session"
	"github.com/carelane/voicedesk/pkg/store"
	"github.com/carelane/voicedesk/pkg/stt"
	"github.com/carelane/voicedesk/pkg/tts"
)

// Deps are the collaborators the server wires into each call.
type Deps struct {
	Config   *config.Config
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Sessions *session.Manager
	Store    store.Store

	// NewRecognizer builds the streaming recognizer for one call.
	NewRecognizer func() (stt.Recognizer, error)

	// Synthesizer is shared across calls; each utterance opens its own
	// connection.
	Synthesizer tts.Provider

	// Optional collaborators.
	Notifier  pipeline.Notifier
	Chooser   dialog.Chooser
	Verifier  dialog.AddressVerifier
	Providers dialog.ProviderSource
}

// Server hosts the webhook, media and operational endpoints.
type Server struct {
	app       *fiber.App
	deps      Deps
	logger    *slog.Logger
	orch      *dialog.Orchestrator
	startedAt time.Time
}

// NewServer builds the fiber application and its routes.
func NewServer(deps Deps) (*Server, error) {
	if deps.Config == nil || deps.Sessions == nil || deps.Store == nil {
		return nil, fmt.Errorf("web: config, sessions and store are required")
	}
	if deps.NewRecognizer == nil || deps.Synthesizer == nil {
		return nil, fmt.Errorf("web: recognizer factory and synthesizer are required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	s := &Server{
		deps:      deps,
		logger:    deps.Logger.With("component", "web"),
		startedAt: time.Now(),
	}

	s.orch = dialog.NewOrchestrator(dialog.Options{
		Chooser:    deps.Chooser,
		Verifier:   deps.Verifier,
		Providers:  deps.Providers,
		Production: deps.Config.Production(),
		TestEmail:  deps.Config.TestEmail,
		Logger:     deps.Logger,
		OnTransition: func(p dialog.Phase) {
			if deps.Metrics != nil {
				deps.Metrics.PhaseTransitions.WithLabelValues(p.String()).Inc()
			}
		},
		OnRetryExhausted: func(p dialog.Phase) {
			if deps.Metrics != nil {
				deps.Metrics.RetryExhaustions.WithLabelValues(p.String()).Inc()
			}
		},
	})

	app := fiber.New(fiber.Config{
		AppName:               "voicedesk",
		DisableStartupMessage: true,
	})

	app.Post("/voice", s.handleVoiceWebhook)
	app.Get("/healthz", s.handleHealth)
	app.Get("/debug/state/:callID", s.handleDebugState)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/media", websocket.New(s.handleMedia))

	s.app = app
	return s, nil
}

// Listen serves on the configured address until Shutdown.
func (s *Server) Listen() error {
	s.logger.Info("listening", "addr", s.deps.Config.ListenAddr)
	return s.app.Listen(s.deps.Config.ListenAddr)
}

// Shutdown stops accepting connections and waits for handlers.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the fiber application for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
