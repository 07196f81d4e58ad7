// voicedesk: telephony voice-intake service.
// Answers carrier webhooks, bridges call audio over websockets, and
// walks callers through the intake conversation.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/carelane/voicedesk/internal/config"
	"github.com/carelane/voicedesk/internal/log"
	"github.com/carelane/voicedesk/internal/metrics"
	"github.com/carelane/voicedesk/pkg/address"
	"github.com/carelane/voicedesk/pkg/classify"
	"github.com/carelane/voicedesk/pkg/dialog"
	"github.com/carelane/voicedesk/pkg/directory"
	"github.com/carelane/voicedesk/pkg/notify"
	"github.com/carelane/voicedesk/pkg/pipeline"
	"github.com/carelane/voicedesk/pkg/session"
	"github.com/carelane/voicedesk/pkg/store"
	"github.com/carelane/voicedesk/pkg/stt"
	"github.com/carelane/voicedesk/pkg/tts"
	"github.com/carelane/voicedesk/pkg/web"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("configuration invalid", "error", err)
		os.Exit(1)
	}
	log.Init(cfg.LogLevel)
	logger := log.L()

	m := metrics.New()

	st, err := buildStore(cfg)
	if err != nil {
		logger.Error("state store init failed", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	sessions := session.NewManager(session.ManagerConfig{
		Store:       st,
		Logger:      logger,
		Metrics:     m,
		IdleTimeout: cfg.IdleTimeout,
	})

	synth, err := tts.NewElevenLabs(
		tts.WithAPIKey(cfg.SynthesisKey),
		tts.WithVoice(cfg.SynthesisVoiceID),
		tts.WithOutputFormat(tts.EncodingULaw),
		tts.WithLogger(logger),
	)
	if err != nil {
		logger.Error("synthesis init failed", "error", err)
		os.Exit(1)
	}
	defer synth.Close()

	newRecognizer := func() (stt.Recognizer, error) {
		return stt.NewDeepgram(
			stt.WithAPIKey(cfg.RecognitionKey),
			stt.WithBaseURL(cfg.RecognitionEndpoint),
			stt.WithModel(cfg.RecognitionModel),
			stt.WithEncoding(cfg.Encoding, cfg.SampleRate),
			stt.WithEndpointing(cfg.EndpointingMs),
			stt.WithLogger(logger),
		)
	}

	server, err := web.NewServer(web.Deps{
		Config:        cfg,
		Logger:        logger,
		Metrics:       m,
		Sessions:      sessions,
		Store:         st,
		NewRecognizer: newRecognizer,
		Synthesizer:   synth,
		Notifier:      buildNotifier(cfg),
		Chooser:       buildChooser(cfg),
		Verifier:      buildVerifier(cfg),
		Providers:     directory.NewStatic(),
	})
	if err != nil {
		logger.Error("server init failed", "error", err)
		os.Exit(1)
	}

	ops := web.NewOpsServer(cfg.MetricsAddr, logger)
	go func() {
		if err := ops.Start(); err != nil {
			logger.Error("metrics listener failed", "error", err)
		}
	}()
	go func() {
		if err := server.Listen(); err != nil {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down", "drain_timeout", cfg.DrainTimeout)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DrainTimeout)
	defer cancel()

	if err := server.Shutdown(); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	sessions.Close()
	if err := ops.Shutdown(ctx); err != nil {
		logger.Error("metrics shutdown failed", "error", err)
	}
	logger.Info("goodbye")
}

func buildStore(cfg *config.Config) (store.Store, error) {
	if cfg.RedisURL == "" {
		return store.NewMemory(cfg.StateTTL), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DrainTimeout)
	defer cancel()
	return store.NewRedis(ctx, store.RedisConfig{
		Addr: cfg.RedisURL,
		TTL:  cfg.StateTTL,
	})
}

func buildNotifier(cfg *config.Config) pipeline.Notifier {
	if cfg.NotifyEndpoint == "" {
		return nil
	}
	n, err := notify.New(notify.Config{
		Endpoint: cfg.NotifyEndpoint,
		APIKey:   cfg.NotifyKey,
		Logger:   log.L(),
	})
	if err != nil {
		log.Warn("notifier disabled", "error", err)
		return nil
	}
	return n
}

func buildChooser(cfg *config.Config) dialog.Chooser {
	if cfg.ClassifyEndpoint == "" {
		return nil
	}
	c, err := classify.New(classify.Config{
		Endpoint: cfg.ClassifyEndpoint,
		APIKey:   cfg.ClassifyKey,
		Timeout:  cfg.ClassifyBudget,
		Logger:   log.L(),
	})
	if err != nil {
		log.Warn("classification disabled", "error", err)
		return nil
	}
	return c
}

func buildVerifier(cfg *config.Config) dialog.AddressVerifier {
	if cfg.AddressEndpoint == "" {
		return address.Noop{}
	}
	v, err := address.New(address.Config{
		Endpoint: cfg.AddressEndpoint,
		APIKey:   cfg.AddressKey,
		Logger:   log.L(),
	})
	if err != nil {
		log.Warn("address verification disabled", "error", err)
		return address.Noop{}
	}
	return v
}
