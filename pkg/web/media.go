package web

import (
	"context"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/carelane/voicedesk/pkg/dialog"
	"github.com/carelane/voicedesk/pkg/pipeline"
	"github.com/carelane/voicedesk/pkg/telephony"
)

// startTimeout bounds the wait for the carrier's start envelope after
// the websocket opens.
const startTimeout = 10 * time.Second

// mediaTransport hands the pipeline a relayed event channel while
// keeping the bridge's write path.
type mediaTransport struct {
	*telephony.Bridge
	relay <-chan telephony.Event
}

func (t *mediaTransport) Events() <-chan telephony.Event {
	return t.relay
}

// handleMedia runs one call: it owns the websocket from upgrade to
// hangup.
func (s *Server) handleMedia(c *websocket.Conn) {
	bridge := telephony.NewBridge(c,
		telephony.WithWriteTimeout(s.deps.Config.WriteTimeout),
		telephony.WithBridgeLogger(s.logger),
	)
	defer bridge.Close()
	go bridge.ReadLoop()

	start, ok := s.awaitStart(bridge.Events())
	if !ok {
		s.logger.Warn("media stream ended before start envelope")
		return
	}
	callID := start.Start.CallSID
	if callID == "" {
		callID = uuid.New().String()
	}
	logger := s.logger.With("call_id", callID)

	sess, err := s.deps.Sessions.Create(context.Background(), callID)
	if err != nil {
		logger.Error("session create failed", "error", err)
		return
	}

	rec, err := s.deps.NewRecognizer()
	if err != nil {
		logger.Error("recognizer create failed", "error", err)
		s.deps.Sessions.Teardown(callID, "error")
		return
	}

	// Re-emit the consumed start envelope ahead of the live stream.
	relay := make(chan telephony.Event, 1)
	go func() {
		defer close(relay)
		relay <- start
		for ev := range bridge.Events() {
			relay <- ev
		}
	}()

	p, err := pipeline.New(pipeline.Options{
		Transport:    &mediaTransport{Bridge: bridge, relay: relay},
		Recognizer:   rec,
		Synthesizer:  s.deps.Synthesizer,
		Orchestrator: s.orch,
		State:        sess.State(),
		Notifier:     s.deps.Notifier,
		Metrics:      s.deps.Metrics,
		Logger:       s.logger,
		OnTurn: func(st *dialog.State) {
			sess.Touch()
			pctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := sess.Persist(pctx); err != nil {
				logger.Warn("snapshot persist failed", "error", err)
			}
		},
	})
	if err != nil {
		logger.Error("pipeline assembly failed", "error", err)
		s.deps.Sessions.Teardown(callID, "error")
		return
	}

	runErr := p.Run(sess.Context())

	reason := "dropped"
	switch {
	case runErr != nil && sess.Context().Err() == nil:
		logger.Error("call pipeline failed", "error", runErr)
		if s.deps.Metrics != nil {
			s.deps.Metrics.WebsocketErrors.Inc()
		}
		reason = "error"
	case sess.State().Phase.Terminal():
		reason = "completed"
	}
	s.deps.Sessions.Teardown(callID, reason)
}

// awaitStart consumes events until the start envelope arrives.
func (s *Server) awaitStart(events <-chan telephony.Event) (telephony.Event, bool) {
	timer := time.NewTimer(startTimeout)
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return telephony.Event{}, false
			}
			switch ev.Kind {
			case telephony.EventStart:
				return ev, true
			case telephony.EventStop:
				return telephony.Event{}, false
			}
			// connected and early media are fine to skip; the
			// recognizer only starts once the call is registered.
		case <-timer.C:
			return telephony.Event{}, false
		}
	}
}
