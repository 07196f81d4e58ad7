package web

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/carelane/voicedesk/pkg/redact"
	"github.com/carelane/voicedesk/pkg/store"
)

// twimlTemplate answers the carrier webhook by redirecting call media
// to the duplex websocket.
const twimlTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<Response>
    <Connect>
        <Stream url="wss://%s/ws/media" />
    </Connect>
</Response>`

// handleVoiceWebhook answers an incoming-call webhook with stream
// connection instructions.
func (s *Server) handleVoiceWebhook(c *fiber.Ctx) error {
	host := s.deps.Config.PublicHost
	if host == "" {
		host = c.Hostname()
	}

	s.logger.Info("incoming call webhook",
		"call_sid", c.FormValue("CallSid"),
		"from", redact.Phone(c.FormValue("From")),
	)

	c.Set(fiber.HeaderContentType, "application/xml")
	return c.SendString(fmt.Sprintf(twimlTemplate, host))
}

type healthResponse struct {
	Status      string `json:"status"`
	ActiveCalls int    `json:"active_calls"`
	Uptime      string `json:"uptime"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(healthResponse{
		Status:      "ok",
		ActiveCalls: s.deps.Sessions.Count(),
		Uptime:      time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// handleDebugState returns the redacted state snapshot for a call.
// Live calls are served from the registry, finished ones from the
// store until their TTL runs out.
func (s *Server) handleDebugState(c *fiber.Ctx) error {
	callID := c.Params("callID")

	if sess, ok := s.deps.Sessions.Lookup(callID); ok {
		return c.JSON(redact.State(sess.State()))
	}

	st, err := s.deps.Store.Get(c.Context(), callID)
	if errors.Is(err, store.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "unknown call")
	}
	if err != nil {
		s.logger.Error("debug state lookup failed", "call_id", callID, "error", err)
		return fiber.ErrInternalServerError
	}
	return c.JSON(redact.State(st))
}
