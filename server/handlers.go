package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/s0up4200/sonarr-hunter/config"
)

// settingsRequest is the body of POST /api/settings
type settingsRequest struct {
	URL    string `json:"url"`
	APIKey string `json:"api_key"`
}

// settingsResponse never carries the API key itself
type settingsResponse struct {
	URL       string `json:"url"`
	APIKeySet bool   `json:"api_key_set"`
}

// streamMessage wraps every event sent on the status stream
type streamMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "healthy"})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.status.Snapshot())
}

func (s *Server) handleGetSettings(c *fiber.Ctx) error {
	current := s.settings.Settings()
	return c.JSON(settingsResponse{
		URL:       current.URL,
		APIKeySet: current.APIKey != "",
	})
}

func (s *Server) handleUpdateSettings(c *fiber.Ctx) error {
	var req settingsRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	settings := config.Settings{
		URL:    strings.TrimRight(strings.TrimSpace(req.URL), "/"),
		APIKey: strings.TrimSpace(req.APIKey),
	}
	if err := settings.Validate(); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := s.settings.UpdateSettings(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	return c.JSON(fiber.Map{
		"status":   "ok",
		"settings": settingsResponse{URL: settings.URL, APIKeySet: true},
	})
}

// handleStatusStream handles GET /api/status/stream. The first event carries
// the full snapshot; every later event carries one recorded change.
func (s *Server) handleStatusStream(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")
	c.Set("X-Accel-Buffering", "no")

	keepAlive := s.cfg.KeepAlive
	done := s.done
	logger := s.logger

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		subID, snapshot, updates := s.status.Subscribe()
		defer s.status.Unsubscribe(subID)

		logger.Debug().Str("subscriber_id", subID).Msg("Status stream opened")
		defer logger.Debug().Str("subscriber_id", subID).Msg("Status stream closed")

		if err := writeEvent(w, "initial", snapshot); err != nil {
			return
		}

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		for {
			select {
			case event, ok := <-updates:
				if !ok {
					return
				}
				if err := writeEvent(w, "update", event); err != nil {
					return
				}

			case <-ticker.C:
				fmt.Fprint(w, ": keep-alive\n\n")
				if err := w.Flush(); err != nil {
					return
				}

			case <-done:
				return
			}
		}
	})

	return nil
}

func writeEvent(w *bufio.Writer, kind string, data any) error {
	payload, err := json.Marshal(streamMessage{Type: kind, Data: data})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", kind, payload)
	return w.Flush()
}
