package web

import (
	"encoding/base64"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/jarv1s/jarv1s/internal/config"
	"github.com/jarv1s/jarv1s/internal/log"
)

type interactResponse struct {
	Transcription  string             `json:"transcription"`
	Response       string             `json:"response"`
	AudioBase64    string             `json:"audio_base64"`
	SampleRate     int                `json:"sample_rate,omitempty"`
	Fallback       string             `json:"fallback,omitempty"`
	ProcessingTime map[string]float64 `json:"processing_time"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleRoot reports service identity.
func (s *Server) handleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"name":        config.AppName,
		"version":     config.AppVersion,
		"description": config.AppDescription,
		"status":      "online",
	})
}

// handleHealth reports aggregate and per-service availability.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(s.reporter.Report(c.UserContext()))
}

// handleInteract accepts a multipart audio upload and answers with the
// spoken reply. A missing or unreadable upload is the caller's mistake
// and gets a 400; everything past that point resolves to 200, serving a
// fallback when the pipeline degrades.
func (s *Server) handleInteract(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("audio_file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{
			Error: "missing audio_file upload",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{
			Error: "unreadable audio_file upload",
		})
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{
			Error: "unreadable audio_file upload",
		})
	}

	result, err := s.orch.HandleInteraction(c.UserContext(), audio)
	if err != nil {
		// Not reachable through any pipeline failure; kept so a
		// programming error still answers instead of panicking.
		log.Error("interaction error", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{
			Error: "internal error",
		})
	}

	resp := interactResponse{
		Transcription:  result.Transcription,
		Response:       result.Text,
		SampleRate:     result.SampleRate,
		Fallback:       string(result.Fallback),
		ProcessingTime: result.Timings,
	}
	if len(result.Audio) > 0 {
		resp.AudioBase64 = base64.StdEncoding.EncodeToString(result.Audio)
	}

	return c.JSON(resp)
}

// handleReset clears the conversation history.
func (s *Server) handleReset(c *fiber.Ctx) error {
	s.orch.Reset()
	return c.JSON(fiber.Map{
		"status":  "ok",
		"message": "conversation reset",
	})
}

// handleConversationInfo reports the conversation state.
func (s *Server) handleConversationInfo(c *fiber.Ctx) error {
	return c.JSON(s.orch.Info())
}
