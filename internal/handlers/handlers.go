package handlers

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"google.golang.org/genai"

	"github.com/kisanmitra/farm-assistant-backend/internal/models"
	"github.com/kisanmitra/farm-assistant-backend/internal/services"
)

// Ports over the services this package orchestrates, kept narrow so tests can
// substitute fakes.
type ContentGenerator interface {
	Generate(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text, detectedLang, declaredLang string) ([]byte, string, string, error)
}

type TurnLog interface {
	Append(ctx context.Context, turn *models.ConversationTurn) error
	Recent(ctx context.Context, userID string, n int64) ([]models.ConversationTurn, error)
	History(ctx context.Context, userID string, limit int64) ([]models.ConversationTurn, error)
}

type Handlers struct {
	ai    ContentGenerator
	tts   Synthesizer
	turns TurnLog
	asm   *services.Assembler
	ref   *services.RefData
}

func New(ai ContentGenerator, tts Synthesizer, turns TurnLog, asm *services.Assembler, ref *services.RefData) *Handlers {
	return &Handlers{ai: ai, tts: tts, turns: turns, asm: asm, ref: ref}
}

// appendAsync persists a turn without blocking the response. Failures are
// logged and never reach the caller.
func (h *Handlers) appendAsync(turn *models.ConversationTurn) {
	go func() {
		if err := h.turns.Append(context.Background(), turn); err != nil {
			log.Printf("turn log: async append failed for user %s: %v", turn.UserID.Hex(), err)
		}
	}()
}

func jsonCfg() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
}

// parseWeather decodes the per-request weather snapshot. Anything that fails
// to parse is treated the same as absent weather.
func parseWeather(raw string) *models.WeatherSnapshot {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var w models.WeatherSnapshot
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		log.Printf("weather snapshot ignored, bad JSON: %v", err)
		return nil
	}
	return &w
}
