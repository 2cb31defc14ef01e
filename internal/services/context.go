package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kisanmitra/farm-assistant-backend/internal/models"
)

const (
	chatHistoryWindow  = 10
	voiceHistoryWindow = 4

	maxCropSampleRows  = 5
	maxPriceSampleRows = 8
)

var cropKeywords = []string{"crop", "recommend", "grow", "plant", "fasal"}
var priceKeywords = []string{"price", "rate", "market", "mandi", "bhav"}

// TurnHistory is the slice of the conversation store the assembler needs.
type TurnHistory interface {
	Recent(ctx context.Context, userID string, n int64) ([]models.ConversationTurn, error)
}

type Assembler struct {
	history TurnHistory
	ref     *RefData
}

func NewAssembler(history TurnHistory, ref *RefData) *Assembler {
	return &Assembler{history: history, ref: ref}
}

type AssembleInput struct {
	UserID   string
	Message  string
	Language string
	Weather  *models.WeatherSnapshot
	HasImage bool
	Voice    bool
}

// Assemble builds the full prompt text: persona instructions, a bounded
// history window, an optional weather block, keyword-triggered reference
// blocks, and the user's question.
func (a *Assembler) Assemble(ctx context.Context, in AssembleInput) (string, error) {
	lang := in.Language
	if lang == "" {
		lang = models.DefaultLanguage
	}

	window := int64(chatHistoryWindow)
	if in.Voice {
		window = voiceHistoryWindow
	}
	turns, err := a.history.Recent(ctx, in.UserID, window)
	if err != nil {
		return "", fmt.Errorf("fetch history: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are KisanMitra, an expert farming assistant for Indian farmers.\n")
	b.WriteString("Always reply in the same language the farmer uses (declared language: " + lang + ").\n")
	b.WriteString("Be concise and practical. Keep answers under 120 words")
	if in.Voice {
		b.WriteString(" and easy to speak aloud")
	}
	b.WriteString(".\n")
	b.WriteString("If the farmer sounds worried or describes crop loss, respond with empathy before advice.\n")

	if len(turns) > 0 {
		b.WriteString("\nConversation so far:\n")
		for _, t := range turns {
			text := t.Text
			if text == "" && t.ImageRef != "" {
				text = "[sent an image]"
			}
			b.WriteString(t.Sender + ": " + text + "\n")
		}
	}

	if in.Weather != nil {
		w := in.Weather
		fmt.Fprintf(&b, "\nCurrent weather at the farmer's location: %.1f°C, humidity %.0f%%, wind %.1f km/h, rain %.1f mm, precipitation %.1f mm, pressure %.0f hPa, condition %s.\n",
			w.Temp, w.Humidity, w.WindSpeedKmh, w.RainMm, w.PrecipitationMm, w.PressureHpa, w.ConditionCode)
	}

	lower := strings.ToLower(in.Message)
	if containsAny(lower, cropKeywords) {
		if rows := a.ref.SampleCropRows(maxCropSampleRows); len(rows) > 0 {
			data, _ := json.Marshal(rows)
			b.WriteString("\nSample crop suitability data (N/P/K, temperature, rainfall per crop):\n")
			b.Write(data)
			b.WriteString("\n")
		}
	}
	if containsAny(lower, priceKeywords) {
		if rows := a.ref.SamplePriceRows(maxPriceSampleRows); len(rows) > 0 {
			data, _ := json.Marshal(rows)
			b.WriteString("\nSample mandi price data:\n")
			b.Write(data)
			b.WriteString("\n")
		}
	}

	b.WriteString("\nFarmer's question: ")
	switch {
	case strings.TrimSpace(in.Message) != "":
		b.WriteString(in.Message)
	case in.HasImage:
		b.WriteString("Analyze this image in a farming context and describe what you see, including any visible problems.")
	default:
		b.WriteString("The farmer opened the conversation without a message. Greet them briefly and ask how you can help with their farm.")
	}

	return b.String(), nil
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
