package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"google.golang.org/genai"

	"github.com/kisanmitra/farm-assistant-backend/internal/models"
	"github.com/kisanmitra/farm-assistant-backend/internal/services"
	"github.com/kisanmitra/farm-assistant-backend/utils"
)

const stoppedReply = "Stopped."

const voiceInstruction = "\n\nReturn strict JSON only, shaped as " +
	`{"reply_text": string, "detected_language": string}` +
	" where detected_language is the BCP-47 tag of the language the farmer used."

// Mixed English and transliterated Hindi on purpose; farmers interrupt in
// both. TODO: precision of the 3-word prefix rule has not been measured
// against real transcripts, revisit the list once voice logs accumulate.
var stopKeywords = []string{"stop", "wait", "cancel", "ruko", "band karo", "bas"}

// isStopCommand matches an exact keyword, or a phrase of at most three words
// that starts with one. The word bound keeps longer sentences that merely
// begin with a keyword ("stop the tractor please") flowing to the model, and
// the trailing-space prefix check keeps "stopwatch" from matching.
func isStopCommand(message string) bool {
	m := strings.ToLower(strings.TrimSpace(message))
	if m == "" {
		return false
	}
	wordCount := len(strings.Fields(m))
	for _, kw := range stopKeywords {
		if m == kw {
			return true
		}
		if wordCount <= 3 && strings.HasPrefix(m, kw+" ") {
			return true
		}
	}
	return false
}

type voiceReply struct {
	ReplyText        string `json:"reply_text"`
	DetectedLanguage string `json:"detected_language"`
}

// parseVoiceReply never fails: malformed output degrades to the raw text with
// the declared language.
func parseVoiceReply(raw, declaredLang string) voiceReply {
	var out voiceReply
	if err := json.Unmarshal([]byte(services.ExtractJSON(raw)), &out); err != nil || strings.TrimSpace(out.ReplyText) == "" {
		return voiceReply{ReplyText: services.StripMarkdown(raw), DetectedLanguage: declaredLang}
	}
	return out
}

// Voice handles the low-latency voice mode: a short context window, a
// JSON-forced reply with language detection, synthesis, and fire-and-forget
// persistence of both turns. A follow-up request issued immediately may not
// yet see these turns in its history; that staleness window is accepted.
func (h *Handlers) Voice(c *fiber.Ctx) error {
	var req models.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}

	userID, _ := c.Locals("userId").(string)
	userObjID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid user id")
	}

	lang := services.NormalizeLang(req.Language)
	now := time.Now()

	if isStopCommand(req.Message) {
		h.appendAsync(&models.ConversationTurn{
			UserID: userObjID, Sender: models.SenderUser,
			Text: req.Message, Language: lang, CreatedAt: now,
		})
		h.appendAsync(&models.ConversationTurn{
			UserID: userObjID, Sender: models.SenderAssistant,
			Text: stoppedReply, Language: lang, CreatedAt: now.Add(time.Millisecond),
		})
		return c.JSON(models.VoiceResponse{ReplyText: stoppedReply, LanguageCode: lang})
	}

	imgData, imgMime, tmpPath, imgErr := saveUpload(c, "image")
	hasImage := imgErr == nil
	if hasImage {
		defer os.Remove(tmpPath)
	}

	ctx := context.Background()
	prompt, err := h.asm.Assemble(ctx, services.AssembleInput{
		UserID:   userID,
		Message:  req.Message,
		Language: lang,
		Weather:  parseWeather(req.WeatherData),
		HasImage: hasImage,
		Voice:    true,
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to assemble context")
	}

	userTurn := &models.ConversationTurn{
		UserID: userObjID, Sender: models.SenderUser,
		Text: req.Message, Language: lang, CreatedAt: now,
	}
	if hasImage {
		userTurn.ImageRef = filepath.Base(tmpPath)
	}
	h.appendAsync(userTurn)

	parts := []*genai.Part{genai.NewPartFromText(prompt + voiceInstruction)}
	if hasImage {
		parts = append(parts, genai.NewPartFromBytes(imgData, imgMime))
	}
	raw, err := h.ai.Generate(ctx, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, jsonCfg())
	if err != nil {
		return upstreamErrorResponse(c, err)
	}

	reply := parseVoiceReply(raw, lang)

	audioB64 := ""
	audio, _, langCode, synthErr := h.tts.Synthesize(ctx, reply.ReplyText, reply.DetectedLanguage, lang)
	if synthErr != nil {
		// The farmer still gets the text answer.
		log.Printf("voice: synthesis failed, returning text only: %v", synthErr)
	} else {
		audioB64 = base64.StdEncoding.EncodeToString(audio)
	}

	h.appendAsync(&models.ConversationTurn{
		UserID: userObjID, Sender: models.SenderAssistant,
		Text: reply.ReplyText, Language: langCode, CreatedAt: time.Now(),
	})

	return c.JSON(models.VoiceResponse{
		ReplyText:    reply.ReplyText,
		AudioBase64:  audioB64,
		LanguageCode: langCode,
	})
}
