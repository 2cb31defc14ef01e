package handlers

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"google.golang.org/genai"

	"github.com/kisanmitra/farm-assistant-backend/internal/models"
	"github.com/kisanmitra/farm-assistant-backend/internal/services"
	"github.com/kisanmitra/farm-assistant-backend/utils"
)

const historyPageSize = 50

const groundingInstruction = "\n\nReturn strict JSON only, shaped as " +
	`{"text": string, "boxes": [{"label": string, "xmin": int, "ymin": int, "xmax": int, "ymax": int}]}` +
	" with box coordinates normalized to a 0-1000 scale. Add a box for every image region you mention."

// Chat handles the text mode and, when an image is attached, the
// vision-grounded variant of it. Both turns are persisted synchronously so a
// follow-up request always sees them in its history.
func (h *Handlers) Chat(c *fiber.Ctx) error {
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
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to assemble context")
	}

	userTurn := &models.ConversationTurn{
		UserID:    userObjID,
		Sender:    models.SenderUser,
		Text:      req.Message,
		Language:  lang,
		CreatedAt: time.Now(),
	}
	if hasImage {
		userTurn.ImageRef = filepath.Base(tmpPath)
	}
	if err := h.turns.Append(ctx, userTurn); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save message")
	}

	var cfg *genai.GenerateContentConfig
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	if hasImage {
		parts[0] = genai.NewPartFromText(prompt + groundingInstruction)
		parts = append(parts, genai.NewPartFromBytes(imgData, imgMime))
		cfg = jsonCfg()
	}
	raw, err := h.ai.Generate(ctx, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, cfg)
	if err != nil {
		return upstreamErrorResponse(c, err)
	}

	var reply models.ChatResponse
	if hasImage {
		grounded := parseGroundedReply(raw)
		reply = models.ChatResponse{Response: grounded.Text, Boxes: grounded.Boxes}
	} else {
		reply = models.ChatResponse{Response: services.StripMarkdown(raw)}
	}

	assistantTurn := &models.ConversationTurn{
		UserID:    userObjID,
		Sender:    models.SenderAssistant,
		Text:      reply.Response,
		Language:  lang,
		Boxes:     reply.Boxes,
		CreatedAt: time.Now(),
	}
	if err := h.turns.Append(ctx, assistantTurn); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save reply")
	}

	return c.JSON(reply)
}

// History returns the caller's most recent turns, oldest first.
func (h *Handlers) History(c *fiber.Ctx) error {
	userID, _ := c.Locals("userId").(string)

	turns, err := h.turns.History(context.Background(), userID, historyPageSize)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch history")
	}
	if turns == nil {
		turns = []models.ConversationTurn{}
	}

	return c.JSON(fiber.Map{
		"turns": turns,
	})
}
