package handlers

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"google.golang.org/genai"

	"github.com/kisanmitra/farm-assistant-backend/internal/models"
	"github.com/kisanmitra/farm-assistant-backend/internal/services"
	"github.com/kisanmitra/farm-assistant-backend/utils"
)

const diagnosisInstruction = "You are an expert plant pathologist. Examine the attached crop photo and return strict JSON only, shaped as " +
	`{"diagnosis": string, "crop": string, "confidence": string, "symptoms": [string], "organic_remedy": string, "chemical_remedy": string}` +
	`. Use "high", "medium" or "low" for confidence. If the plant looks healthy, say so in diagnosis and leave both remedies empty.`

const soilInstruction = "Read the attached soil health card photo and return strict JSON only, shaped as " +
	`{"n": string, "p": string, "k": string, "ph": string}` +
	". Copy the values exactly as printed; use an empty string for anything unreadable."

// saveUpload stores the uploaded image under a temp name and reads it back
// into memory. The caller must remove the returned path once the upstream
// call is done, on success and failure alike.
func saveUpload(c *fiber.Ctx, field string) (data []byte, mimeType, tmpPath string, err error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, "", "", err
	}

	tmpPath = filepath.Join(os.TempDir(), "kisan-upload-"+uuid.NewString()+filepath.Ext(fh.Filename))
	if err := c.SaveFile(fh, tmpPath); err != nil {
		return nil, "", "", err
	}

	data, err = os.ReadFile(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return nil, "", "", err
	}

	mimeType = fh.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return data, mimeType, tmpPath, nil
}

type groundedReply struct {
	Text  string               `json:"text"`
	Boxes []models.BoundingBox `json:"boxes"`
}

// parseGroundedReply never fails: malformed output degrades to the raw text
// with no boxes.
func parseGroundedReply(raw string) groundedReply {
	var out groundedReply
	if err := json.Unmarshal([]byte(services.ExtractJSON(raw)), &out); err != nil || strings.TrimSpace(out.Text) == "" {
		return groundedReply{Text: raw, Boxes: []models.BoundingBox{}}
	}
	if out.Boxes == nil {
		out.Boxes = []models.BoundingBox{}
	}
	return out
}

func parseDiagnosis(raw string) models.DiagnosisResult {
	var out models.DiagnosisResult
	if err := json.Unmarshal([]byte(services.ExtractJSON(raw)), &out); err != nil || strings.TrimSpace(out.Diagnosis) == "" {
		return models.DiagnosisResult{Diagnosis: services.StripMarkdown(raw), Symptoms: []string{}}
	}
	if out.Symptoms == nil {
		out.Symptoms = []string{}
	}
	return out
}

// Diagnose analyzes a crop photo for disease. The image is required; the
// conversation log records the exchange like any other turn pair.
func (h *Handlers) Diagnose(c *fiber.Ctx) error {
	userID, _ := c.Locals("userId").(string)
	userObjID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid user id")
	}

	imgData, imgMime, tmpPath, err := saveUpload(c, "image")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "image is required")
	}
	defer os.Remove(tmpPath)

	ctx := context.Background()
	if err := h.turns.Append(ctx, &models.ConversationTurn{
		UserID: userObjID, Sender: models.SenderUser,
		ImageRef: filepath.Base(tmpPath), Language: models.DefaultLanguage, CreatedAt: time.Now(),
	}); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save message")
	}

	parts := []*genai.Part{
		genai.NewPartFromText(diagnosisInstruction),
		genai.NewPartFromBytes(imgData, imgMime),
	}
	raw, err := h.ai.Generate(ctx, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, jsonCfg())
	if err != nil {
		return upstreamErrorResponse(c, err)
	}

	result := parseDiagnosis(raw)

	if err := h.turns.Append(ctx, &models.ConversationTurn{
		UserID: userObjID, Sender: models.SenderAssistant,
		Text: result.Diagnosis, Language: models.DefaultLanguage, CreatedAt: time.Now(),
	}); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save reply")
	}

	return c.JSON(result)
}

// ExtractSoil reads N/P/K/pH values off a soil health card photo.
func (h *Handlers) ExtractSoil(c *fiber.Ctx) error {
	imgData, imgMime, tmpPath, err := saveUpload(c, "image")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "image is required")
	}
	defer os.Remove(tmpPath)

	parts := []*genai.Part{
		genai.NewPartFromText(soilInstruction),
		genai.NewPartFromBytes(imgData, imgMime),
	}
	raw, err := h.ai.Generate(context.Background(), []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, jsonCfg())
	if err != nil {
		return upstreamErrorResponse(c, err)
	}

	var report models.SoilReport
	if jsonErr := json.Unmarshal([]byte(services.ExtractJSON(raw)), &report); jsonErr != nil {
		// Unreadable card: every field stays empty.
		report = models.SoilReport{}
	}
	return c.JSON(report)
}
