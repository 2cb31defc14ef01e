package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"google.golang.org/genai"

	"github.com/kisanmitra/farm-assistant-backend/internal/models"
	"github.com/kisanmitra/farm-assistant-backend/internal/services"
	"github.com/kisanmitra/farm-assistant-backend/utils"
)

const recommendDisclaimer = "These suggestions are based on general reference data. Consult your local agriculture office before investing."

// Recommend suggests crops for the farmer's soil values and budget, grounded
// on the bundled suitability and mandi price tables.
func (h *Handlers) Recommend(c *fiber.Ctx) error {
	var req models.RecommendRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := utils.Validate.Struct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error())
	}

	var b strings.Builder
	b.WriteString("You are an agronomy advisor for Indian farmers. Suggest up to 3 crops for this farm.\n")
	fmt.Fprintf(&b, "Soil report: N=%s, P=%s, K=%s, pH=%s.\n", req.SoilData.N, req.SoilData.P, req.SoilData.K, req.SoilData.Ph)
	fmt.Fprintf(&b, "Budget: %.0f INR.\n", req.Budget)
	if req.CustomCrop != "" {
		fmt.Fprintf(&b, "The farmer is specifically considering %s; evaluate it as one of the options.\n", req.CustomCrop)
	}
	if rows := h.ref.SampleCropRows(5); len(rows) > 0 {
		data, _ := json.Marshal(rows)
		b.WriteString("Crop suitability reference rows:\n")
		b.Write(data)
		b.WriteString("\n")
	}
	if rows := h.ref.SamplePriceRows(8); len(rows) > 0 {
		data, _ := json.Marshal(rows)
		b.WriteString("Mandi price reference rows:\n")
		b.Write(data)
		b.WriteString("\n")
	}
	b.WriteString("Return strict JSON only, shaped as " +
		`{"recommendations": [{"crop": string, "reason": string, "estimated_cost": string, "expected_profit": string}], "market_insight": string}` +
		".")

	contents := []*genai.Content{genai.NewContentFromText(b.String(), genai.RoleUser)}
	raw, err := h.ai.Generate(context.Background(), contents, jsonCfg())
	if err != nil {
		return upstreamErrorResponse(c, err)
	}

	resp := models.RecommendResponse{Disclaimer: recommendDisclaimer}
	if jsonErr := json.Unmarshal([]byte(services.ExtractJSON(raw)), &resp); jsonErr != nil || len(resp.Recommendations) == 0 {
		resp = models.RecommendResponse{
			Recommendations: []models.Recommendation{},
			MarketInsight:   services.StripMarkdown(raw),
			Disclaimer:      recommendDisclaimer,
		}
	}
	if resp.Recommendations == nil {
		resp.Recommendations = []models.Recommendation{}
	}
	resp.Disclaimer = recommendDisclaimer

	return c.JSON(resp)
}
