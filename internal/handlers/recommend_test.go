package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kisanmitra/farm-assistant-backend/internal/models"
)

const recommendBody = `{"soilData":{"n":"90","p":"42","k":"43","ph":"6.5"},"budget":50000}`

func TestRecommend(t *testing.T) {
	ai := &fakeAI{raw: `{"recommendations":[{"crop":"maize","reason":"suits the soil NPK","estimated_cost":"30000 INR","expected_profit":"55000 INR"}],"market_insight":"maize prices are steady"}`}
	h, _ := newTestHandlers(ai, &fakeTTS{})
	app := newTestApp(h)

	resp := postJSON(t, app, "/recommend", recommendBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out models.RecommendResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Recommendations, 1)
	assert.Equal(t, "maize", out.Recommendations[0].Crop)
	assert.Equal(t, "maize prices are steady", out.MarketInsight)
	assert.NotEmpty(t, out.Disclaimer)
}

func TestRecommend_MalformedOutputFallsBackToText(t *testing.T) {
	ai := &fakeAI{raw: "I would suggest growing maize this season."}
	h, _ := newTestHandlers(ai, &fakeTTS{})
	app := newTestApp(h)

	resp := postJSON(t, app, "/recommend", recommendBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out models.RecommendResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Empty(t, out.Recommendations)
	assert.Equal(t, "I would suggest growing maize this season.", out.MarketInsight)
	assert.NotEmpty(t, out.Disclaimer)
}

func TestRecommend_ValidatesInput(t *testing.T) {
	ai := &fakeAI{raw: "unused"}
	h, _ := newTestHandlers(ai, &fakeTTS{})
	app := newTestApp(h)

	resp := postJSON(t, app, "/recommend", `{"soilData":{"n":"90"}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, ai.callCount())
}
