package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kisanmitra/farm-assistant-backend/internal/models"
)

type fakeHistory struct {
	turns []models.ConversationTurn
	lastN int64
}

func (f *fakeHistory) Recent(ctx context.Context, userID string, n int64) ([]models.ConversationTurn, error) {
	f.lastN = n
	if int64(len(f.turns)) <= n {
		return f.turns, nil
	}
	return f.turns[int64(len(f.turns))-n:], nil
}

func priorTurns(count int) []models.ConversationTurn {
	turns := make([]models.ConversationTurn, 0, count)
	base := time.Now().Add(-time.Hour)
	for i := 1; i <= count; i++ {
		sender := models.SenderUser
		if i%2 == 0 {
			sender = models.SenderAssistant
		}
		turns = append(turns, models.ConversationTurn{
			Sender:    sender,
			Text:      fmt.Sprintf("msg-%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return turns
}

func testRefData() *RefData {
	return &RefData{
		cropRows: []models.CropRecommendationRow{
			{Nitrogen: 90, Phosphorus: 42, Potassium: 43, Temperature: 20.9, Rainfall: 202.9, Label: "rice"},
			{Nitrogen: 80, Phosphorus: 40, Potassium: 21, Temperature: 24.9, Rainfall: 84.8, Label: "maize"},
		},
		priceRows: []models.MarketPriceRow{
			{State: "Maharashtra", Commodity: "Onion", ModalPrice: 1450},
		},
	}
}

func TestAssemble_ChatHistoryWindow(t *testing.T) {
	hist := &fakeHistory{turns: priorTurns(15)}
	asm := NewAssembler(hist, testRefData())

	prompt, err := asm.Assemble(context.Background(), AssembleInput{UserID: "u1", Message: "how is my wheat doing"})
	require.NoError(t, err)

	assert.Equal(t, int64(10), hist.lastN)
	assert.NotContains(t, prompt, "msg-5\n")
	for i := 6; i <= 15; i++ {
		assert.Contains(t, prompt, fmt.Sprintf("msg-%d\n", i))
	}
	// Ascending order: oldest of the window rendered first.
	assert.Less(t, indexOf(t, prompt, "msg-6"), indexOf(t, prompt, "msg-15"))
}

func TestAssemble_VoiceHistoryWindow(t *testing.T) {
	hist := &fakeHistory{turns: priorTurns(15)}
	asm := NewAssembler(hist, testRefData())

	prompt, err := asm.Assemble(context.Background(), AssembleInput{UserID: "u1", Message: "hello", Voice: true})
	require.NoError(t, err)

	assert.Equal(t, int64(4), hist.lastN)
	assert.NotContains(t, prompt, "msg-11\n")
	assert.Contains(t, prompt, "msg-12")
	assert.Contains(t, prompt, "msg-15")
}

func TestAssemble_KeywordTriggeredReferenceBlocks(t *testing.T) {
	tests := []struct {
		name      string
		message   string
		wantCrop  bool
		wantPrice bool
	}{
		{"crop question", "What crop should I grow?", true, false},
		{"price question", "What is the market rate for onion?", false, true},
		{"greeting", "hello", false, false},
		{"both", "which crop has the best market price", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asm := NewAssembler(&fakeHistory{}, testRefData())
			prompt, err := asm.Assemble(context.Background(), AssembleInput{UserID: "u1", Message: tt.message})
			require.NoError(t, err)

			assert.Equal(t, tt.wantCrop, strings.Contains(prompt, "crop suitability data"), "crop block")
			assert.Equal(t, tt.wantPrice, strings.Contains(prompt, "mandi price data"), "price block")
		})
	}
}

func TestAssemble_WeatherBlockIsOptional(t *testing.T) {
	asm := NewAssembler(&fakeHistory{}, testRefData())

	prompt, err := asm.Assemble(context.Background(), AssembleInput{UserID: "u1", Message: "hello"})
	require.NoError(t, err)
	assert.NotContains(t, prompt, "Current weather")

	prompt, err = asm.Assemble(context.Background(), AssembleInput{
		UserID:  "u1",
		Message: "hello",
		Weather: &models.WeatherSnapshot{Temp: 31.2, Humidity: 62, WindSpeedKmh: 12, ConditionCode: "clear"},
	})
	require.NoError(t, err)
	assert.Contains(t, prompt, "Current weather")
	assert.Contains(t, prompt, "31.2°C")
	assert.Contains(t, prompt, "condition clear")
}

func TestAssemble_InputDefaults(t *testing.T) {
	asm := NewAssembler(&fakeHistory{}, testRefData())

	prompt, err := asm.Assemble(context.Background(), AssembleInput{UserID: "u1"})
	require.NoError(t, err)
	assert.Contains(t, prompt, "without a message")

	prompt, err = asm.Assemble(context.Background(), AssembleInput{UserID: "u1", HasImage: true})
	require.NoError(t, err)
	assert.Contains(t, prompt, "Analyze this image")

	// Declared language lands in the persona block.
	prompt, err = asm.Assemble(context.Background(), AssembleInput{UserID: "u1", Message: "hi", Language: "hi-IN"})
	require.NoError(t, err)
	assert.Contains(t, prompt, "hi-IN")
}

func indexOf(t *testing.T, s, sub string) int {
	t.Helper()
	i := strings.Index(s, sub)
	require.GreaterOrEqual(t, i, 0, "expected %q in prompt", sub)
	return i
}
