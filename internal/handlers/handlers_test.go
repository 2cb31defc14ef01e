package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"google.golang.org/genai"

	"github.com/kisanmitra/farm-assistant-backend/internal/models"
	"github.com/kisanmitra/farm-assistant-backend/internal/services"
)

type fakeAI struct {
	mu    sync.Mutex
	raw   string
	err   error
	calls int
}

func (f *fakeAI) Generate(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.raw, nil
}

func (f *fakeAI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeTTS struct {
	err error
}

func (f *fakeTTS) Synthesize(ctx context.Context, text, detectedLang, declaredLang string) ([]byte, string, string, error) {
	_, lang := services.LookupVoice(detectedLang, declaredLang)
	if f.err != nil {
		return nil, "", lang, f.err
	}
	return []byte("audio-bytes"), "audio/wav", lang, nil
}

type fakeTurns struct {
	mu       sync.Mutex
	appended []models.ConversationTurn
}

func (f *fakeTurns) Append(ctx context.Context, turn *models.ConversationTurn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, *turn)
	return nil
}

func (f *fakeTurns) Recent(ctx context.Context, userID string, n int64) ([]models.ConversationTurn, error) {
	return nil, nil
}

func (f *fakeTurns) History(ctx context.Context, userID string, limit int64) ([]models.ConversationTurn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.ConversationTurn, len(f.appended))
	copy(out, f.appended)
	return out, nil
}

func (f *fakeTurns) snapshot() []models.ConversationTurn {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.ConversationTurn, len(f.appended))
	copy(out, f.appended)
	return out
}

func newTestHandlers(ai ContentGenerator, tts Synthesizer) (*Handlers, *fakeTurns) {
	turns := &fakeTurns{}
	ref := services.LoadRefData("missing-crops.csv", "missing-prices.csv")
	asm := services.NewAssembler(turns, ref)
	return New(ai, tts, turns, asm, ref), turns
}

func newTestApp(h *Handlers) *fiber.App {
	userID := primitive.NewObjectID().Hex()
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userId", userID)
		return c.Next()
	})
	app.Post("/chat", h.Chat)
	app.Post("/voice", h.Voice)
	app.Post("/diagnose", h.Diagnose)
	app.Post("/extract-soil", h.ExtractSoil)
	app.Post("/recommend", h.Recommend)
	app.Get("/history", h.History)
	return app
}

func multipartBody(t *testing.T, fields map[string]string, withImage bool) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if withImage {
		part, err := w.CreateFormFile("image", "leaf.jpg")
		require.NoError(t, err)
		_, err = part.Write([]byte("fake-jpeg-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}
