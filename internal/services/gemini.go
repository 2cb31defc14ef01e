package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Upstream failure taxonomy. Every mode handler maps these to client-visible
// responses in one place, so backoff and error semantics stay uniform.
var (
	ErrRateLimited = errors.New("upstream rate limited")
	ErrRejected    = errors.New("upstream rejected request")
	ErrNetwork     = errors.New("upstream network failure")
)

const (
	defaultMaxRetries   = 5
	defaultInitialDelay = 800 * time.Millisecond
)

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
type streamFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]

// GeminiService wraps the Gemini client with a centralized rate-limit retry
// policy: delay doubles from the initial value on each throttled attempt, any
// other failure propagates immediately.
type GeminiService struct {
	generate generateFunc
	stream   streamFunc

	model      string
	ttsModel   string
	maxRetries int
	baseDelay  time.Duration
	sleep      func(time.Duration)
}

func NewGeminiService(ctx context.Context) (*GeminiService, error) {
	apiKey := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set; add it to .env or deployment env")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := strings.TrimSpace(os.Getenv("GEMINI_MODEL"))
	if model == "" {
		model = "gemini-2.0-flash"
	}
	ttsModel := strings.TrimSpace(os.Getenv("GEMINI_TTS_MODEL"))
	if ttsModel == "" {
		ttsModel = "gemini-2.5-flash-preview-tts"
	}

	return &GeminiService{
		generate:   client.Models.GenerateContent,
		stream:     client.Models.GenerateContentStream,
		model:      model,
		ttsModel:   ttsModel,
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultInitialDelay,
		sleep:      time.Sleep,
	}, nil
}

// Generate issues a generate-content call and returns the first candidate's
// text. Rate-limit rejections are retried up to maxRetries times with doubling
// delay; exhausting the budget surfaces a terminal ErrRateLimited.
func (g *GeminiService) Generate(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	delay := g.baseDelay
	for attempt := 0; ; attempt++ {
		resp, err := g.generate(ctx, g.model, contents, cfg)
		if err == nil {
			text := resp.Text()
			if strings.TrimSpace(text) == "" {
				return "", fmt.Errorf("%w: empty candidate", ErrRejected)
			}
			return text, nil
		}

		cerr := classifyUpstream(err)
		if !errors.Is(cerr, ErrRateLimited) {
			return "", cerr
		}
		if attempt == g.maxRetries {
			return "", fmt.Errorf("%w: retry budget exhausted after %d attempts", ErrRateLimited, attempt+1)
		}

		log.Printf("gemini: rate limited, retrying in %s (attempt %d/%d)", delay, attempt+1, g.maxRetries)
		g.sleep(delay)
		delay *= 2
	}
}

func classifyUpstream(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED" {
			return fmt.Errorf("%w: %s", ErrRateLimited, preview(apiErr.Message))
		}
		return fmt.Errorf("%w: %d %s", ErrRejected, apiErr.Code, preview(apiErr.Message))
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

func preview(s string) string {
	if len(s) > 500 {
		return s[:500] + "..."
	}
	return s
}
