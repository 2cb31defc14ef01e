package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/kisanmitra/farm-assistant-backend/internal/models"
)

// Synthesis voice per supported regional language. Unmapped codes fall back
// to the default voice, never an error.
var voiceByLanguage = map[string]string{
	"en-IN": "Charon",
	"hi-IN": "Kore",
	"bn-IN": "Zephyr",
	"ta-IN": "Puck",
	"te-IN": "Fenrir",
	"kn-IN": "Aoede",
	"ml-IN": "Leda",
	"mr-IN": "Orus",
	"gu-IN": "Callirrhoe",
	"pa-IN": "Enceladus",
}

const defaultVoice = "Kore"

type TTSService struct {
	stream streamFunc
	model  string
}

func NewTTSService(g *GeminiService) *TTSService {
	return &TTSService{stream: g.stream, model: g.ttsModel}
}

// NormalizeLang canonicalizes tags like "hi", "hi_in" or "HI-in" to "hi-IN".
func NormalizeLang(l string) string {
	l = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(l), "_", "-"))
	if l == "" {
		return models.DefaultLanguage
	}
	if i := strings.IndexByte(l, '-'); i > 0 {
		return l[:i] + "-" + strings.ToUpper(l[i+1:])
	}
	return l + "-IN"
}

// LookupVoice resolves the detected language first, then the declared one,
// then the default voice.
func LookupVoice(detected, declared string) (voice, lang string) {
	for _, raw := range []string{detected, declared} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		norm := NormalizeLang(raw)
		if v, ok := voiceByLanguage[norm]; ok {
			return v, norm
		}
	}
	return defaultVoice, models.DefaultLanguage
}

// Synthesize converts reply text into one audio payload. The upstream call
// streams chunks; only audio-typed parts are concatenated, in arrival order.
// Returns the audio bytes, their content type and the resolved language code.
func (t *TTSService) Synthesize(ctx context.Context, text, detectedLang, declaredLang string) ([]byte, string, string, error) {
	voice, lang := LookupVoice(detectedLang, declaredLang)

	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			LanguageCode: lang,
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	}

	var buf bytes.Buffer
	contentType := ""
	for chunk, err := range t.stream(ctx, t.model, contents, cfg) {
		if err != nil {
			return nil, "", lang, fmt.Errorf("synthesis stream: %w", err)
		}
		if chunk == nil || len(chunk.Candidates) == 0 || chunk.Candidates[0].Content == nil {
			continue
		}
		for _, part := range chunk.Candidates[0].Content.Parts {
			if part.InlineData == nil || !strings.HasPrefix(part.InlineData.MIMEType, "audio/") {
				continue
			}
			if contentType == "" {
				contentType = part.InlineData.MIMEType
			}
			buf.Write(part.InlineData.Data)
		}
	}

	if contentType == "" {
		contentType = "audio/wav"
	}
	return buf.Bytes(), contentType, lang, nil
}
