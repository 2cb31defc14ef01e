package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "use neem oil", "use neem oil"},
		{"asterisks", "**Neem oil** works *well*", "Neem oil works well"},
		{"citation", "spray in the evening [1]", "spray in the evening"},
		{"fence", "```\nspray weekly\n```", "spray weekly"},
		{"fence with language", "```text\nspray weekly\n```", "spray weekly"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripMarkdown(tt.in))
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"text":"ok"}`, `{"text":"ok"}`},
		{"fenced", "```json\n{\"text\":\"ok\"}\n```", `{"text":"ok"}`},
		{"prose around object", `Here you go: {"text":"ok"} hope that helps`, `{"text":"ok"}`},
		{"no object", "just words", "just words"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.in))
		})
	}
}
