package nlu

import "testing"

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "no fences",
			input:    `{"command":"balance"}`,
			expected: `{"command":"balance"}`,
		},
		{
			name:     "json fence with newlines",
			input:    "```json\n{\"command\":\"balance\"}\n```",
			expected: `{"command":"balance"}`,
		},
		{
			name:     "json fence on one line",
			input:    "```json {\"command\":\"balance\"} ```",
			expected: `{"command":"balance"}`,
		},
		{
			name:     "bare fence",
			input:    "```\n{\"command\":\"card\"}\n```",
			expected: `{"command":"card"}`,
		},
		{
			name:     "unterminated fence",
			input:    "```json\n{\"command\":\"balance\"}",
			expected: `{"command":"balance"}`,
		},
		{
			name:     "fence glued to brace",
			input:    "```json{\"command\":\"balance\"}```",
			expected: `{"command":"balance"}`,
		},
		{
			name:     "surrounding whitespace",
			input:    "  \n```json\n{\"a\":1}\n```  ",
			expected: `{"a":1}`,
		},
		{
			name:     "fenced prose stays intact",
			input:    "```\nпривет, чем могу помочь\n```",
			expected: "привет, чем могу помочь",
		},
		{
			name:     "plain text",
			input:    "  Ваш запрос не ясен.  ",
			expected: "Ваш запрос не ясен.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripCodeFences(tt.input); got != tt.expected {
				t.Errorf("StripCodeFences(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
