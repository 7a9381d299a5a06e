package sanitize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edgard/chatbots/internal/sanitize"
)

func TestPlainText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "   ", ""},
		{"plain", "Helps with banking.", "Helps with banking."},
		{"emphasis", "Helps with **banking** and _cards_.", "Helps with banking and cards."},
		{"link", "[Binbank](https://example.com) & friends", "Binbank & friends"},
		{"heading", "# Binbank\n\nBanking replies.", "Binbank\n\nBanking replies."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, sanitize.PlainText(tt.in))
		})
	}
}
