// Package chatbottest writes bot bundles to disk for tests.
package chatbottest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/edgard/chatbots/internal/chatbot"
)

// Bundle describes the files WriteBundle creates.
type Bundle struct {
	Title       string
	Words       []string
	Responses   []chatbot.Response
	Description string
	Tags        []string
	// NoModel skips the model file.
	NoModel bool
	// Icon writes icon.png when set.
	Icon bool
}

// WriteBundle creates <root>/<title>.chatbot and returns its path.
func WriteBundle(t testing.TB, root string, b Bundle) string {
	t.Helper()

	dir := filepath.Join(root, b.Title+chatbot.BundleExt)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir bundle: %v", err)
	}

	if !b.NoModel {
		writeFile(t, filepath.Join(dir, chatbot.ModelFile(b.Title)), []byte("model"))
	}
	words := b.Words
	if words == nil {
		words = []string{}
	}
	responses := b.Responses
	if responses == nil {
		responses = []chatbot.Response{}
	}
	writeJSON(t, filepath.Join(dir, chatbot.WordsFile(b.Title)), words)
	writeJSON(t, filepath.Join(dir, chatbot.ResponsesFile(b.Title)), responses)
	if b.Description != "" || len(b.Tags) > 0 {
		writeJSON(t, filepath.Join(dir, "info.json"), map[string]any{
			"description": b.Description,
			"tags":        b.Tags,
		})
	}
	if b.Icon {
		writeFile(t, filepath.Join(dir, "icon.png"), []byte("png"))
	}
	return dir
}

func writeJSON(t testing.TB, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal %s: %v", path, err)
	}
	writeFile(t, path, data)
}

func writeFile(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
