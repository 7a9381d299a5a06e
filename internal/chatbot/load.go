package chatbot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BundleExt is the directory extension of a bot bundle.
const BundleExt = ".chatbot"

var (
	// ErrModelMissing is returned when a bundle has no model file.
	ErrModelMissing = errors.New("chatbot model file does not exist")
	// ErrResourceMissing is returned when a required words or responses file is absent.
	ErrResourceMissing = errors.New("chatbot resource missing")
)

// info is the optional store descriptor shipped in a bundle.
type info struct {
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// TitleFromDir derives a bot title from its bundle directory name.
func TitleFromDir(dir string) string {
	return strings.TrimSuffix(filepath.Base(filepath.Clean(dir)), BundleExt)
}

// ModelFile returns the model file name expected inside the bundle of title.
func ModelFile(title string) string { return title + "converted_model.tflite" }

// WordsFile returns the lexicon file name expected inside the bundle of title.
func WordsFile(title string) string { return "words_" + title + ".json" }

// ResponsesFile returns the responses file name expected inside the bundle of title.
func ResponsesFile(title string) string { return "response_" + title + ".json" }

// Load reads the bot bundle at dir. The bundle must contain the model file, the
// lexicon and the responses; info.json and the icon are optional. The returned
// bot has ID 0; registries assign ids.
func Load(dir string) (*Bot, error) {
	title := TitleFromDir(dir)
	if title == "" {
		return nil, fmt.Errorf("invalid bundle path %q", dir)
	}

	b := &Bot{
		Title:     title,
		Dir:       dir,
		ModelPath: filepath.Join(dir, ModelFile(title)),
	}

	if _, err := os.Stat(b.ModelPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModelMissing, b.ModelPath)
		}
		return nil, fmt.Errorf("failed to stat model file: %w", err)
	}

	if err := readJSON(filepath.Join(dir, WordsFile(title)), &b.Words, true); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, ResponsesFile(title)), &b.Responses, true); err != nil {
		return nil, err
	}

	var meta info
	if err := readJSON(filepath.Join(dir, "info.json"), &meta, false); err != nil {
		return nil, err
	}
	b.Description = meta.Description
	b.Tags = meta.Tags

	b.IconPath = findIcon(dir)
	return b, nil
}

func readJSON(path string, v any, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if !required {
				return nil
			}
			return fmt.Errorf("%w: %s", ErrResourceMissing, path)
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// findIcon prefers the @2x variant and returns "" when the bundle has no icon.
func findIcon(dir string) string {
	for _, name := range []string{"icon@2x.png", "icon.png"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
