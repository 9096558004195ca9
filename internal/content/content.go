// Package content loads the quiz page payload from YAML or JSON.
package content

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pavelanni/memorylane/internal/model"
	"github.com/pavelanni/memorylane/internal/quiz"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultContent []byte

// DefaultPath is the import path recorded for the embedded content.
const DefaultPath = "embedded:default.yaml"

// ErrInvalidContent wraps validation failures outside the question set.
var ErrInvalidContent = errors.New("invalid content")

// Default returns the embedded content.
func Default() (model.Content, error) {
	return Parse(defaultContent)
}

// DefaultBytes returns the raw embedded content file.
func DefaultBytes() []byte {
	return bytes.Clone(defaultContent)
}

// Parse decodes and validates a content document. JSON is accepted as a
// subset of YAML. A missing evasive_option means option 1.
func Parse(data []byte) (model.Content, error) {
	c := model.Content{EvasiveOption: 1}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return c, fmt.Errorf("parse content: %w", quiz.ErrNoQuestions)
		}
		return c, fmt.Errorf("parse content: %w", err)
	}
	if err := Validate(c); err != nil {
		return c, err
	}
	return c, nil
}

// Load reads a content file. An empty path loads the embedded default.
func Load(path string) (model.Content, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Content{}, fmt.Errorf("read %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Validate checks the question set and the references into it.
func Validate(c model.Content) error {
	if err := quiz.Validate(c.Questions); err != nil {
		return err
	}
	last := c.Questions[len(c.Questions)-1]
	if c.EvasiveOption >= len(last.Options) {
		return fmt.Errorf("%w: evasive option %d out of range for the last question (%d options)",
			ErrInvalidContent, c.EvasiveOption, len(last.Options))
	}
	if c.EvasiveOption >= 0 && c.EvasiveOption == last.CorrectOption {
		return fmt.Errorf("%w: evasive option %d is the correct answer of the last question",
			ErrInvalidContent, c.EvasiveOption)
	}
	if c.LoadingVideo != nil && c.LoadingVideo.Kind != model.MediaVideo {
		return fmt.Errorf("%w: loading video has kind %q", ErrInvalidContent, c.LoadingVideo.Kind)
	}
	for i, m := range c.Memories {
		if m.Kind != model.MediaImage && m.Kind != model.MediaVideo {
			return fmt.Errorf("%w: memory %d: unknown kind %q", ErrInvalidContent, i, m.Kind)
		}
		if m.Src == "" {
			return fmt.Errorf("%w: memory %d: empty src", ErrInvalidContent, i)
		}
	}
	return nil
}

// Marshal encodes v as YAML with two-space indentation.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
