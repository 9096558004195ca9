package content

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pavelanni/memorylane/internal/model"
	"github.com/pavelanni/memorylane/internal/quiz"
	"github.com/pavelanni/memorylane/internal/store"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if len(c.Questions) != 7 {
		t.Errorf("expected 7 questions, got %d", len(c.Questions))
	}
	if len(c.Memories) != 17 {
		t.Errorf("expected 17 memories, got %d", len(c.Memories))
	}
	last := c.Questions[len(c.Questions)-1]
	if c.EvasiveOption != 1 || last.Options[c.EvasiveOption] != "Someone else" {
		t.Errorf("evasive option = %d (%v)", c.EvasiveOption, last.Options)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{
			name: "yaml",
			doc: `
evasive_option: 0
questions:
  - {id: 1, prompt: "Q?", options: [a, b], correct_option: 1}
`,
		},
		{
			name: "json",
			doc:  `{"questions": [{"id": 1, "prompt": "Q?", "options": ["a", "b"], "correct_option": 0}]}`,
		},
		{
			name:    "empty",
			doc:     ``,
			wantErr: quiz.ErrNoQuestions,
		},
		{
			name:    "no questions",
			doc:     `title: hi`,
			wantErr: quiz.ErrNoQuestions,
		},
		{
			name: "correct out of range",
			doc: `
questions:
  - {id: 1, prompt: "Q?", options: [a, b], correct_option: 2}
`,
			wantErr: quiz.ErrInvalidQuestion,
		},
		{
			name: "evasive out of range",
			doc: `
evasive_option: 3
questions:
  - {id: 1, prompt: "Q?", options: [a, b], correct_option: 0}
`,
			wantErr: ErrInvalidContent,
		},
		{
			name: "evasive is the correct answer",
			doc: `
evasive_option: 0
questions:
  - {id: 1, prompt: "Q?", options: [a, b], correct_option: 1}
  - {id: 2, prompt: "Valentine?", options: ["Yes", "No"], correct_option: 0}
`,
			wantErr: ErrInvalidContent,
		},
		{
			name: "bad memory kind",
			doc: `
questions:
  - {id: 1, prompt: "Q?", options: [a, b], correct_option: 0}
memories:
  - {kind: audio, src: x.mp3}
`,
			wantErr: ErrInvalidContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseUnknownField(t *testing.T) {
	_, err := Parse([]byte(`
questions:
  - {id: 1, prompt: "Q?", options: [a, b], correct_answer: 0}
`))
	if err == nil {
		t.Fatal("expected an error for an unknown field")
	}
}

func TestParseEvasiveDefault(t *testing.T) {
	c, err := Parse([]byte(`
questions:
  - {id: 1, prompt: "Q?", options: [a, b], correct_option: 0}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.EvasiveOption != 1 {
		t.Errorf("evasive option = %d, want 1", c.EvasiveOption)
	}

	c, err = Parse([]byte(`
evasive_option: -1
questions:
  - {id: 1, prompt: "Q?", options: [a, b], correct_option: 0}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.EvasiveOption != -1 {
		t.Errorf("evasive option = %d, want -1", c.EvasiveOption)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	data, err := Marshal(c)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	back, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse marshalled content: %v", err)
	}
	if back.Title != c.Title || len(back.Questions) != len(c.Questions) || len(back.Memories) != len(c.Memories) {
		t.Errorf("round trip lost data: %+v", back)
	}
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestImportSkipsUnchanged(t *testing.T) {
	db := newTestStore(t)
	path := filepath.Join(t.TempDir(), "content.yaml")
	doc := []byte(`
title: first
questions:
  - {id: 1, prompt: "Q?", options: [a, b], correct_option: 0}
`)
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		t.Fatal(err)
	}

	changed, err := ImportFile(db, path)
	if err != nil || !changed {
		t.Fatalf("first import: changed=%v err=%v", changed, err)
	}
	changed, err = ImportFile(db, path)
	if err != nil || changed {
		t.Fatalf("second import should be skipped: changed=%v err=%v", changed, err)
	}

	updated := append(doc, []byte("subtitle: second\n")...)
	if err := os.WriteFile(path, updated, 0o644); err != nil {
		t.Fatal(err)
	}
	changed, err = ImportFile(db, path)
	if err != nil || !changed {
		t.Fatalf("changed file should be imported: changed=%v err=%v", changed, err)
	}
	c, _ := db.LoadContent()
	if c.Subtitle != "second" {
		t.Errorf("subtitle = %q, want second", c.Subtitle)
	}
}

func TestImportInvalidLeavesStore(t *testing.T) {
	db := newTestStore(t)
	if _, err := Seed(db); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	_, err := Import(db, "bad.yaml", []byte(`questions: []`))
	if !errors.Is(err, quiz.ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
	if n, _ := db.QuestionCount(); n != 7 {
		t.Errorf("stored questions = %d, want 7", n)
	}
	if h, _ := db.GetImportedFileHash("bad.yaml"); h != "" {
		t.Errorf("failed import should not be recorded, got %q", h)
	}
}

func TestSeed(t *testing.T) {
	db := newTestStore(t)
	seeded, err := Seed(db)
	if err != nil || !seeded {
		t.Fatalf("Seed: seeded=%v err=%v", seeded, err)
	}
	seeded, err = Seed(db)
	if err != nil || seeded {
		t.Fatalf("second Seed should do nothing: seeded=%v err=%v", seeded, err)
	}

	c, err := db.LoadContent()
	if err != nil {
		t.Fatalf("LoadContent: %v", err)
	}
	if err := Validate(c); err != nil {
		t.Errorf("seeded content does not validate: %v", err)
	}
	if c.Questions[0].Message == "" || c.Memories[14].Kind != model.MediaImage {
		t.Errorf("seeded content incomplete: %+v", c.Questions[0])
	}
}
