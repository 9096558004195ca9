package content

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"

	"github.com/pavelanni/memorylane/internal/model"
)

// Target is where imported content is written. *store.Store satisfies it.
type Target interface {
	GetImportedFileHash(path string) (string, error)
	SetImportedFileHash(path, hash string) error
	ReplaceContent(c model.Content) error
	QuestionCount() (int, error)
}

// ImportFile imports the content file at path unless the same bytes were
// imported before. It reports whether the stored content changed.
func ImportFile(db Target, path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	return Import(db, path, data)
}

// Import parses data and replaces the stored content with it. Files whose
// hash matches the last import of the same path are skipped.
func Import(db Target, path string, data []byte) (bool, error) {
	hash := sha256sum(data)
	storedHash, err := db.GetImportedFileHash(path)
	if err != nil {
		return false, fmt.Errorf("check import status for %s: %w", path, err)
	}
	if storedHash == hash {
		slog.Info("content file unchanged, skipping", "path", path)
		return false, nil
	}

	c, err := Parse(data)
	if err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	if storedHash != "" {
		slog.Warn("content file changed since last import, replacing", "path", path)
	}
	if err := db.ReplaceContent(c); err != nil {
		return false, fmt.Errorf("store content from %s: %w", path, err)
	}
	if err := db.SetImportedFileHash(path, hash); err != nil {
		return false, fmt.Errorf("record import for %s: %w", path, err)
	}
	slog.Info("imported content", "path", path, "questions", len(c.Questions), "memories", len(c.Memories))
	return true, nil
}

// Seed imports the embedded default content into an empty store.
func Seed(db Target) (bool, error) {
	count, err := db.QuestionCount()
	if err != nil {
		return false, fmt.Errorf("count questions: %w", err)
	}
	if count > 0 {
		return false, nil
	}
	return Import(db, DefaultPath, defaultContent)
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
