package store

import (
	"fmt"
	"time"

	"github.com/pavelanni/memorylane/internal/model"
)

// ExportContent builds an export-ready snapshot of the stored content and
// its import history.
func (s *Store) ExportContent() (model.ContentExport, error) {
	c, err := s.LoadContent()
	if err != nil {
		return model.ContentExport{}, fmt.Errorf("load content: %w", err)
	}
	files, err := s.ListImportedFiles()
	if err != nil {
		return model.ContentExport{}, fmt.Errorf("list imported files: %w", err)
	}

	return model.ContentExport{
		ExportedAt:    time.Now().UTC(),
		NumQuestions:  len(c.Questions),
		NumMemories:   len(c.Memories),
		ImportedFiles: files,
		Content:       c,
	}, nil
}
