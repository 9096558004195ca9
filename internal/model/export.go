package model

import "time"

// ContentExport is the top-level structure written by the export command.
type ContentExport struct {
	ExportedAt    time.Time      `json:"exported_at" yaml:"exported_at"`
	NumQuestions  int            `json:"num_questions" yaml:"num_questions"`
	NumMemories   int            `json:"num_memories" yaml:"num_memories"`
	ImportedFiles []ImportedFile `json:"imported_files,omitempty" yaml:"imported_files,omitempty"`
	Content       Content        `json:"content" yaml:"content"`
}

// ImportedFile records a content file that was loaded into the store.
type ImportedFile struct {
	Path       string    `json:"path" yaml:"path"`
	Hash       string    `json:"hash" yaml:"hash"`
	ImportedAt time.Time `json:"imported_at" yaml:"imported_at"`
}
