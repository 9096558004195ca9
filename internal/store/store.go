package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/pavelanni/memorylane/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection, so a :memory: database is the same across calls.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY,
		position INTEGER NOT NULL,
		prompt TEXT NOT NULL,
		correct_option INTEGER NOT NULL,
		message TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS question_options (
		question_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		text TEXT NOT NULL,
		PRIMARY KEY (question_id, position),
		FOREIGN KEY (question_id) REFERENCES questions(id)
	);

	CREATE TABLE IF NOT EXISTS question_media (
		question_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		kind TEXT NOT NULL,
		src TEXT NOT NULL,
		caption TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (question_id, position),
		FOREIGN KEY (question_id) REFERENCES questions(id)
	);

	CREATE TABLE IF NOT EXISTS memories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		position INTEGER NOT NULL,
		kind TEXT NOT NULL,
		src TEXT NOT NULL,
		caption TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS imported_files (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL,
		imported_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS content_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ReplaceContent swaps the stored question set, memories and page copy for c
// in one transaction.
func (s *Store) ReplaceContent(c model.Content) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"question_options", "question_media", "questions", "memories"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for pos, q := range c.Questions {
		if _, err := tx.Exec(
			`INSERT INTO questions (id, position, prompt, correct_option, message) VALUES (?, ?, ?, ?, ?)`,
			q.ID, pos, q.Prompt, q.CorrectOption, q.Message,
		); err != nil {
			return fmt.Errorf("insert question %d: %w", q.ID, err)
		}
		for i, opt := range q.Options {
			if _, err := tx.Exec(
				`INSERT INTO question_options (question_id, position, text) VALUES (?, ?, ?)`,
				q.ID, i, opt,
			); err != nil {
				return fmt.Errorf("insert option %d of question %d: %w", i, q.ID, err)
			}
		}
		for i, m := range q.Media {
			if _, err := tx.Exec(
				`INSERT INTO question_media (question_id, position, kind, src, caption) VALUES (?, ?, ?, ?, ?)`,
				q.ID, i, m.Kind, m.Src, m.Caption,
			); err != nil {
				return fmt.Errorf("insert media %d of question %d: %w", i, q.ID, err)
			}
		}
	}

	for pos, m := range c.Memories {
		if _, err := tx.Exec(
			`INSERT INTO memories (position, kind, src, caption) VALUES (?, ?, ?, ?)`,
			pos, m.Kind, m.Src, m.Caption,
		); err != nil {
			return fmt.Errorf("insert memory %s: %w", m.Src, err)
		}
	}

	if err := setPageInfo(tx, c); err != nil {
		return err
	}
	return tx.Commit()
}

// LoadContent reads the stored content back. Questions and memories keep the
// order they were stored in.
func (s *Store) LoadContent() (model.Content, error) {
	c, err := s.GetPageInfo()
	if err != nil {
		return c, fmt.Errorf("page info: %w", err)
	}
	if c.Questions, err = s.ListQuestions(); err != nil {
		return c, fmt.Errorf("list questions: %w", err)
	}
	if c.Memories, err = s.ListMemories(); err != nil {
		return c, fmt.Errorf("list memories: %w", err)
	}
	return c, nil
}

// ListQuestions returns all questions with their options and media.
func (s *Store) ListQuestions() ([]model.Question, error) {
	rows, err := s.db.Query(`SELECT id, prompt, correct_option, message FROM questions ORDER BY position`)
	if err != nil {
		return nil, err
	}
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.Prompt, &q.CorrectOption, &q.Message); err != nil {
			rows.Close()
			return nil, err
		}
		questions = append(questions, q)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range questions {
		if questions[i].Options, err = s.questionOptions(questions[i].ID); err != nil {
			return nil, err
		}
		if questions[i].Media, err = s.questionMedia(questions[i].ID); err != nil {
			return nil, err
		}
	}
	return questions, nil
}

// GetQuestion returns a question by ID.
func (s *Store) GetQuestion(id int) (model.Question, error) {
	var q model.Question
	err := s.db.QueryRow(
		`SELECT id, prompt, correct_option, message FROM questions WHERE id = ?`, id,
	).Scan(&q.ID, &q.Prompt, &q.CorrectOption, &q.Message)
	if err != nil {
		return q, err
	}
	if q.Options, err = s.questionOptions(id); err != nil {
		return q, err
	}
	q.Media, err = s.questionMedia(id)
	return q, err
}

func (s *Store) questionOptions(questionID int) ([]string, error) {
	rows, err := s.db.Query(`SELECT text FROM question_options WHERE question_id = ? ORDER BY position`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var options []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}
		options = append(options, text)
	}
	return options, rows.Err()
}

func (s *Store) questionMedia(questionID int) ([]model.Media, error) {
	rows, err := s.db.Query(
		`SELECT kind, src, caption FROM question_media WHERE question_id = ? ORDER BY position`, questionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var media []model.Media
	for rows.Next() {
		var m model.Media
		if err := rows.Scan(&m.Kind, &m.Src, &m.Caption); err != nil {
			return nil, err
		}
		media = append(media, m)
	}
	return media, rows.Err()
}

// ListMemories returns the final-page gallery.
func (s *Store) ListMemories() ([]model.Media, error) {
	rows, err := s.db.Query(`SELECT kind, src, caption FROM memories ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var memories []model.Media
	for rows.Next() {
		var m model.Media
		if err := rows.Scan(&m.Kind, &m.Src, &m.Caption); err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

// QuestionCount returns the number of questions in the database.
func (s *Store) QuestionCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM questions`).Scan(&count)
	return count, err
}

// GetImportedFileHash returns the hash recorded for path, or "" if the file
// was never imported.
func (s *Store) GetImportedFileHash(path string) (string, error) {
	var hash string
	err := s.db.QueryRow(`SELECT hash FROM imported_files WHERE path = ?`, path).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return hash, err
}

// SetImportedFileHash records the hash of an imported file.
func (s *Store) SetImportedFileHash(path, hash string) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO imported_files (path, hash, imported_at) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET hash = ?, imported_at = ?`,
		path, hash, now, hash, now,
	)
	return err
}

// ListImportedFiles returns every recorded import, oldest first.
func (s *Store) ListImportedFiles() ([]model.ImportedFile, error) {
	rows, err := s.db.Query(`SELECT path, hash, imported_at FROM imported_files ORDER BY imported_at, path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var files []model.ImportedFile
	for rows.Next() {
		var f model.ImportedFile
		if err := rows.Scan(&f.Path, &f.Hash, &f.ImportedAt); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
