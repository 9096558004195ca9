package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pavelanni/memorylane/internal/model"
)

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// SetMetadata upserts a key-value pair in the content_metadata table.
func (s *Store) SetMetadata(key, value string) error {
	return setMetadata(s.db, key, value)
}

func setMetadata(db execer, key, value string) error {
	_, err := db.Exec(
		`INSERT INTO content_metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`,
		key, value, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM content_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// setPageInfo stores the page copy of c as metadata rows. List and media
// values are JSON encoded.
func setPageInfo(db execer, c model.Content) error {
	intro, err := json.Marshal(c.Intro)
	if err != nil {
		return err
	}
	final, err := json.Marshal(c.FinalMessage)
	if err != nil {
		return err
	}
	var video []byte
	if c.LoadingVideo != nil {
		if video, err = json.Marshal(c.LoadingVideo); err != nil {
			return err
		}
	}

	pairs := []struct{ k, v string }{
		{"title", c.Title},
		{"subtitle", c.Subtitle},
		{"greeting", c.Greeting},
		{"intro", string(intro)},
		{"final_message", string(final)},
		{"loading_video", string(video)},
		{"evasive_option", strconv.Itoa(c.EvasiveOption)},
		{"num_questions", strconv.Itoa(len(c.Questions))},
	}
	for _, p := range pairs {
		if err := setMetadata(db, p.k, p.v); err != nil {
			return fmt.Errorf("set %s: %w", p.k, err)
		}
	}
	return nil
}

// GetPageInfo reads the page copy without questions or memories.
func (s *Store) GetPageInfo() (model.Content, error) {
	var c model.Content
	var err error

	if c.Title, err = s.GetMetadata("title"); err != nil {
		return c, err
	}
	if c.Subtitle, err = s.GetMetadata("subtitle"); err != nil {
		return c, err
	}
	if c.Greeting, err = s.GetMetadata("greeting"); err != nil {
		return c, err
	}
	if err := s.getJSON("intro", &c.Intro); err != nil {
		return c, err
	}
	if err := s.getJSON("final_message", &c.FinalMessage); err != nil {
		return c, err
	}
	if err := s.getJSON("loading_video", &c.LoadingVideo); err != nil {
		return c, err
	}
	eo, err := s.GetMetadata("evasive_option")
	if err != nil {
		return c, err
	}
	if eo != "" {
		if c.EvasiveOption, err = strconv.Atoi(eo); err != nil {
			return c, fmt.Errorf("evasive_option: %w", err)
		}
	}
	return c, nil
}

func (s *Store) getJSON(key string, v any) error {
	raw, err := s.GetMetadata(key)
	if err != nil || raw == "" {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}
