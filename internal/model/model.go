package model

import (
	"context"
	"time"
)

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}

// Phase is the current stage of a quiz session.
type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseAnswering  Phase = "answering"
	PhaseFeedback   Phase = "feedback"
	PhaseLoading    Phase = "loading"
	PhaseFinal      Phase = "final"
)

// MediaKind tells the presentation layer how to render a media reference.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// Media is an image or video reference. Src is relative and passed through unchanged.
type Media struct {
	Kind    MediaKind `json:"kind" yaml:"kind"`
	Src     string    `json:"src" yaml:"src"`
	Caption string    `json:"caption,omitempty" yaml:"caption,omitempty"`
}

// Question is one multiple-choice question. It is never mutated after load.
type Question struct {
	ID            int      `json:"id" yaml:"id"`
	Prompt        string   `json:"prompt" yaml:"prompt"`
	Options       []string `json:"options" yaml:"options"`
	CorrectOption int      `json:"correct_option" yaml:"correct_option"`
	Message       string   `json:"message,omitempty" yaml:"message,omitempty"`
	Media         []Media  `json:"media,omitempty" yaml:"media,omitempty"`
}

// FeedbackOr returns the question's feedback message, or def when none is set.
func (q Question) FeedbackOr(def string) string {
	if q.Message == "" {
		return def
	}
	return q.Message
}

// Content is everything the page shows, loaded once at startup.
type Content struct {
	Title         string     `json:"title" yaml:"title"`
	Subtitle      string     `json:"subtitle" yaml:"subtitle"`
	Greeting      string     `json:"greeting" yaml:"greeting"`
	Intro         []string   `json:"intro,omitempty" yaml:"intro,omitempty"`
	LoadingVideo  *Media     `json:"loading_video,omitempty" yaml:"loading_video,omitempty"`
	FinalMessage  []string   `json:"final_message,omitempty" yaml:"final_message,omitempty"`
	EvasiveOption int        `json:"evasive_option" yaml:"evasive_option"`
	Questions     []Question `json:"questions" yaml:"questions"`
	Memories      []Media    `json:"memories,omitempty" yaml:"memories,omitempty"`
}

// SessionState is a snapshot of a quiz session's progress.
type SessionState struct {
	Phase         Phase `json:"phase"`
	QuestionIndex int   `json:"question_index"`
	Selected      *int  `json:"selected,omitempty"`
	Correct       bool  `json:"correct"`
	Completed     []int `json:"completed"`
}

// QuizConfig holds runtime parameters set via CLI flags.
type QuizConfig struct {
	BasePath        string        // URL prefix for sub-path deployments (e.g. "/valentines")
	SecureCookies   bool          // Set Secure flag on cookies (disable for local dev)
	MediaDir        string        // directory served under /media/; empty disables it
	LoadingMin      time.Duration // minimum time the loading screen stays up
	LoadingFallback time.Duration // loading resolves after this even without a media signal
	SessionTTL      time.Duration // idle sessions are dropped after this
}
