package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/pavelanni/memorylane/internal/content"
	"github.com/pavelanni/memorylane/internal/handler/views"
	"github.com/pavelanni/memorylane/internal/model"
	"github.com/pavelanni/memorylane/internal/session"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	content  model.Content
	sessions *session.Manager
	config   model.QuizConfig
	upgrader websocket.Upgrader
}

// New creates a new Handler.
func New(c model.Content, sessions *session.Manager, cfg model.QuizConfig) (*Handler, error) {
	if err := content.Validate(c); err != nil {
		return nil, fmt.Errorf("content: %w", err)
	}
	return &Handler{
		content:  c,
		sessions: sessions,
		config:   cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Get("/quiz/state", h.handleState)
	r.Get("/quiz/ws", h.handlePointerWS)
	if h.config.MediaDir != "" {
		media := http.StripPrefix(h.path("/media/"), http.FileServer(http.Dir(h.config.MediaDir)))
		r.Handle("/media/*", media)
	}

	r.Group(func(r chi.Router) {
		r.Use(h.csrfMiddleware)
		r.Get("/", h.handleIndex)
		r.Post("/start", h.handleStart)
		r.Get("/quiz", h.handleQuiz)
		r.Post("/quiz/answer", h.handleAnswer)
		r.Post("/quiz/retry", h.handleRetry)
		r.Post("/quiz/next", h.handleNext)
		r.Post("/quiz/loaded", h.handleLoaded)
	})
}

// BasePathMiddleware makes the configured base path available to views.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

// AssetURL joins a base path and a relative asset reference. References
// with a scheme are returned unchanged.
func AssetURL(basePath, ref string) string {
	if strings.Contains(ref, "://") || strings.HasPrefix(ref, "data:") {
		return ref
	}
	if !strings.HasSuffix(basePath, "/") {
		basePath += "/"
	}
	return basePath + strings.TrimPrefix(ref, "/")
}

func (h *Handler) asset(m model.Media) model.Media {
	m.Src = AssetURL(h.path("/media"), m.Src)
	return m
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if sess, err := h.currentSession(r); err == nil && sess.Snapshot().Phase != model.PhaseNotStarted {
		http.Redirect(w, r, h.path("/quiz"), http.StatusSeeOther)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := views.Start{Title: h.content.Title, Greeting: h.content.Greeting, Intro: h.content.Intro}
	if err := views.StartPage(page).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	sess, err := h.currentSession(r)
	switch {
	case err == nil && sess.Snapshot().Phase != model.PhaseFinal:
		// Resume: Start is a no-op once the quiz is under way.
	case err == nil || errors.Is(err, session.ErrNotFound):
		sess, err = h.sessions.Create(r.Context())
		if err != nil {
			slog.Error("failed to create session", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		h.setSessionCookie(w, sess.ID)
	default:
		slog.Error("failed to load session", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	sess.Start()
	http.Redirect(w, r, h.path("/quiz"), http.StatusSeeOther)
}

func (h *Handler) handleQuiz(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	v := sess.View()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	var err error
	switch v.State.Phase {
	case model.PhaseAnswering, model.PhaseFeedback:
		err = views.QuizPage(h.quizView(v)).Render(r.Context(), w)
	case model.PhaseLoading:
		page := views.Loading{Title: h.content.Title, Fallback: h.config.LoadingFallback}
		if h.content.LoadingVideo != nil {
			video := h.asset(*h.content.LoadingVideo)
			page.Video = &video
		}
		err = views.LoadingPage(page).Render(r.Context(), w)
	case model.PhaseFinal:
		page := views.Final{Title: h.content.Title, Message: h.content.FinalMessage}
		for _, m := range h.content.Memories {
			page.Memories = append(page.Memories, h.asset(m))
		}
		err = views.FinalPage(page).Render(r.Context(), w)
	default:
		http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
		return
	}
	if err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) quizView(v session.View) views.Quiz {
	q := v.Question
	media := make([]model.Media, 0, len(q.Media))
	for _, m := range q.Media {
		media = append(media, h.asset(m))
	}
	q.Media = media

	selected := -1
	if v.State.Selected != nil {
		selected = *v.State.Selected
	}
	return views.Quiz{
		Title:          h.content.Title,
		Subtitle:       h.content.Subtitle,
		Question:       q,
		Phase:          v.State.Phase,
		Number:         v.State.QuestionIndex + 1,
		Total:          v.Total,
		CompletedCount: v.CompletedCount,
		Progress:       v.Progress,
		Selected:       selected,
		Correct:        v.State.Correct,
		Terminal:       v.Terminal,
		EvasiveOption:  v.EvasiveOption,
		Armed:          v.Armed,
		Displacement:   v.Displacement,
	}
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	option, err := strconv.Atoi(r.FormValue("option"))
	if err != nil {
		http.Error(w, "invalid option", http.StatusBadRequest)
		return
	}
	sess, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	sess.Select(option)
	http.Redirect(w, r, h.path("/quiz"), http.StatusSeeOther)
}

func (h *Handler) handleRetry(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	sess.Retry()
	http.Redirect(w, r, h.path("/quiz"), http.StatusSeeOther)
}

func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	sess.Advance()
	http.Redirect(w, r, h.path("/quiz"), http.StatusSeeOther)
}

func (h *Handler) handleLoaded(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	sess.MediaFinished()
	if r.Header.Get("Accept") == "application/json" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, h.path("/quiz"), http.StatusSeeOther)
}

type stateResponse struct {
	Phase          model.Phase `json:"phase"`
	QuestionIndex  int         `json:"question_index"`
	Total          int         `json:"total"`
	CompletedCount int         `json:"completed_count"`
	Progress       float64     `json:"progress"`
	Armed          bool        `json:"armed"`
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	sess, err := h.currentSession(r)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	v := sess.View()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stateResponse{
		Phase:          v.State.Phase,
		QuestionIndex:  v.State.QuestionIndex,
		Total:          v.Total,
		CompletedCount: v.CompletedCount,
		Progress:       v.Progress,
		Armed:          v.Armed,
	}); err != nil {
		slog.Error("encode state", "error", err)
	}
}
