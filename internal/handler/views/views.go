// Package views renders the quiz pages.
package views

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"math"
	"time"

	"github.com/a-h/templ"

	"github.com/pavelanni/memorylane/internal/evasive"
	appI18n "github.com/pavelanni/memorylane/internal/i18n"
	"github.com/pavelanni/memorylane/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// Parsed once with placeholder funcs; each render binds the request context.
var pages = template.Must(template.New("pages").Funcs(funcs(context.Background())).ParseFS(templateFS, "templates/*.html"))

// Start is the data for the greeting screen.
type Start struct {
	Title    string
	Greeting string
	Intro    []string
}

// Quiz is the data for a question screen.
type Quiz struct {
	Title          string
	Subtitle       string
	Question       model.Question
	Phase          model.Phase
	Number         int
	Total          int
	CompletedCount int
	Progress       float64
	Selected       int // -1 when nothing is selected
	Correct        bool
	Terminal       bool
	EvasiveOption  int // -1 when no option is evasive
	Armed          bool
	Displacement   evasive.Vec
}

// Feedback reports whether the feedback panel is shown.
func (q Quiz) Feedback() bool { return q.Phase == model.PhaseFeedback }

// Loading is the data for the transition screen.
type Loading struct {
	Title    string
	Video    *model.Media
	Fallback time.Duration
}

// RefreshSeconds is when a browser without JavaScript reloads the page.
func (l Loading) RefreshSeconds() int {
	return int(math.Ceil(l.Fallback.Seconds())) + 1
}

// Final is the data for the closing screen.
type Final struct {
	Title    string
	Message  []string
	Memories []model.Media
}

func StartPage(d Start) templ.Component     { return render("start.html", d) }
func QuizPage(d Quiz) templ.Component       { return render("quiz.html", d) }
func LoadingPage(d Loading) templ.Component { return render("loading.html", d) }
func FinalPage(d Final) templ.Component     { return render("final.html", d) }

func render(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t, err := pages.Clone()
		if err != nil {
			return fmt.Errorf("clone templates: %w", err)
		}
		return t.Funcs(funcs(ctx)).ExecuteTemplate(w, name, data)
	})
}

func funcs(ctx context.Context) template.FuncMap {
	return template.FuncMap{
		"t": func(id string) string { return appI18n.T(ctx, id) },
		"td": func(id string, kv ...any) string {
			data := make(map[string]any, len(kv)/2)
			for i := 0; i+1 < len(kv); i += 2 {
				if k, ok := kv[i].(string); ok {
					data[k] = kv[i+1]
				}
			}
			return appI18n.Td(ctx, id, data)
		},
		"tp":   func(id string, n int) string { return appI18n.Tp(ctx, id, n) },
		"path": func(p string) string { return model.BasePathFromContext(ctx) + p },
		"csrf": func() string { return model.CSRFTokenFromContext(ctx) },
		"percent": func(f float64) string {
			return fmt.Sprintf("%.0f%%", math.Round(min(max(f, 0), 1)*100))
		},
		"px": func(f float64) string { return fmt.Sprintf("%.1fpx", f) },
	}
}
