package tui

import (
	"math"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pavelanni/memorylane/internal/evasive"
	"github.com/pavelanni/memorylane/internal/model"
)

const (
	colorAccent = lipgloss.Color("205")
	colorMuted  = lipgloss.Color("244")
	colorGood   = lipgloss.Color("42")
	colorBad    = lipgloss.Color("203")
	colorTitle  = lipgloss.Color("212")

	optionsLeft = 2
	footerLines = 4
)

// style returns a foreground style, or a plain one when color is off.
func style(noColor bool, color lipgloss.Color) lipgloss.Style {
	if noColor {
		return lipgloss.NewStyle()
	}
	return lipgloss.NewStyle().Foreground(color)
}

func (m Model) stylize(text string, color lipgloss.Color) string {
	return style(m.opts.NoColor, color).Render(text)
}

// View renders the screen for the current phase.
func (m Model) View() string {
	switch m.game.ctrl.Phase() {
	case model.PhaseAnswering, model.PhaseFeedback:
		return m.quizView()
	case model.PhaseLoading:
		return m.loadingView()
	case model.PhaseFinal:
		return m.finalView()
	default:
		return m.startView()
	}
}

func (m Model) startView() string {
	lines := []string{m.stylize(m.content.Greeting, colorTitle), ""}
	lines = append(lines, m.content.Intro...)
	lines = append(lines, "",
		m.stylize("[ "+m.t("StartButton")+" ]", colorAccent)+"  (enter)",
		"",
		m.stylize(m.t("StartFooter"), colorMuted),
	)
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) header() string {
	ctrl := m.game.ctrl
	q, _ := ctrl.Current()
	status := m.td("QuestionOf", map[string]any{"Current": ctrl.QuestionIndex() + 1, "Total": ctrl.Total()}) +
		" · " + m.tp("CorrectCount", ctrl.CompletedCount())
	return lipgloss.JoinVertical(lipgloss.Left,
		m.stylize(m.content.Title, colorTitle),
		m.stylize(m.content.Subtitle, colorMuted),
		"",
		status,
		m.progress.ViewAs(ctrl.Progress()),
		"",
		q.Prompt,
		"",
	)
}

func (m Model) quizView() string {
	ctrl := m.game.ctrl
	header := m.header()
	top := lipgloss.Height(header)

	rows := make([]string, m.areaHeight())
	cursor := make([]int, len(rows))
	boxes := m.drawnBoxes()
	slices.SortStableFunc(boxes, func(a, b box) int { return a.x - b.x })
	for _, b := range boxes {
		r := b.y - top
		if r < 0 || r >= len(rows) {
			continue
		}
		x := max(b.x, cursor[r])
		rows[r] += strings.Repeat(" ", x-cursor[r]) + m.renderOption(b)
		cursor[r] = x + b.w
	}

	out := []string{header, strings.Join(rows, "\n"), ""}
	if ctrl.Phase() == model.PhaseFeedback {
		q, _ := ctrl.Current()
		if ctrl.Correct() {
			out = append(out, m.stylize("✨ "+q.FeedbackOr(m.t("FeedbackCorrect"))+" 💕", colorGood))
			for _, md := range q.Media {
				out = append(out, m.stylize(mediaLine(md), colorMuted))
			}
			next := m.t("NextQuestion")
			if ctrl.IsTerminal() {
				next = m.t("SeeSurprise")
			}
			out = append(out, "", m.stylize("[ "+next+" ]", colorAccent)+"  (enter)")
		} else {
			out = append(out,
				m.stylize("🤔 "+m.t("FeedbackWrong"), colorBad),
				"",
				m.stylize("[ "+m.t("TryAgain")+" ]", colorAccent)+"  (enter)",
			)
		}
		out = append(out, "")
	}
	out = append(out, m.stylize(m.t("PlayHelp"), colorMuted))
	return lipgloss.JoinVertical(lipgloss.Left, out...)
}

func (m Model) renderOption(b box) string {
	ctrl := m.game.ctrl
	selected, ok := ctrl.Selected()
	color := lipgloss.Color("")
	switch {
	case ok && b.option == selected && ctrl.Correct():
		color = colorGood
	case ok && b.option == selected:
		color = colorBad
	case m.game.widget != nil && m.game.widget.Armed() && b.option == m.game.widget.Option:
		color = colorAccent
	}
	if color == "" {
		return b.label
	}
	return m.stylize(b.label, color)
}

func (m Model) loadingView() string {
	var frac float64
	if started := m.game.loading.started; !started.IsZero() {
		frac = min(float64(m.now.Sub(started))/float64(m.opts.LoadingTime), 0.95)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.spinner.View()+" "+m.stylize(m.t("LoadingPlaceholder"), colorMuted),
		"",
		m.stylize(m.t("LoadingTitle"), colorTitle),
		m.t("LoadingSubtitle"),
		"",
		m.progress.ViewAs(max(frac, 0)),
	)
}

func (m Model) finalView() string {
	var lines []string
	for i, p := range m.content.FinalMessage {
		if i == 0 {
			p = m.stylize(p, colorTitle)
		}
		lines = append(lines, p)
	}
	if len(m.content.Memories) > 0 {
		lines = append(lines, "",
			m.stylize(m.t("MemoriesTitle"), colorAccent),
			m.stylize(m.tp("MemoriesCount", len(m.content.Memories)), colorMuted),
		)
		for _, md := range m.content.Memories {
			lines = append(lines, mediaLine(md))
		}
	}
	lines = append(lines, "",
		m.stylize(m.t("FinalFooter"), colorMuted),
		m.stylize(m.t("PlayRestart")+" · q", colorMuted),
	)
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func mediaLine(md model.Media) string {
	icon := "🖼 "
	if md.Kind == model.MediaVideo {
		icon = "🎬 "
	}
	if md.Caption == "" {
		return "  " + icon + md.Src
	}
	return "  " + icon + md.Caption + " (" + md.Src + ")"
}

// box is an option button's cell rectangle, one row high.
type box struct {
	option int
	label  string
	x, y   int
	w      int
}

func (b box) contains(x, y int) bool {
	return y == b.y && x >= b.x && x < b.x+b.w
}

// center is the box's midpoint in the widget's plane.
func (b box) center() evasive.Vec {
	return evasive.Vec{X: float64(b.x) + float64(b.w)/2, Y: float64(b.y) * 2}
}

// restBoxes lays the options out one per row with a blank row between.
func (m Model) restBoxes() []box {
	q, ok := m.game.ctrl.Current()
	if !ok {
		return nil
	}
	top := lipgloss.Height(m.header())
	boxes := make([]box, len(q.Options))
	for i, opt := range q.Options {
		label := "[" + string(rune('1'+i)) + "] " + opt
		boxes[i] = box{option: i, label: label, x: optionsLeft, y: top + 2*i, w: lipgloss.Width(label)}
	}
	return boxes
}

// drawnBoxes is restBoxes with the evasive option moved by its displacement
// and kept inside the options area. The evasive box, if any, comes last.
func (m Model) drawnBoxes() []box {
	boxes := m.restBoxes()
	w := m.game.widget
	if w == nil || !m.game.ctrl.IsTerminal() || w.Option >= len(boxes) {
		return boxes
	}

	b := boxes[w.Option]
	boxes = slices.Delete(boxes, w.Option, w.Option+1)
	d := w.Displacement()
	top := lipgloss.Height(m.header())
	width := m.width
	if width <= 0 {
		width = 80
	}
	b.x = clampInt(b.x+int(math.Round(d.X)), 0, max(width-b.w, 0))
	b.y = clampInt(b.y+int(math.Round(d.Y/2)), top, top+m.areaHeight()-1)
	return append(boxes, b)
}

// areaHeight is the number of rows for the options. An armed evasive option
// gets the rest of the window to run around in.
func (m Model) areaHeight() int {
	q, _ := m.game.ctrl.Current()
	h := max(2*len(q.Options)-1, 1)
	if w := m.game.widget; w != nil && w.Armed() && m.height > 0 {
		h = max(h, m.height-lipgloss.Height(m.header())-footerLines)
	}
	return h
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
