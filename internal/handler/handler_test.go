package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/pavelanni/memorylane/internal/evasive"
	appI18n "github.com/pavelanni/memorylane/internal/i18n"
	"github.com/pavelanni/memorylane/internal/model"
	"github.com/pavelanni/memorylane/internal/session"
)

func testContent() model.Content {
	return model.Content{
		Title:         "Are you really you?",
		Subtitle:      "Let's verify",
		Greeting:      "Hey you!",
		Intro:         []string{"A little quiz."},
		FinalMessage:  []string{"Happy Valentine's Day!", "You passed."},
		EvasiveOption: 1,
		Questions: []model.Question{
			{ID: 1, Prompt: "Hottest place?", Options: []string{"Chengdu", "Japan", "USA"}, CorrectOption: 0, Message: "Scorching!"},
			{ID: 2, Prompt: "Bestest bf?", Options: []string{"Binsy", "Someone else"}, CorrectOption: 0},
		},
		Memories: []model.Media{
			{Kind: model.MediaImage, Src: "images/house.jpg", Caption: "Our home"},
			{Kind: model.MediaVideo, Src: "videos/snow.mp4", Caption: "Snowy Central Park"},
		},
	}
}

type testServer struct {
	*httptest.Server
	client   *http.Client
	sessions *session.Manager
	basePath string
}

func newTestServer(t *testing.T, basePath string) *testServer {
	t.Helper()
	if err := appI18n.Init("en"); err != nil {
		t.Fatalf("init i18n: %v", err)
	}

	c := testContent()
	m := session.NewManager(c.Questions, session.Options{
		LoadingFallback: time.Hour,
		Evasive:         evasive.DefaultParams(),
		EvasiveOption:   c.EvasiveOption,
	}, nil, time.Hour)
	t.Cleanup(m.Close)

	h, err := New(c, m, model.QuizConfig{BasePath: basePath, LoadingFallback: time.Hour})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	r := chi.NewRouter()
	r.Use(appI18n.Middleware("en"))
	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &testServer{Server: srv, client: &http.Client{Jar: jar}, sessions: m, basePath: basePath}
}

func (s *testServer) url(p string) string { return s.URL + s.basePath + p }

func (s *testServer) cookie(t *testing.T, name string) string {
	t.Helper()
	u, _ := url.Parse(s.url("/"))
	for _, c := range s.client.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func (s *testServer) get(t *testing.T, p string) (int, string) {
	t.Helper()
	resp, err := s.client.Get(s.url(p))
	if err != nil {
		t.Fatalf("GET %s: %v", p, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func (s *testServer) post(t *testing.T, p string, form url.Values) (int, string) {
	t.Helper()
	if form == nil {
		form = url.Values{}
	}
	form.Set("csrf_token", s.cookie(t, csrfCookieName))
	resp, err := s.client.PostForm(s.url(p), form)
	if err != nil {
		t.Fatalf("POST %s: %v", p, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func (s *testServer) answer(t *testing.T, option string) string {
	t.Helper()
	code, body := s.post(t, "/quiz/answer", url.Values{"option": {option}})
	if code != http.StatusOK {
		t.Fatalf("answer %s: status %d", option, code)
	}
	return body
}

func mustContain(t *testing.T, body string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(body, w) {
			t.Errorf("body does not contain %q", w)
		}
	}
}

func TestIndexRendersStart(t *testing.T) {
	s := newTestServer(t, "")
	code, body := s.get(t, "/")
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	mustContain(t, body, "Hey you!", "A little quiz.", `action="/start"`, "csrf_token")
}

func TestFullQuizFlow(t *testing.T) {
	s := newTestServer(t, "")
	s.get(t, "/")

	code, body := s.post(t, "/start", nil)
	if code != http.StatusOK {
		t.Fatalf("start: status %d", code)
	}
	mustContain(t, body, "Hottest place?", "Question 1 of 2", "0 correct")

	body = s.answer(t, "2")
	mustContain(t, body, "not quite right", "Try again", "/quiz/retry")

	// A second selection while feedback is shown changes nothing.
	body = s.answer(t, "0")
	mustContain(t, body, "not quite right")

	_, body = s.post(t, "/quiz/retry", nil)
	mustContain(t, body, "Hottest place?")
	if strings.Contains(body, "not quite right") {
		t.Error("retry should clear the feedback")
	}

	body = s.answer(t, "0")
	mustContain(t, body, "Scorching!", "Next question", `style="width: 50%"`)

	_, body = s.post(t, "/quiz/next", nil)
	mustContain(t, body, "Bestest bf?", "Question 2 of 2", "1 correct", "data-evasive")
	// The rest center is read from the untransformed box and the evasive
	// option does not animate, so the reported center stays put.
	mustContain(t, body, ".option[data-evasive] { transition: none; }", `el.style.transform = "none"`, "center: restCenter()")

	body = s.answer(t, "0")
	mustContain(t, body, "Correct! You know me so well!", "See my surprise!")

	_, body = s.post(t, "/quiz/next", nil)
	mustContain(t, body, "I knew you were her!", "/quiz/loaded")
	// A video that cannot play ends loading like one that finished.
	mustContain(t, body, `addEventListener("ended", loaded)`, `addEventListener("error", loaded)`)

	_, body = s.post(t, "/quiz/loaded", nil)
	mustContain(t, body, "Happy Valentine&#39;s Day!", "Our home", `src="/media/images/house.jpg"`, "<video")
}

func TestStateEndpoint(t *testing.T) {
	s := newTestServer(t, "")

	resp, err := s.client.Get(s.url("/quiz/state"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("without a session: status %d, want 404", resp.StatusCode)
	}

	s.get(t, "/")
	s.post(t, "/start", nil)
	s.answer(t, "0")

	resp, err = s.client.Get(s.url("/quiz/state"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var st stateResponse
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Phase != model.PhaseFeedback || st.Total != 2 || st.Progress != 0.5 {
		t.Errorf("unexpected state: %+v", st)
	}
}

func TestCSRFRequired(t *testing.T) {
	s := newTestServer(t, "")
	s.get(t, "/")

	resp, err := s.client.PostForm(s.url("/start"), url.Values{})
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("missing token: status %d, want 403", resp.StatusCode)
	}

	resp, err = s.client.PostForm(s.url("/start"), url.Values{"csrf_token": {"forged"}})
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("wrong token: status %d, want 403", resp.StatusCode)
	}
}

func TestQuizWithoutSessionRedirects(t *testing.T) {
	s := newTestServer(t, "")
	s.client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	resp, err := s.client.Get(s.url("/quiz"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/" {
		t.Errorf("got %d to %q, want 303 to /", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestIndexResumesStartedSession(t *testing.T) {
	s := newTestServer(t, "")
	s.get(t, "/")
	s.post(t, "/start", nil)
	id := s.cookie(t, sessionCookieName)

	_, body := s.get(t, "/")
	mustContain(t, body, "Hottest place?")
	s.post(t, "/start", nil)
	if got := s.cookie(t, sessionCookieName); got != id {
		t.Errorf("start during a quiz should keep the session, got %q want %q", got, id)
	}
}

func TestInvalidOption(t *testing.T) {
	s := newTestServer(t, "")
	s.get(t, "/")
	s.post(t, "/start", nil)

	code, _ := s.post(t, "/quiz/answer", url.Values{"option": {"abc"}})
	if code != http.StatusBadRequest {
		t.Errorf("status %d, want 400", code)
	}
	// Out of range is ignored, not an error.
	body := s.answer(t, "9")
	if strings.Contains(body, "Try again") {
		t.Error("out-of-range option should not produce feedback")
	}
}

func TestBasePath(t *testing.T) {
	s := newTestServer(t, "/valentines")
	_, body := s.get(t, "/")
	mustContain(t, body, `action="/valentines/start"`)

	_, body = s.post(t, "/start", nil)
	mustContain(t, body, `action="/valentines/quiz/answer"`)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, "")
	code, body := s.get(t, "/healthz")
	if code != http.StatusOK || body != "ok" {
		t.Errorf("got %d %q", code, body)
	}
}

func TestAssetURL(t *testing.T) {
	tests := []struct {
		base, ref, want string
	}{
		{"", "images/a.jpg", "/images/a.jpg"},
		{"", "/images/a.jpg", "/images/a.jpg"},
		{"/valentines26", "videos/x.mp4", "/valentines26/videos/x.mp4"},
		{"/valentines26/", "/videos/x.mp4", "/valentines26/videos/x.mp4"},
		{"/media", "https://cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
	}
	for _, tt := range tests {
		if got := AssetURL(tt.base, tt.ref); got != tt.want {
			t.Errorf("AssetURL(%q, %q) = %q, want %q", tt.base, tt.ref, got, tt.want)
		}
	}
}

func dialPointer(t *testing.T, s *testServer) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(s.url("/quiz/ws"), "http")
	header := http.Header{"Cookie": {sessionCookieName + "=" + s.cookie(t, sessionCookieName)}}
	conn, _, err := websocket.DefaultDialer.Dial(u, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendPointer(t *testing.T, conn *websocket.Conn, pointer, center evasive.Vec) (string, displacementPayload) {
	t.Helper()
	msg := map[string]any{
		"type":    "pointer",
		"payload": map[string]any{"pointer": pointer, "center": center},
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}
	var out outboundMessage[displacementPayload]
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&out); err != nil {
		t.Fatalf("read: %v", err)
	}
	return out.Type, out.Payload
}

func TestPointerWebSocket(t *testing.T) {
	s := newTestServer(t, "")
	s.get(t, "/")
	s.post(t, "/start", nil)
	conn := dialPointer(t, s)

	center := evasive.Vec{X: 400, Y: 300}
	typ, d := sendPointer(t, conn, evasive.Vec{X: 420, Y: 300}, center)
	if typ != "displacement" || d.Armed || d.X != 0 || d.Y != 0 {
		t.Fatalf("first question: got %s %+v, want an unarmed rest position", typ, d)
	}

	s.answer(t, "0")
	s.post(t, "/quiz/next", nil)

	typ, d = sendPointer(t, conn, evasive.Vec{X: 420, Y: 300}, center)
	if typ != "displacement" || !d.Armed || d.X >= 0 {
		t.Fatalf("terminal question: got %s %+v, want a push to the left", typ, d)
	}

	// Clicking the fleeing option still selects it.
	body := s.answer(t, "1")
	mustContain(t, body, "not quite right")

	_, d = sendPointer(t, conn, evasive.Vec{X: 401, Y: 300}, center)
	if d.Armed || d.X != 0 || d.Y != 0 {
		t.Errorf("after selection: got %+v, want inert at rest", d)
	}
}

func TestPointerWebSocketBadMessage(t *testing.T) {
	s := newTestServer(t, "")
	s.get(t, "/")
	s.post(t, "/start", nil)
	conn := dialPointer(t, s)

	if err := conn.WriteJSON(map[string]any{"type": "dance"}); err != nil {
		t.Fatal(err)
	}
	var out outboundMessage[errorPayload]
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&out); err != nil {
		t.Fatalf("read: %v", err)
	}
	if out.Type != "error" || out.Payload.Message == "" {
		t.Errorf("got %+v, want an error message", out)
	}
}

func TestPointerWebSocketNeedsSession(t *testing.T) {
	s := newTestServer(t, "")
	u := "ws" + strings.TrimPrefix(s.url("/quiz/ws"), "http")
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatal("expected dial to fail without a session")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %v", resp)
	}
}
