package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	return WithLocalizer(context.Background(), NewLocalizer(lang))
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	tests := map[string]string{
		"FeedbackCorrect": "Correct! You know me so well!",
		"FeedbackWrong":   "Hmm, that's not quite right... Try again!",
		"NextQuestion":    "Next question →",
		"SeeSurprise":     "See my surprise! 🎁",
		"TryAgain":        "Try again 💭",
	}
	for id, want := range tests {
		if got := T(ctx, id); got != want {
			t.Errorf("T(%s) = %q, want %q", id, got, want)
		}
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	if got := Tp(ctx, "MemoriesCount", 1); got != "1 memory" {
		t.Errorf("Tp(MemoriesCount, 1) = %q, want '1 memory'", got)
	}
	if got := Tp(ctx, "MemoriesCount", 17); got != "17 memories" {
		t.Errorf("Tp(MemoriesCount, 17) = %q, want '17 memories'", got)
	}
	if got := Tp(ctx, "CorrectCount", 0); got != "0 correct" {
		t.Errorf("Tp(CorrectCount, 0) = %q, want '0 correct'", got)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "QuestionOf", map[string]any{"Current": 3, "Total": 7})
	if got != "Question 3 of 7" {
		t.Errorf("Td(QuestionOf) = %q, want 'Question 3 of 7'", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "NonExistentKey"); got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestContextWithoutLocalizer(t *testing.T) {
	initLang(t, "en")

	if got := T(context.Background(), "TryAgain"); got != "Try again 💭" {
		t.Errorf("fallback localizer: got %q", got)
	}
}

func TestMiddlewareFallsBack(t *testing.T) {
	initLang(t, "en")

	var got string
	h := Middleware("en")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = T(r.Context(), "TryAgain")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got != "Try again 💭" {
		t.Errorf("expected English fallback, got %q", got)
	}
}
