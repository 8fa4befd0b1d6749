package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return WithLocalizer(context.Background(), NewLocalizer(lang))
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "FileAnswerKey")
	if got != "answer key" {
		t.Errorf("T(FileAnswerKey) = %q, want 'answer key'", got)
	}
}

func TestTranslateVietnamese(t *testing.T) {
	ctx := initLang(t, "vi")

	got := T(ctx, "FileAnswerKey")
	if got != "đáp án" {
		t.Errorf("T(FileAnswerKey) = %q, want 'đáp án'", got)
	}

	got = Td(ctx, "DuplicateStudentCodes", map[string]any{"Items": "b01, b02"})
	if got != "Mã số sinh viên bị trùng: b01, b02" {
		t.Errorf("Td(DuplicateStudentCodes) = %q", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	if got := Tp(ctx, "ResultsStored", 1); got != "1 result stored" {
		t.Errorf("Tp(ResultsStored, 1) = %q", got)
	}
	if got := Tp(ctx, "ResultsStored", 5); got != "5 results stored" {
		t.Errorf("Tp(ResultsStored, 5) = %q", got)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "AnswerKeyForeignCourse", map[string]any{"Course": "math101", "Items": "phy1001001d"})
	want := "The answer key contains questions that do not belong to course math101: phy1001001d"
	if got != want {
		t.Errorf("Td(AnswerKeyForeignCourse) = %q, want %q", got, want)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestUnsupportedLanguageFallsBack(t *testing.T) {
	ctx := initLang(t, "fr")
	if got := T(ctx, "FileChapters"); got != "chapter map" {
		t.Errorf("T(FileChapters) = %q, want English fallback", got)
	}
}

func TestLanguages(t *testing.T) {
	initLang(t, "en")
	langs := Languages()
	if !slices.Contains(langs, "en") || !slices.Contains(langs, "vi") {
		t.Errorf("Languages() = %v", langs)
	}
}

func TestMiddleware(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	var got string
	h := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = T(r.Context(), "FileResponses")
	}))

	tests := []struct {
		name   string
		url    string
		accept string
		want   string
	}{
		{"default", "/", "", "student responses"},
		{"accept-language", "/", "vi-VN,vi;q=0.9,en;q=0.8", "bài làm sinh viên"},
		{"query wins", "/?lang=en", "vi", "student responses"},
		{"unsupported", "/", "de", "student responses"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
