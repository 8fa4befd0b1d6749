package ingest

import (
	"errors"
	"testing"

	"github.com/learngauge/learngauge/internal/model"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		in         string
		course     string
		version    string
		sequence   string
		difficulty model.Difficulty
	}{
		{"MATH101101001d", "math101", "101", "001", model.DifficultyEasy},
		{"phy2002017t", "phy2", "002", "017", model.DifficultyMedium},
		{" CS1003040K ", "cs1", "003", "040", model.DifficultyHard},
		{"001002k", "", "001", "002", model.DifficultyHard},
		{"TOA\u0301N1001001d", "to\u00e1n1", "001", "001", model.DifficultyEasy},
		{"x\u00e9\u00e9\u00e9001t", "x", "\u00e9\u00e9\u00e9", "001", model.DifficultyMedium},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Decode(tt.in)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got.CourseCode != tt.course || got.Version != tt.version || got.Sequence != tt.sequence || got.Difficulty != tt.difficulty {
				t.Errorf("Decode(%q) = %+v", tt.in, got)
			}
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, in := range []string{"", "101001", "MATH101101001x", "MATH1011010012"} {
		_, err := Decode(in)
		var mce *MalformedCodeError
		if !errors.As(err, &mce) {
			t.Errorf("Decode(%q): expected MalformedCodeError, got %v", in, err)
		}
	}
}
