package density

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"empty", "", 0},
		{"whitespace only", "  \n\t", 0},
		{"no signal", "hello how are you today", 0},
		{"one term in four words", "check your soil first", 1.5 / 4},
		{"one number in ten words", "wait for about 3 weeks before you apply it again", 2.0 / 10},
		{"decimal counts once", "use 0.5 percent spray on leaves now please thank you", 2.0 / 10},
		{"term case insensitive", "Check SOIL and Ph levels today", 3.0 / 6},
		{"capped at one", "50 kg N 25 kg P", 1},
		{"term needs word boundary", "soiled carpets everywhere here", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.text), 1e-9)
		})
	}
}

func TestScore_AlwaysInRange(t *testing.T) {
	inputs := []string{
		"",
		"1 2 3 4 5",
		strings.Repeat("word ", 500),
		strings.Repeat("kg ", 200),
		"நம்ம தென்னைக்கு 50 kg போடுங்க",
		"{}[]\"",
	}

	for _, in := range inputs {
		s := Score(in)
		assert.GreaterOrEqual(t, s, 0.0, "input %q", in)
		assert.LessOrEqual(t, s, 1.0, "input %q", in)
	}
}
