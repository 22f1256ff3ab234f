package evaluator

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/bullscows/internal/model"
)

func TestEvaluateMixedResult(t *testing.T) {
	r, err := Evaluate("1234", "1342", 4)
	require.NoError(t, err)
	assert.Equal(t, Result{Bulls: 1, Cows: 3, Misses: 0}, r)
	assert.False(t, r.IsWin(4))
}

func TestEvaluateWin(t *testing.T) {
	r, err := Evaluate("507", "507", 3)
	require.NoError(t, err)
	assert.Equal(t, Result{Bulls: 3}, r)
	assert.True(t, r.IsWin(3))
}

func TestEvaluateAllMisses(t *testing.T) {
	r, err := Evaluate("1234", "5678", 4)
	require.NoError(t, err)
	assert.Equal(t, Result{Misses: 4}, r)
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		digitCount int
		want       error
	}{
		{"too short", "123", 4, model.ErrInvalidLength},
		{"too long", "12345", 4, model.ErrInvalidLength},
		{"empty", "", 3, model.ErrInvalidLength},
		{"letter", "12a4", 4, model.ErrNonDigit},
		{"sign", "-12", 3, model.ErrNonDigit},
		{"repeat", "1123", 4, model.ErrRepeatedDigit},
		{"leading zero ok", "012", 3, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.input, tt.digitCount)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEvaluateRejectsInvalidGuess(t *testing.T) {
	_, err := Evaluate("1234", "1224", 4)
	assert.ErrorIs(t, err, model.ErrRepeatedDigit)
}

// permutations returns every string of n distinct digits
func permutations(n int) []string {
	var out []string
	var walk func(prefix string, used [10]bool)
	walk = func(prefix string, used [10]bool) {
		if len(prefix) == n {
			out = append(out, prefix)
			return
		}
		for d := 0; d < 10; d++ {
			if used[d] {
				continue
			}
			used[d] = true
			walk(prefix+fmt.Sprint(d), used)
			used[d] = false
		}
	}
	walk("", [10]bool{})
	return out
}

func TestEvaluateCountsAlwaysSumToDigitCount(t *testing.T) {
	all := permutations(3)
	require.Len(t, all, 720)

	secrets := []string{"012", "987", "350", "741"}
	for _, secret := range secrets {
		for _, guess := range all {
			r, err := Evaluate(secret, guess, 3)
			require.NoError(t, err)
			require.Equal(t, 3, r.Bulls+r.Cows+r.Misses, "secret=%s guess=%s", secret, guess)
			require.Equal(t, guess == secret, r.IsWin(3), "secret=%s guess=%s", secret, guess)
		}
	}
}
