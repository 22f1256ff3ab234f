package evaluator

import "github.com/mcoot/bullscows/internal/model"

// Result is the outcome of comparing a guess against a secret
type Result struct {
	Bulls  int `json:"bulls"`  // right digit, right position
	Cows   int `json:"cows"`   // right digit, wrong position
	Misses int `json:"misses"` // digit absent from the secret
}

// IsWin reports whether every position matched
func (r Result) IsWin(digitCount int) bool {
	return r.Bulls == digitCount
}

// Validate checks that s is exactly digitCount decimal digits with no repeats
func Validate(s string, digitCount int) error {
	if len(s) != digitCount {
		return model.ErrInvalidLength
	}
	var seen [10]bool
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return model.ErrNonDigit
		}
		if seen[c-'0'] {
			return model.ErrRepeatedDigit
		}
		seen[c-'0'] = true
	}
	return nil
}

// Evaluate scores guess against secret. Both must pass Validate.
func Evaluate(secret, guess string, digitCount int) (Result, error) {
	if err := Validate(secret, digitCount); err != nil {
		return Result{}, err
	}
	if err := Validate(guess, digitCount); err != nil {
		return Result{}, err
	}

	var inSecret [10]bool
	for i := 0; i < len(secret); i++ {
		inSecret[secret[i]-'0'] = true
	}

	var r Result
	for i := 0; i < len(guess); i++ {
		switch {
		case guess[i] == secret[i]:
			r.Bulls++
		case inSecret[guess[i]-'0']:
			r.Cows++
		}
	}
	r.Misses = digitCount - r.Bulls - r.Cows
	return r, nil
}
