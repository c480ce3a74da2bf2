package checksum

import "errors"

// Outcome classifies the result of processing one file.
type Outcome int

const (
	OutcomeOK Outcome = iota
	// OutcomeMalformed covers malformed, truncated and unreadable input.
	OutcomeMalformed
	// OutcomeConfig covers invalid mode selections.
	OutcomeConfig
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeMalformed:
		return "malformed input"
	case OutcomeConfig:
		return "configuration error"
	default:
		return "unknown"
	}
}

// Classify maps an error returned by Process to its outcome class. Read
// failures and cancellation count as unreadable input, which shares the
// malformed class.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrInvalidChannelSelector), errors.Is(err, ErrInvalidMode):
		return OutcomeConfig
	default:
		return OutcomeMalformed
	}
}

// Worst returns the more severe of two outcomes, configuration errors
// ranking above malformed input.
func Worst(a, b Outcome) Outcome {
	if b > a {
		return b
	}
	return a
}
