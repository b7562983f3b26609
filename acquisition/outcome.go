package acquisition

import (
	"time"

	"trend-signals/trends"
)

// OutcomeKind tags the result of a single provider attempt
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota // non-empty series
	OutcomeEmpty                      // provider answered without data
	OutcomeFailed                     // provider error, timeout or rate limit
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of one attempt: Success(series) | Empty | Failed(err).
type Outcome struct {
	Kind   OutcomeKind
	Series trends.Series
	Err    error
}

// Success wraps a non-empty series
func Success(s trends.Series) Outcome {
	return Outcome{Kind: OutcomeSuccess, Series: s}
}

// Empty marks a response without data
func Empty() Outcome {
	return Outcome{Kind: OutcomeEmpty}
}

// Failed wraps a provider failure
func Failed(err error) Outcome {
	return Outcome{Kind: OutcomeFailed, Err: err}
}

// outcomeOf converts a raw provider response into an Outcome.
func outcomeOf(keyword string, s trends.Series, err error) Outcome {
	if err != nil {
		return Failed(err)
	}
	if s.Empty() {
		return Empty()
	}
	s.Keyword = keyword
	return Success(s)
}

// Action is what the engine does after an attempt
type Action int

const (
	ActionRecord Action = iota // keep the series, pace, next keyword
	ActionSkip                 // terminal empty result, next keyword
	ActionRetry                // back off, then try the same keyword again
	ActionOmit                 // back off, give up on the keyword
)

func (a Action) String() string {
	switch a {
	case ActionRecord:
		return "record"
	case ActionSkip:
		return "skip"
	case ActionRetry:
		return "retry"
	case ActionOmit:
		return "omit"
	default:
		return "unknown"
	}
}

// Decision pairs the next action with the cooldown to observe before the next request.
type Decision struct {
	Action   Action
	Cooldown time.Duration
	Kind     CooldownKind
}

// CooldownKind distinguishes the short pacing pause from the long backoff pause.
type CooldownKind string

const (
	CooldownNone    CooldownKind = ""
	CooldownPacing  CooldownKind = "pacing"
	CooldownBackoff CooldownKind = "backoff"
)

// Decide is the retry policy decision table. attempt is 1-based.
func (c Config) Decide(o Outcome, attempt int) Decision {
	switch o.Kind {
	case OutcomeSuccess:
		return Decision{Action: ActionRecord, Cooldown: c.SuccessCooldown, Kind: CooldownPacing}
	case OutcomeEmpty:
		return Decision{Action: ActionSkip}
	default:
		if attempt < c.MaxAttempts {
			return Decision{Action: ActionRetry, Cooldown: c.FailureCooldown, Kind: CooldownBackoff}
		}
		return Decision{Action: ActionOmit, Cooldown: c.FailureCooldown, Kind: CooldownBackoff}
	}
}
