package alert

import "github.com/riskibarqy/match-tracker/internal/domain/match"

// Payload is the data an alert rule emits when it fires.
type Payload struct {
	RuleName string
	MatchID  string
	Detail   string
	Fields   map[string]any
}

// Rule evaluates one canonical match. A nil payload means no alert.
// Any type implementing this interface can be registered.
type Rule interface {
	Name() string
	Check(m match.Match) (*Payload, error)
}
