package rules

import (
	"fmt"
	"strconv"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"github.com/riskibarqy/match-tracker/internal/domain/alert"
	"github.com/riskibarqy/match-tracker/internal/domain/match"
)

const OverUnderRuleName = "OU3"

func overUnderDefaults() map[string]any {
	return map[string]any{"threshold": 3.0}
}

var ruleValidator = validator.New()

type overUnderParams struct {
	Threshold float64 `validate:"gt=0"`
}

// OverUnderRule fires when a live match's most recent over/under line
// exceeds the threshold.
type OverUnderRule struct {
	threshold float64
}

func NewOverUnderRule(params map[string]any) (alert.Rule, error) {
	p := overUnderParams{Threshold: paramFloat(params, "threshold")}
	if err := ruleValidator.Struct(p); err != nil {
		return nil, crerr.Wrap(err, "invalid over/under params")
	}

	return &OverUnderRule{threshold: p.Threshold}, nil
}

func (r *OverUnderRule) Name() string { return OverUnderRuleName }

// Check fires only for in-play statuses, comparing the
// latest-timestamp over/under quote's line against the threshold.
func (r *OverUnderRule) Check(m match.Match) (*alert.Payload, error) {
	if !match.IsLive(m.StatusID) {
		return nil, nil
	}

	quote, ok := m.Odds.LatestOverUnder()
	if !ok {
		return nil, nil
	}
	if quote.Line <= r.threshold {
		return nil, nil
	}

	return &alert.Payload{
		RuleName: r.Name(),
		MatchID:  m.ID,
		Detail:   fmt.Sprintf("Over/Under Line: %.2f", quote.Line),
		Fields: map[string]any{
			"line":      quote.Line,
			"over":      quote.Over,
			"under":     quote.Under,
			"threshold": r.threshold,
			"timestamp": quote.Timestamp,
		},
	}, nil
}

func paramFloat(params map[string]any, key string) float64 {
	raw, ok := params[key]
	if !ok || raw == nil {
		return 0
	}
	switch typed := raw.(type) {
	case float64:
		return typed
	case float32:
		return float64(typed)
	case int:
		return float64(typed)
	case int64:
		return float64(typed)
	case string:
		v, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0
		}
		return v
	default:
		return 0
	}
}
