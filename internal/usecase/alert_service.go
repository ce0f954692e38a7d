package usecase

import (
	"context"

	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/match-tracker/internal/domain/alert"
	"github.com/riskibarqy/match-tracker/internal/domain/match"
	"github.com/riskibarqy/match-tracker/internal/infrastructure/seenstate"
	"github.com/riskibarqy/match-tracker/internal/platform/logging"
)

// Notifier dispatches one alert payload to its destination.
type Notifier interface {
	Notify(ctx context.Context, payload alert.Payload) error
}

// RuleResult is the outcome of one (rule, match) evaluation. Both a
// nil payload and an error mean "no alert", but errors are counted and
// logged separately.
type RuleResult struct {
	RuleName string
	MatchID  string
	Payload  *alert.Payload
	Err      error
}

// EvaluateSummary aggregates one evaluation pass.
type EvaluateSummary struct {
	Evaluated  int
	Fired      int
	Suppressed int
	Failed     int
}

// AlertService runs every registered rule over every merged match,
// deduplicates fired alerts, and dispatches the new ones.
type AlertService struct {
	rules    []alert.Rule
	seen     *seenstate.Store
	notifier Notifier
	logger   *logging.Logger
}

func NewAlertService(rules []alert.Rule, seen *seenstate.Store, notifier Notifier, logger *logging.Logger) *AlertService {
	if logger == nil {
		logger = logging.Default()
	}

	return &AlertService{
		rules:    rules,
		seen:     seen,
		notifier: notifier,
		logger:   logger,
	}
}

// Evaluate checks all rules against all matches. One failing rule
// never blocks the others.
func (s *AlertService) Evaluate(ctx context.Context, matches []match.Match) EvaluateSummary {
	var summary EvaluateSummary

	for _, m := range matches {
		for _, rule := range s.rules {
			result := safeCheck(rule, m)
			summary.Evaluated++

			if result.Err != nil {
				summary.Failed++
				s.logger.ErrorContext(ctx, "alert rule failed",
					"rule", result.RuleName,
					"match_id", result.MatchID,
					"error", result.Err,
				)
				continue
			}
			if result.Payload == nil {
				continue
			}

			if s.seen.Seen(result.RuleName, result.MatchID) {
				summary.Suppressed++
				s.logger.DebugContext(ctx, "alert suppressed by dedup",
					"rule", result.RuleName,
					"match_id", result.MatchID,
				)
				continue
			}

			// mark before dispatch so a crash cannot replay the alert
			if err := s.seen.MarkFired(result.RuleName, result.MatchID); err != nil {
				s.logger.ErrorContext(ctx, "seen-state write failed",
					"rule", result.RuleName,
					"match_id", result.MatchID,
					"error", err,
				)
			}

			summary.Fired++
			s.logger.InfoContext(ctx, "alert fired",
				"rule", result.RuleName,
				"match_id", result.MatchID,
				"detail", result.Payload.Detail,
			)

			if s.notifier != nil {
				if err := s.notifier.Notify(ctx, *result.Payload); err != nil {
					s.logger.ErrorContext(ctx, "alert dispatch failed",
						"rule", result.RuleName,
						"match_id", result.MatchID,
						"error", err,
					)
				}
			}
		}
	}

	s.logger.InfoContext(ctx, "alert evaluation complete",
		"evaluated", summary.Evaluated,
		"fired", summary.Fired,
		"suppressed", summary.Suppressed,
		"failed", summary.Failed,
	)
	return summary
}

// safeCheck invokes the rule, converting panics into errors so one
// broken rule cannot take down the evaluation pass.
func safeCheck(rule alert.Rule, m match.Match) (result RuleResult) {
	result = RuleResult{RuleName: rule.Name(), MatchID: m.ID}

	defer func() {
		if r := recover(); r != nil {
			result.Payload = nil
			result.Err = crerr.Newf("rule panicked: %v", r)
		}
	}()

	result.Payload, result.Err = rule.Check(m)
	return result
}
