package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/riskibarqy/match-tracker/internal/domain/alert"
	"github.com/riskibarqy/match-tracker/internal/domain/match"
	"github.com/riskibarqy/match-tracker/internal/infrastructure/seenstate"
	"github.com/riskibarqy/match-tracker/internal/platform/logging"
)

type stubRule struct {
	name  string
	check func(m match.Match) (*alert.Payload, error)
}

func (r *stubRule) Name() string { return r.name }

func (r *stubRule) Check(m match.Match) (*alert.Payload, error) { return r.check(m) }

type recordingNotifier struct {
	sent []alert.Payload
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, payload alert.Payload) error {
	n.sent = append(n.sent, payload)
	return n.err
}

func firingRule(name string) *stubRule {
	return &stubRule{name: name, check: func(m match.Match) (*alert.Payload, error) {
		return &alert.Payload{RuleName: name, MatchID: m.ID, Detail: "fired"}, nil
	}}
}

func newTestSeen(t *testing.T) *seenstate.Store {
	t.Helper()
	s, err := seenstate.NewStore(t.TempDir(), logging.NewNop())
	if err != nil {
		t.Fatalf("seen store: %v", err)
	}
	return s
}

func TestAlertService_FiresAndDispatches(t *testing.T) {
	notifier := &recordingNotifier{}
	s := NewAlertService([]alert.Rule{firingRule("r1")}, newTestSeen(t), notifier, logging.NewNop())

	summary := s.Evaluate(context.Background(), []match.Match{{ID: "m1"}, {ID: "m2"}})

	if summary.Fired != 2 || summary.Evaluated != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(notifier.sent) != 2 {
		t.Fatalf("expected 2 dispatches, got %d", len(notifier.sent))
	}
}

func TestAlertService_DedupSuppressesRepeat(t *testing.T) {
	notifier := &recordingNotifier{}
	s := NewAlertService([]alert.Rule{firingRule("r1")}, newTestSeen(t), notifier, logging.NewNop())

	matches := []match.Match{{ID: "m1"}}
	ctx := context.Background()

	first := s.Evaluate(ctx, matches)
	second := s.Evaluate(ctx, matches)

	if first.Fired != 1 {
		t.Fatalf("first pass: %+v", first)
	}
	if second.Fired != 0 || second.Suppressed != 1 {
		t.Fatalf("second pass: %+v", second)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected single dispatch, got %d", len(notifier.sent))
	}
}

func TestAlertService_PanickingRuleIsIsolated(t *testing.T) {
	panicking := &stubRule{name: "boom", check: func(m match.Match) (*alert.Payload, error) {
		panic("nil map write")
	}}
	notifier := &recordingNotifier{}
	s := NewAlertService([]alert.Rule{panicking, firingRule("ok")}, newTestSeen(t), notifier, logging.NewNop())

	summary := s.Evaluate(context.Background(), []match.Match{{ID: "m1"}})

	if summary.Failed != 1 {
		t.Fatalf("expected 1 failure, got %+v", summary)
	}
	if summary.Fired != 1 || len(notifier.sent) != 1 {
		t.Fatalf("healthy rule blocked: %+v", summary)
	}
}

func TestAlertService_ErroringRuleCountsAsFailure(t *testing.T) {
	failing := &stubRule{name: "bad", check: func(m match.Match) (*alert.Payload, error) {
		return nil, errors.New("lookup failed")
	}}
	s := NewAlertService([]alert.Rule{failing}, newTestSeen(t), nil, logging.NewNop())

	summary := s.Evaluate(context.Background(), []match.Match{{ID: "m1"}})
	if summary.Failed != 1 || summary.Fired != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestAlertService_NotifyFailureStillMarksSeen(t *testing.T) {
	seen := newTestSeen(t)
	notifier := &recordingNotifier{err: errors.New("telegram down")}
	s := NewAlertService([]alert.Rule{firingRule("r1")}, seen, notifier, logging.NewNop())

	ctx := context.Background()
	s.Evaluate(ctx, []match.Match{{ID: "m1"}})

	if !seen.Seen("r1", "m1") {
		t.Fatal("expected id marked despite dispatch failure")
	}

	// at-most-once: no redelivery on the next pass
	second := s.Evaluate(ctx, []match.Match{{ID: "m1"}})
	if second.Fired != 0 {
		t.Fatalf("expected suppression, got %+v", second)
	}
}

func TestSafeCheck_RecoversPanic(t *testing.T) {
	panicking := &stubRule{name: "boom", check: func(m match.Match) (*alert.Payload, error) {
		panic("index out of range")
	}}

	result := safeCheck(panicking, match.Match{ID: "m1"})
	if result.Err == nil {
		t.Fatal("expected error from panic")
	}
	if result.Payload != nil {
		t.Fatal("expected nil payload from panic")
	}
	if result.RuleName != "boom" || result.MatchID != "m1" {
		t.Fatalf("result identity wrong: %+v", result)
	}
}
