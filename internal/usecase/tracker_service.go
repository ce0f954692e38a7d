package usecase

import (
	"context"
	"sync"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/riskibarqy/match-tracker/internal/infrastructure/diskcache"
	"github.com/riskibarqy/match-tracker/internal/platform/logging"
)

// MatchProvider is the upstream feed surface the tracker consumes.
type MatchProvider interface {
	LiveMatches(ctx context.Context) ([]map[string]any, error)
	MatchDetails(ctx context.Context, matchID string) (map[string]any, error)
	MatchOdds(ctx context.Context, matchID string) (map[string]any, error)
}

// CycleSummary describes one completed tracking cycle.
type CycleSummary struct {
	CycleID    string
	Skipped    bool
	Matches    int
	Alerts     EvaluateSummary
	DurationMs int64
}

// TrackerService drives the fetch-merge-alert loop.
type TrackerService struct {
	provider MatchProvider
	merger   *MergeService
	alerts   *AlertService
	disk     *diskcache.Store
	logger   *logging.Logger

	workerCount int
	sweepEvery  int
	cacheTTL    time.Duration
}

func NewTrackerService(
	provider MatchProvider,
	merger *MergeService,
	alerts *AlertService,
	disk *diskcache.Store,
	workerCount int,
	cacheTTL time.Duration,
	logger *logging.Logger,
) *TrackerService {
	if logger == nil {
		logger = logging.Default()
	}
	if workerCount <= 0 {
		workerCount = 8
	}

	return &TrackerService{
		provider:    provider,
		merger:      merger,
		alerts:      alerts,
		disk:        disk,
		logger:      logger,
		workerCount: workerCount,
		sweepEvery:  60,
		cacheTTL:    cacheTTL,
	}
}

type perMatchPayloads struct {
	matchID string
	detail  map[string]any
	odds    map[string]any
}

// RunCycle executes one fetch-merge-alert pass. A circuit-open live
// endpoint skips the cycle without error; per-match fetch failures
// degrade to empty payloads.
func (s *TrackerService) RunCycle(ctx context.Context) (CycleSummary, error) {
	start := time.Now()
	summary := CycleSummary{CycleID: uuid.NewString()}
	logger := s.logger.With("cycle_id", summary.CycleID)

	live, err := s.provider.LiveMatches(ctx)
	if err != nil {
		if crerr.Is(err, ErrDependencyUnavailable) {
			logger.WarnContext(ctx, "live endpoint unavailable, skipping cycle")
			summary.Skipped = true
			summary.DurationMs = time.Since(start).Milliseconds()
			return summary, nil
		}
		return summary, crerr.Wrap(err, "fetch live matches")
	}

	logger.InfoContext(ctx, "cycle started", "live_matches", len(live))

	detailsByID, oddsByID, err := s.fetchPerMatch(ctx, logger, live)
	if err != nil {
		return summary, err
	}

	merged, err := s.merger.MergeAll(ctx, live, detailsByID, oddsByID)
	if err != nil {
		return summary, crerr.Wrap(err, "merge matches")
	}
	summary.Matches = len(merged)

	summary.Alerts = s.alerts.Evaluate(ctx, merged)
	summary.DurationMs = time.Since(start).Milliseconds()

	logger.InfoContext(ctx, "cycle complete",
		"matches", summary.Matches,
		"alerts_fired", summary.Alerts.Fired,
		"duration_ms", summary.DurationMs,
	)
	return summary, nil
}

// fetchPerMatch fans detail and odds fetches out over a bounded worker
// pool. Failed fetches leave the match with empty payloads.
func (s *TrackerService) fetchPerMatch(ctx context.Context, logger *logging.Logger, live []map[string]any) (map[string]map[string]any, map[string]map[string]any, error) {
	pool, err := ants.NewPool(s.workerCount)
	if err != nil {
		return nil, nil, crerr.Wrap(err, "create worker pool")
	}
	defer pool.Release()

	results := make(chan perMatchPayloads, len(live))
	var workers sync.WaitGroup

	for _, rec := range live {
		matchID := getStringAny(rec, "id")
		if matchID == "" {
			continue
		}

		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			row := perMatchPayloads{matchID: matchID}

			detail, err := s.provider.MatchDetails(ctx, matchID)
			if err != nil {
				logger.WarnContext(ctx, "detail fetch failed", "match_id", matchID, "error", err)
			} else {
				row.detail = detail
			}

			odds, err := s.provider.MatchOdds(ctx, matchID)
			if err != nil {
				logger.WarnContext(ctx, "odds fetch failed", "match_id", matchID, "error", err)
			} else {
				row.odds = odds
			}

			results <- row
		}); err != nil {
			workers.Done()
			return nil, nil, crerr.Wrap(err, "submit fetch task")
		}
	}

	workers.Wait()
	close(results)

	detailsByID := make(map[string]map[string]any, len(live))
	oddsByID := make(map[string]map[string]any, len(live))
	for row := range results {
		if row.detail != nil {
			detailsByID[row.matchID] = row.detail
		}
		if row.odds != nil {
			oddsByID[row.matchID] = row.odds
		}
	}
	return detailsByID, oddsByID, nil
}

// Run loops RunCycle on the interval until the context is canceled,
// sweeping the disk cache periodically.
func (s *TrackerService) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	cycles := 0
	for {
		if _, err := s.RunCycle(ctx); err != nil {
			s.logger.ErrorContext(ctx, "cycle failed", "error", err)
		}

		cycles++
		if s.disk != nil && cycles%s.sweepEvery == 0 {
			s.disk.Sweep(s.cacheTTL)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RawSnapshot is the externally produced cache blob layout: the live
// results envelope plus per-match detail and odds payloads.
type RawSnapshot struct {
	Live    map[string]any            `json:"live"`
	Details map[string]map[string]any `json:"details"`
	Odds    map[string]map[string]any `json:"odds"`
}

// UnpackRawSnapshot parses a cached snapshot blob so the merge path
// can run offline without hitting the feed.
func UnpackRawSnapshot(blob []byte) ([]map[string]any, map[string]map[string]any, map[string]map[string]any, error) {
	var snap RawSnapshot
	if err := sonic.Unmarshal(blob, &snap); err != nil {
		return nil, nil, nil, crerr.Wrap(err, "decode raw snapshot")
	}

	var live []map[string]any
	if raw, ok := snap.Live["results"].([]any); ok {
		live = make([]map[string]any, 0, len(raw))
		for _, item := range raw {
			if rec, ok := item.(map[string]any); ok {
				live = append(live, rec)
			}
		}
	}

	details := snap.Details
	if details == nil {
		details = map[string]map[string]any{}
	}
	odds := snap.Odds
	if odds == nil {
		odds = map[string]map[string]any{}
	}

	return live, details, odds, nil
}
