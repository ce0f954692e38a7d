package usecase

import (
	"context"
	"strconv"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/match-tracker/internal/domain/match"
	"github.com/riskibarqy/match-tracker/internal/domain/reference"
	"github.com/riskibarqy/match-tracker/internal/infrastructure/refcache"
	"github.com/riskibarqy/match-tracker/internal/platform/logging"
)

// oddsPeriodKey selects the market block inside the odds payload's
// results map. The feed keys periods numerically; "2" carries the
// markets this pipeline consumes.
const oddsPeriodKey = "2"

// MergeService folds the per-cycle raw payloads into canonical match
// records. Every missing-data condition degrades to a logged default;
// the merge only fails on wiring errors.
type MergeService struct {
	teams        *refcache.Cache[reference.Team]
	competitions *refcache.Cache[reference.Competition]
	countries    *refcache.CountryMap
	logger       *logging.Logger

	// statusPriority drives the output ordering; codes not listed sort
	// after all listed ones.
	statusPriority []int

	now func() time.Time
}

func NewMergeService(
	teams *refcache.Cache[reference.Team],
	competitions *refcache.Cache[reference.Competition],
	countries *refcache.CountryMap,
	statusPriority []int,
	logger *logging.Logger,
) *MergeService {
	if logger == nil {
		logger = logging.Default()
	}

	return &MergeService{
		teams:          teams,
		competitions:   competitions,
		countries:      countries,
		statusPriority: statusPriority,
		logger:         logger,
		now:            time.Now,
	}
}

// MergeAll merges every live record with its detail and odds payloads
// and returns the canonical list sorted by status priority.
func (s *MergeService) MergeAll(
	ctx context.Context,
	live []map[string]any,
	detailsByID map[string]map[string]any,
	oddsByID map[string]map[string]any,
) ([]match.Match, error) {
	if s.teams == nil || s.competitions == nil || s.countries == nil {
		return nil, crerr.Wrap(ErrInvalidInput, "merge service missing reference caches")
	}

	s.logger.InfoContext(ctx, "merging matches", "count", len(live))

	merged := make([]match.Match, 0, len(live))
	for _, rec := range live {
		id := getStringAny(rec, "id")

		detail := detailsByID[id]
		if detail == nil {
			s.logger.WarnContext(ctx, "no detail entry for match", "match_id", id)
		}
		odds := oddsByID[id]
		if odds == nil {
			s.logger.WarnContext(ctx, "no odds entry for match", "match_id", id)
		}

		merged = append(merged, s.mergeOne(ctx, rec, detail, odds))
	}

	match.SortByStatusPriority(merged, s.statusPriority)

	s.logger.InfoContext(ctx, "merge complete", "count", len(merged))
	return merged, nil
}

func (s *MergeService) mergeOne(ctx context.Context, live, detail, odds map[string]any) match.Match {
	matchID := getStringAny(live, "id")
	if matchID == "" {
		matchID = "unknown"
	}

	det := s.unwrapResults(ctx, detail, matchID)
	homeID, awayID, compID := extractIDs(live, det)

	// shallow merge, live fields win on collision
	flat := make(map[string]any, len(det)+len(live))
	for k, v := range det {
		flat[k] = v
	}
	for k, v := range live {
		flat[k] = v
	}
	flat["id"] = matchID
	flat["competition_id"] = compID

	m := match.Match{
		ID:            matchID,
		HomeTeamID:    homeID,
		AwayTeamID:    awayID,
		CompetitionID: compID,
		CreatedAt:     s.now().Unix(),
		Extra:         flat,
	}

	m.StatusID = int(getInt64Any(flat, "status_id"))
	m.Status = match.StatusDescription(m.StatusID)
	m.Score = normalizeScore(flat["score"])

	home := s.teams.Get(ctx, homeID)
	if home.Name == "" {
		s.logger.DebugContext(ctx, "home team not resolved", "match_id", matchID, "team_id", homeID)
		m.HomeTeam = reference.UnknownTeamName
	} else {
		m.HomeTeam = home.Name
	}

	away := s.teams.Get(ctx, awayID)
	if away.Name == "" {
		s.logger.DebugContext(ctx, "away team not resolved", "match_id", matchID, "team_id", awayID)
		m.AwayTeam = reference.UnknownTeamName
	} else {
		m.AwayTeam = away.Name
	}

	comp := s.competitions.Get(ctx, compID)
	if comp.Name == "" {
		s.logger.DebugContext(ctx, "competition not resolved", "match_id", matchID, "competition_id", compID)
		m.Competition = reference.UnknownCompetitionName
	} else {
		m.Competition = comp.Name
	}
	m.Country = s.countries.Name(comp.CountryID)

	m.Odds = normalizeOdds(odds)

	return m
}

// unwrapResults extracts the payload from a results envelope, handling
// both list-of-one and bare-object shapes.
func (s *MergeService) unwrapResults(ctx context.Context, obj map[string]any, matchID string) map[string]any {
	if obj == nil {
		return map[string]any{}
	}

	res, ok := obj["results"]
	if !ok || res == nil {
		s.logger.WarnContext(ctx, "missing results envelope, falling back to empty object", "match_id", matchID)
		return map[string]any{}
	}

	switch typed := res.(type) {
	case []any:
		if len(typed) == 0 {
			return map[string]any{}
		}
		if first, ok := typed[0].(map[string]any); ok {
			return first
		}
		return map[string]any{}
	case map[string]any:
		return typed
	default:
		return map[string]any{}
	}
}

// extractIDs returns (home, away, competition) ids, preferring the
// live record and falling back to the unwrapped detail record.
func extractIDs(live, det map[string]any) (string, string, string) {
	homeID := getStringAny(live, "home_team_id")
	if homeID == "" {
		homeID = getStringAny(nestedMap(live, "home"), "id")
	}
	awayID := getStringAny(live, "away_team_id")
	if awayID == "" {
		awayID = getStringAny(nestedMap(live, "away"), "id")
	}
	compID := getStringAny(live, "competition_id")

	if homeID == "" {
		homeID = getStringAny(det, "home_team_id")
	}
	if awayID == "" {
		awayID = getStringAny(det, "away_team_id")
	}
	if compID == "" {
		compID = getStringAny(det, "competition_id")
	}

	return homeID, awayID, compID
}

// normalizeScore accepts the object shape {"home": n, "away": n} and
// the fixed-position array shape [home, away, ...].
func normalizeScore(raw any) match.Score {
	switch typed := raw.(type) {
	case map[string]any:
		return match.Score{
			Home: int(getInt64Any(typed, "home")),
			Away: int(getInt64Any(typed, "away")),
		}
	case []any:
		var score match.Score
		if len(typed) > 0 {
			score.Home = int(toFloat(typed[0]))
		}
		if len(typed) > 1 {
			score.Away = int(toFloat(typed[1]))
		}
		return score
	default:
		return match.Score{}
	}
}

// normalizeOdds extracts the three market histories from the odds
// payload's results map, defaulting each to empty. Quote rows are
// fixed-position arrays with the timestamp at index 0 and the market
// values at indexes 2..4.
func normalizeOdds(odds map[string]any) match.Odds {
	out := match.Odds{}
	if odds == nil {
		return out
	}

	results, ok := odds["results"].(map[string]any)
	if !ok {
		return out
	}
	period, ok := results[oddsPeriodKey].(map[string]any)
	if !ok {
		return out
	}

	for _, row := range quoteRows(period["eu"]) {
		out.Moneyline = append(out.Moneyline, match.MoneylineQuote{
			Timestamp: int64(toFloat(rowAt(row, 0))),
			Home:      toFloat(rowAt(row, 2)),
			Draw:      toFloat(rowAt(row, 3)),
			Away:      toFloat(rowAt(row, 4)),
		})
	}
	for _, row := range quoteRows(period["asia"]) {
		out.Spread = append(out.Spread, match.SpreadQuote{
			Timestamp: int64(toFloat(rowAt(row, 0))),
			Home:      toFloat(rowAt(row, 2)),
			Handicap:  toFloat(rowAt(row, 3)),
			Away:      toFloat(rowAt(row, 4)),
		})
	}
	for _, row := range quoteRows(period["bs"]) {
		out.OverUnder = append(out.OverUnder, match.OverUnderQuote{
			Timestamp: int64(toFloat(rowAt(row, 0))),
			Over:      toFloat(rowAt(row, 2)),
			Line:      toFloat(rowAt(row, 3)),
			Under:     toFloat(rowAt(row, 4)),
		})
	}

	return out
}

func quoteRows(raw any) [][]any {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}

	rows := make([][]any, 0, len(list))
	for _, item := range list {
		if row, ok := item.([]any); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

func rowAt(row []any, idx int) any {
	if idx >= len(row) {
		return nil
	}
	return row[idx]
}

func nestedMap(src map[string]any, key string) map[string]any {
	if src == nil {
		return nil
	}
	obj, ok := src[key].(map[string]any)
	if !ok {
		return nil
	}
	return obj
}

// getStringAny reads a string field, stringifying numeric ids the feed
// sometimes sends as numbers.
func getStringAny(src map[string]any, key string) string {
	if src == nil {
		return ""
	}
	raw, ok := src[key]
	if !ok || raw == nil {
		return ""
	}
	switch typed := raw.(type) {
	case string:
		return strings.TrimSpace(typed)
	case float64:
		return strconv.FormatInt(int64(typed), 10)
	case int64:
		return strconv.FormatInt(typed, 10)
	case int:
		return strconv.Itoa(typed)
	default:
		return ""
	}
}

func getInt64Any(src map[string]any, key string) int64 {
	if src == nil {
		return 0
	}
	raw, ok := src[key]
	if !ok || raw == nil {
		return 0
	}
	switch typed := raw.(type) {
	case float64:
		return int64(typed)
	case int:
		return int64(typed)
	case int64:
		return typed
	case string:
		v, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		if err != nil {
			return 0
		}
		return v
	default:
		return 0
	}
}

func toFloat(raw any) float64 {
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
