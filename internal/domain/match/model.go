package match

import "sort"

// Match status codes as reported by the upstream feed.
const (
	StatusNotStarted = 1
	StatusFirstHalf  = 2
	StatusHalftime   = 3
	StatusSecondHalf = 4
	StatusFinished   = 5
)

const StatusUnknownDescription = "Unknown status"

var statusDescriptions = map[int]string{
	StatusNotStarted: "Not started",
	StatusFirstHalf:  "First half",
	StatusHalftime:   "Halftime",
	StatusSecondHalf: "Second half",
	StatusFinished:   "Finished",
}

// StatusDescription maps a numeric status code to a human-readable
// string. Unrecognized codes map to StatusUnknownDescription.
func StatusDescription(statusID int) string {
	if desc, ok := statusDescriptions[statusID]; ok {
		return desc
	}
	return StatusUnknownDescription
}

// IsLive reports whether the status code is an in-play state.
func IsLive(statusID int) bool {
	switch statusID {
	case StatusFirstHalf, StatusHalftime, StatusSecondHalf:
		return true
	}
	return false
}

// Score holds the current goal tally for one match.
type Score struct {
	Home int
	Away int
}

// MoneylineQuote is a 1X2 quote at a point in time.
type MoneylineQuote struct {
	Timestamp int64
	Home      float64
	Draw      float64
	Away      float64
}

// SpreadQuote is an Asian handicap quote at a point in time.
type SpreadQuote struct {
	Timestamp int64
	Home      float64
	Handicap  float64
	Away      float64
}

// OverUnderQuote is a totals quote at a point in time.
type OverUnderQuote struct {
	Timestamp int64
	Over      float64
	Line      float64
	Under     float64
}

// Odds carries the three normalized market histories for a match.
type Odds struct {
	Moneyline []MoneylineQuote
	Spread    []SpreadQuote
	OverUnder []OverUnderQuote
}

// LatestOverUnder returns the over/under quote with the highest
// timestamp, or false when no quotes exist.
func (o Odds) LatestOverUnder() (OverUnderQuote, bool) {
	if len(o.OverUnder) == 0 {
		return OverUnderQuote{}, false
	}

	latest := o.OverUnder[0]
	for _, q := range o.OverUnder[1:] {
		if q.Timestamp > latest.Timestamp {
			latest = q
		}
	}
	return latest, true
}

// Match is the canonical merged record produced once per cycle. All
// downstream consumers operate on this shape only, never on the raw
// upstream variants.
type Match struct {
	ID            string
	StatusID      int
	Status        string
	HomeTeamID    string
	AwayTeamID    string
	HomeTeam      string
	AwayTeam      string
	CompetitionID string
	Competition   string
	Country       string
	Score         Score
	Odds          Odds
	CreatedAt     int64

	// Extra keeps merged upstream fields that have no canonical slot,
	// so callers can still inspect them.
	Extra map[string]any
}

// SortByStatusPriority stably sorts matches by the position of their
// status code in priority. Codes absent from the list sort after all
// recognized ones, keeping their original relative order.
func SortByStatusPriority(matches []Match, priority []int) {
	rank := make(map[int]int, len(priority))
	for i, code := range priority {
		if _, ok := rank[code]; !ok {
			rank[code] = i
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		ri, iok := rank[matches[i].StatusID]
		rj, jok := rank[matches[j].StatusID]
		if iok && jok {
			return ri < rj
		}
		return iok && !jok
	})
}
