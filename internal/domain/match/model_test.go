package match

import "testing"

func TestStatusDescription(t *testing.T) {
	cases := []struct {
		statusID int
		want     string
	}{
		{StatusNotStarted, "Not started"},
		{StatusFirstHalf, "First half"},
		{StatusHalftime, "Halftime"},
		{StatusSecondHalf, "Second half"},
		{StatusFinished, "Finished"},
		{0, StatusUnknownDescription},
		{99, StatusUnknownDescription},
	}

	for _, tc := range cases {
		if got := StatusDescription(tc.statusID); got != tc.want {
			t.Fatalf("StatusDescription(%d) = %q, want %q", tc.statusID, got, tc.want)
		}
	}
}

func TestIsLive(t *testing.T) {
	for _, live := range []int{StatusFirstHalf, StatusHalftime, StatusSecondHalf} {
		if !IsLive(live) {
			t.Fatalf("expected status %d to be live", live)
		}
	}
	for _, idle := range []int{StatusNotStarted, StatusFinished, 0, 8} {
		if IsLive(idle) {
			t.Fatalf("expected status %d to not be live", idle)
		}
	}
}

func TestLatestOverUnder(t *testing.T) {
	odds := Odds{
		OverUnder: []OverUnderQuote{
			{Timestamp: 100, Line: 2.5},
			{Timestamp: 200, Line: 4.0},
			{Timestamp: 150, Line: 3.0},
		},
	}

	q, ok := odds.LatestOverUnder()
	if !ok {
		t.Fatal("expected a quote")
	}
	if q.Timestamp != 200 || q.Line != 4.0 {
		t.Fatalf("expected latest quote (ts=200, line=4.0), got ts=%d line=%v", q.Timestamp, q.Line)
	}

	if _, ok := (Odds{}).LatestOverUnder(); ok {
		t.Fatal("expected no quote for empty odds")
	}
}

func TestSortByStatusPriority(t *testing.T) {
	matches := []Match{
		{ID: "a", StatusID: StatusFinished},
		{ID: "b", StatusID: StatusFirstHalf},
		{ID: "c", StatusID: 42},
		{ID: "d", StatusID: StatusHalftime},
		{ID: "e", StatusID: 43},
		{ID: "f", StatusID: StatusFirstHalf},
	}

	SortByStatusPriority(matches, []int{StatusFirstHalf, StatusHalftime, StatusSecondHalf, StatusNotStarted, StatusFinished})

	gotOrder := ""
	for _, m := range matches {
		gotOrder += m.ID
	}
	// unknown codes keep their relative order after recognized ones
	if gotOrder != "bfdace" {
		t.Fatalf("unexpected order %q", gotOrder)
	}
}
