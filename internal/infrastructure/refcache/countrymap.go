package refcache

import (
	"context"
	"sync"

	"github.com/riskibarqy/match-tracker/internal/domain/reference"
	"github.com/riskibarqy/match-tracker/internal/platform/logging"
)

// CountryFetcher loads the full upstream country list.
type CountryFetcher func(ctx context.Context) ([]reference.Country, error)

// CountryMap serves country names from a permanent built-in table,
// optionally enriched once from the upstream country list. Entries
// never expire.
type CountryMap struct {
	mu     sync.RWMutex
	names  map[string]string
	seeded int

	ensureOnce sync.Once
	fetch      CountryFetcher
	logger     *logging.Logger
}

func NewCountryMap(fetch CountryFetcher, logger *logging.Logger) *CountryMap {
	if logger == nil {
		logger = logging.Default()
	}

	names := reference.PermanentCountries()
	return &CountryMap{
		names:  names,
		seeded: len(names),
		fetch:  fetch,
		logger: logger,
	}
}

// Ensure merges the upstream country list into the map, at most once
// for the life of the process. Fetch failure degrades to the permanent
// table.
func (m *CountryMap) Ensure(ctx context.Context) {
	m.ensureOnce.Do(func() {
		if m.fetch == nil {
			return
		}

		countries, err := m.fetch(ctx)
		if err != nil {
			m.logger.WarnContext(ctx, "country list fetch failed, using permanent table only",
				"permanent_entries", m.seeded,
				"error", err,
			)
			return
		}

		m.mu.Lock()
		added := 0
		for _, c := range countries {
			if c.ID == "" || c.Name == "" {
				continue
			}
			if _, ok := m.names[c.ID]; !ok {
				added++
			}
			m.names[c.ID] = c.Name
		}
		total := len(m.names)
		m.mu.Unlock()

		m.logger.InfoContext(ctx, "country map enriched",
			"fetched", len(countries),
			"added", added,
			"total", total,
		)
	})
}

// Name resolves a country id, defaulting on any miss.
func (m *CountryMap) Name(id string) string {
	if id == "" {
		return reference.UnknownCountryName
	}

	m.mu.RLock()
	name, ok := m.names[id]
	m.mu.RUnlock()
	if !ok {
		return reference.UnknownCountryName
	}
	return name
}

func (m *CountryMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.names)
}
