package app

import (
	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/match-tracker/external/telegram"
	"github.com/riskibarqy/match-tracker/external/thesports"
	"github.com/riskibarqy/match-tracker/internal/config"
	"github.com/riskibarqy/match-tracker/internal/infrastructure/diskcache"
	"github.com/riskibarqy/match-tracker/internal/infrastructure/refcache"
	"github.com/riskibarqy/match-tracker/internal/infrastructure/seenstate"
	"github.com/riskibarqy/match-tracker/internal/platform/logging"
	"github.com/riskibarqy/match-tracker/internal/platform/resilience"
	"github.com/riskibarqy/match-tracker/internal/usecase"
	"github.com/riskibarqy/match-tracker/internal/usecase/rules"
)

// Tracker bundles the wired services with the resources main must
// drain on shutdown.
type Tracker struct {
	Service   *usecase.TrackerService
	Client    *thesports.Client
	DiskStore *diskcache.Store
	Countries *refcache.CountryMap
}

// Close drains background cache writes.
func (t *Tracker) Close() {
	t.DiskStore.Close()
}

// NewTracker wires the feed client, caches, rules, and services.
func NewTracker(cfg config.Config, logger *logging.Logger) (*Tracker, error) {
	client := thesports.NewClient(thesports.ClientConfig{
		BaseURL: cfg.APIBaseURL,
		User:    cfg.APIUser,
		Secret:  cfg.APISecret,
		Timeout: cfg.APITimeout,
		Retry: resilience.RetryConfig{
			MaxAttempts:    cfg.RetryMaxAttempts,
			InitialBackoff: cfg.RetryInitialBackoff,
			MaxBackoff:     cfg.RetryMaxBackoff,
			Multiplier:     2.0,
			Jitter:         true,
		},
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.CircuitEnabled,
			FailureThreshold: cfg.CircuitFailureThreshold,
			OpenTimeout:      cfg.CircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.CircuitHalfOpenMaxReq,
		},
		Logger: logger,
	})

	disk, err := diskcache.NewStore(cfg.CacheDir, logger)
	if err != nil {
		return nil, crerr.Wrap(err, "create disk cache")
	}

	teamCache := refcache.New("team", cfg.CacheTTL, cfg.TeamCacheSize, disk, client.Team, logger)
	compCache := refcache.New("competition", cfg.CacheTTL, cfg.CompCacheSize, disk, client.Competition, logger)
	countries := refcache.NewCountryMap(client.Countries, logger)

	merger := usecase.NewMergeService(teamCache, compCache, countries, cfg.StatusPriority, logger)

	ruleSet, err := rules.DefaultRegistry().BuildAll(cfg.AlertRuleConfig)
	if err != nil {
		return nil, crerr.Wrap(err, "build alert rules")
	}

	seen, err := seenstate.NewStore(cfg.SeenStateDir, logger)
	if err != nil {
		return nil, crerr.Wrap(err, "create seen-state store")
	}

	var notifier usecase.Notifier
	if cfg.TelegramEnabled {
		tg, err := telegram.NewNotifier(cfg.TelegramBotToken, cfg.TelegramChatID, logger)
		if err != nil {
			return nil, crerr.Wrap(err, "create telegram notifier")
		}
		notifier = tg
	} else {
		logger.Info("telegram notifier disabled")
	}

	alerts := usecase.NewAlertService(ruleSet, seen, notifier, logger)
	service := usecase.NewTrackerService(client, merger, alerts, disk, cfg.FetchWorkers, cfg.CacheTTL, logger)

	return &Tracker{
		Service:   service,
		Client:    client,
		DiskStore: disk,
		Countries: countries,
	}, nil
}
