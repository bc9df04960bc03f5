// Package household implements the household registry, the active-household
// tracker and sensor-reading aggregation on top of the storage engine.
package household

import (
	"context"
	"time"

	"liyu1981.xyz/household-energy-service/pkg/db"
	"liyu1981.xyz/household-energy-service/pkg/metrics"
	"liyu1981.xyz/household-energy-service/pkg/models"
)

//go:generate mockgen -source=household.go -destination=mocks/mocks.go -package=mocks

type IRegistry interface {
	Register(name string, personCount int) (int64, error)
	Delete(id int64) error
	List() ([]models.HouseholdSummary, error)
	FindByName(name string) (*models.Household, error)
	FindIDByName(name string) (int64, bool, error)
}

type ITracker interface {
	GetActive() (*models.ActiveHousehold, error)
	SetActive(id int64, name string) error
}

type IAggregator interface {
	Aggregate(household string) ([]models.AggregatedReading, error)
	AggregateBetween(household string, from, to time.Time) ([]models.AggregatedReading, error)
}

type IIngestor interface {
	IngestReading(household string, input *models.SensorReading) error
}

// AggregateCache is an optional store for full aggregations. Entries are
// tagged with the version of the raw rows they were built from, and Get only
// reports a hit for a matching version. Failures are logged and the core
// falls back to storage.
type AggregateCache interface {
	Get(ctx context.Context, household, version string) ([]models.AggregatedReading, bool, error)
	Set(ctx context.Context, household, version string, readings []models.AggregatedReading) error
	Invalidate(ctx context.Context, household string) error
}

const cacheTimeout = 500 * time.Millisecond

type Core struct {
	Db    *db.DB
	Cache AggregateCache

	// Limiters is the ingestion limiter store shared by every transport.
	// Deleting a household drops its limiter. May be nil.
	Limiters *RateLimiterStore

	Registry   IRegistry
	Tracker    ITracker
	Aggregator IAggregator
	Ingestor   IIngestor
}

type ServiceOpts struct {
	Registry   IRegistry
	Tracker    ITracker
	Aggregator IAggregator
	Ingestor   IIngestor
}

// NewCore wires the storage-backed implementation of every service.
func NewCore(store *db.DB, cache AggregateCache) *Core {
	c := &Core{Db: store, Cache: cache}
	return c.WithServices(ServiceOpts{
		Registry:   c.GetIRegistry(),
		Tracker:    c.GetITracker(),
		Aggregator: c.GetIAggregator(),
		Ingestor:   c.GetIIngestor(),
	})
}

func (c *Core) WithServices(opts ServiceOpts) *Core {
	if opts.Registry != nil {
		c.Registry = opts.Registry
	}
	if opts.Tracker != nil {
		c.Tracker = opts.Tracker
	}
	if opts.Aggregator != nil {
		c.Aggregator = opts.Aggregator
	}
	if opts.Ingestor != nil {
		c.Ingestor = opts.Ingestor
	}
	return c
}

func (c *Core) storageFailure(op string, err error) error {
	metrics.Get().StorageErrorsTotal.WithLabelValues(op).Inc()
	return db.Wrap(op, err)
}

func cacheContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), cacheTimeout)
}
