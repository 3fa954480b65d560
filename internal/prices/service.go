// Package prices serves resource quotes and histories, refreshing them from
// upstream providers when the stored copy is older than the TTL.
package prices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fedorten/resursGraf/internal/catalog"
	"github.com/fedorten/resursGraf/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

var (
	ErrUnknownResource = errors.New("resource not found")
	ErrNoData          = errors.New("no data")
)

// Fetcher pulls a full history for an upstream symbol.
//
//go:generate mockgen -package=prices -destination=mock_fetcher_test.go -source=service.go Fetcher
type Fetcher interface {
	Name() string
	FetchHistory(ctx context.Context, symbol string) ([]models.PricePoint, error)
}

// Store persists one history per resource. Load returns nil, nil when nothing
// is stored yet.
type Store interface {
	Load(ctx context.Context, resource string) (*models.History, error)
	Save(ctx context.Context, h *models.History) error
}

type Options struct {
	TTL time.Duration
	// FetchTimeout bounds one shared upstream refresh. It is not tied to any
	// single caller's context.
	FetchTimeout time.Duration
	Now          func() time.Time
	Logger       logrus.FieldLogger
}

type Service struct {
	catalog  *catalog.Catalog
	fetchers map[string]Fetcher
	store    Store
	ttl      time.Duration
	timeout  time.Duration
	now      func() time.Time
	log      logrus.FieldLogger
	group    singleflight.Group
}

func NewService(cat *catalog.Catalog, store Store, fetchers []Fetcher, opts Options) *Service {
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 2 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	byName := make(map[string]Fetcher, len(fetchers))
	for _, f := range fetchers {
		byName[f.Name()] = f
	}
	return &Service{
		catalog:  cat,
		fetchers: byName,
		store:    store,
		ttl:      opts.TTL,
		timeout:  opts.FetchTimeout,
		now:      opts.Now,
		log:      opts.Logger,
	}
}

func (s *Service) Catalog() *catalog.Catalog { return s.catalog }

func (s *Service) today() string {
	return s.now().UTC().Format(models.DateLayout)
}

// Latest returns the most recent price for a resource.
func (s *Service) Latest(ctx context.Context, key string) (*models.Quote, error) {
	res, ok := s.catalog.Get(key)
	if !ok {
		return nil, ErrUnknownResource
	}

	points, err := s.History(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, ErrNoData
	}
	last := points[len(points)-1]
	return &models.Quote{
		Resource: res.Key,
		Name:     res.Name,
		Unit:     res.Unit,
		Price:    last.Price,
		Date:     last.Date,
	}, nil
}

// HistoryForPeriod returns the history trimmed to the period window.
// "all" and unrecognised periods return everything.
func (s *Service) HistoryForPeriod(ctx context.Context, key, period string) ([]models.PricePoint, error) {
	points, err := s.History(ctx, key)
	if err != nil {
		return nil, err
	}
	days, ok := models.PeriodDays(period)
	if !ok {
		return points, nil
	}
	cutoff := s.now().UTC().AddDate(0, 0, -days)
	return models.FilterSince(points, cutoff), nil
}

// History returns the stored history, refreshing it first when stale. Upstream
// failures are logged and answered with whatever is stored (possibly nothing).
func (s *Service) History(ctx context.Context, key string) ([]models.PricePoint, error) {
	res, ok := s.catalog.Get(key)
	if !ok {
		return nil, ErrUnknownResource
	}
	if res.IsFixed() {
		return []models.PricePoint{{Date: s.today(), Price: *res.FixedPrice}}, nil
	}

	log := s.log.WithField("resource", key)

	stored, err := s.store.Load(ctx, key)
	if err != nil {
		log.Warnf("load stored history: %v", err)
		stored = nil
	}
	if stored != nil && !s.stale(stored) {
		return models.ClonePoints(stored.Points), nil
	}

	fresh, err := s.refresh(ctx, res, stored)
	if err != nil {
		log.Errorf("refresh failed: %v", err)
		if stored != nil {
			return models.ClonePoints(stored.Points), nil
		}
		return []models.PricePoint{}, nil
	}
	return models.ClonePoints(fresh.Points), nil
}

// Refresh forces an upstream fetch for one resource regardless of TTL.
func (s *Service) Refresh(ctx context.Context, key string) error {
	res, ok := s.catalog.Get(key)
	if !ok {
		return ErrUnknownResource
	}
	if res.IsFixed() {
		return nil
	}
	stored, err := s.store.Load(ctx, key)
	if err != nil {
		s.log.WithField("resource", key).Warnf("load stored history: %v", err)
		stored = nil
	}
	_, err = s.refresh(ctx, res, stored)
	return err
}

// RefreshAll refreshes every upstream-backed resource and reports the
// failures keyed by resource.
func (s *Service) RefreshAll(ctx context.Context) map[string]error {
	failed := make(map[string]error)
	for _, res := range s.catalog.All() {
		if res.IsFixed() {
			continue
		}
		if err := s.Refresh(ctx, res.Key); err != nil {
			failed[res.Key] = err
		}
	}
	return failed
}

func (s *Service) stale(h *models.History) bool {
	return s.now().Sub(h.FetchedAt) >= s.ttl
}

// refresh is collapsed per resource so concurrent callers share one upstream
// round trip. The shared work outlives the caller that started it.
func (s *Service) refresh(ctx context.Context, res models.Resource, stored *models.History) (*models.History, error) {
	v, err, _ := s.group.Do(res.Key, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		f, ok := s.fetchers[res.Provider]
		if !ok {
			return nil, fmt.Errorf("no fetcher for provider %q", res.Provider)
		}

		points, err := f.FetchHistory(ctx, res.Symbol)
		if err != nil {
			return nil, err
		}
		if len(points) == 0 {
			return nil, fmt.Errorf("%s returned no points for %s", f.Name(), res.Symbol)
		}

		var old []models.PricePoint
		if stored != nil {
			old = stored.Points
		}
		h := &models.History{
			Resource:  res.Key,
			Source:    f.Name(),
			Points:    models.MergeHistory(old, points),
			FetchedAt: s.now(),
		}
		if err := s.store.Save(ctx, h); err != nil {
			// Serve the fresh data even if persisting it failed.
			s.log.WithField("resource", res.Key).Errorf("save history: %v", err)
		}
		s.log.WithFields(logrus.Fields{
			"resource": res.Key,
			"source":   h.Source,
			"points":   len(h.Points),
		}).Info("history refreshed")
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.History), nil
}
