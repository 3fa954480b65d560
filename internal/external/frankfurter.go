package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/fedorten/resursGraf/internal/httputil"
	"github.com/fedorten/resursGraf/internal/models"
	"github.com/sirupsen/logrus"
)

var DefaultFrankfurterHosts = []string{
	"api.frankfurter.dev",
	"api.frankfurter.app",
}

type FrankfurterOptions struct {
	Options
	Base  string
	Start string // YYYY-MM-DD
	Now   func() time.Time
}

// FrankfurterClient reads daily ECB reference rates quoted against Base.
type FrankfurterClient struct {
	bases      []string
	base       string
	start      string
	now        func() time.Time
	httpClient *http.Client
	retry      httputil.RetryConfig
	log        logrus.FieldLogger
}

func NewFrankfurterClient(opts FrankfurterOptions) *FrankfurterClient {
	if len(opts.Hosts) == 0 {
		opts.Hosts = DefaultFrankfurterHosts
	}
	if opts.Base == "" {
		opts.Base = "USD"
	}
	if opts.Start == "" {
		opts.Start = "2015-01-01"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	retry := opts.Retry
	retry.Logger = log

	return &FrankfurterClient{
		bases:      baseURLs(opts.Hosts),
		base:       opts.Base,
		start:      opts.Start,
		now:        opts.Now,
		httpClient: opts.client(),
		retry:      retry,
		log:        log,
	}
}

func (c *FrankfurterClient) Name() string { return models.ProviderFrankfurter }

func (c *FrankfurterClient) FetchHistory(ctx context.Context, symbol string) ([]models.PricePoint, error) {
	var points []models.PricePoint
	err := httputil.TryHosts(ctx, c.bases, func(ctx context.Context, base string) error {
		p, err := c.fetchFrom(ctx, base, symbol)
		if err != nil {
			c.log.WithField("host", base).Warnf("frankfurter %s: %v", symbol, err)
			return err
		}
		points = p
		return nil
	})
	observe(c.Name(), err)
	if err != nil {
		return nil, fmt.Errorf("frankfurter %s: %w", symbol, err)
	}
	return points, nil
}

func (c *FrankfurterClient) fetchFrom(ctx context.Context, base, symbol string) ([]models.PricePoint, error) {
	end := c.now().UTC().Format(models.DateLayout)
	q := url.Values{}
	q.Set("base", c.base)
	q.Set("symbols", symbol)
	u := fmt.Sprintf("%s/v1/%s..%s?%s", base, c.start, end, q.Encode())

	resp, err := httputil.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var data struct {
		Rates map[string]map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if data.Rates == nil {
		return nil, fmt.Errorf("response has no rates")
	}

	points := make([]models.PricePoint, 0, len(data.Rates))
	for date, rates := range data.Rates {
		v, ok := rates[symbol]
		if !ok {
			continue
		}
		points = append(points, models.PricePoint{Date: date, Price: v})
	}
	models.SortPoints(points)
	return points, nil
}
