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

var DefaultYahooHosts = []string{
	"query2.finance.yahoo.com",
	"query5.finance.yahoo.com",
	"query1.finance.yahoo.com",
}

type YahooOptions struct {
	Options
	Range    string
	Interval string
}

// YahooClient reads weekly futures closes from the Yahoo Finance v8 chart API.
type YahooClient struct {
	bases      []string
	rng        string
	interval   string
	httpClient *http.Client
	retry      httputil.RetryConfig
	log        logrus.FieldLogger
}

func NewYahooClient(opts YahooOptions) *YahooClient {
	if len(opts.Hosts) == 0 {
		opts.Hosts = DefaultYahooHosts
	}
	if opts.Range == "" {
		opts.Range = "5y"
	}
	if opts.Interval == "" {
		opts.Interval = "1wk"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	retry := opts.Retry
	retry.Logger = log

	return &YahooClient{
		bases:      baseURLs(opts.Hosts),
		rng:        opts.Range,
		interval:   opts.Interval,
		httpClient: opts.client(),
		retry:      retry,
		log:        log,
	}
}

func (c *YahooClient) Name() string { return models.ProviderYahoo }

type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchHistory tries each mirror host in order and returns the first usable
// series.
func (c *YahooClient) FetchHistory(ctx context.Context, symbol string) ([]models.PricePoint, error) {
	var points []models.PricePoint
	err := httputil.TryHosts(ctx, c.bases, func(ctx context.Context, base string) error {
		p, err := c.fetchFrom(ctx, base, symbol)
		if err != nil {
			c.log.WithField("host", base).Warnf("yahoo %s: %v", symbol, err)
			return err
		}
		points = p
		return nil
	})
	observe(c.Name(), err)
	if err != nil {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, err)
	}
	return points, nil
}

func (c *YahooClient) fetchFrom(ctx context.Context, base, symbol string) ([]models.PricePoint, error) {
	q := url.Values{}
	q.Set("range", c.rng)
	q.Set("interval", c.interval)
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", base, url.PathEscape(symbol), q.Encode())

	resp, err := httputil.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "Mozilla/5.0")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var chart yahooChart
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("no result")
	}

	res := chart.Chart.Result[0]
	if len(res.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no quote data")
	}
	closes := res.Indicators.Quote[0].Close

	points := make([]models.PricePoint, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		points = append(points, models.PricePoint{
			Date:  time.Unix(ts, 0).UTC().Format(models.DateLayout),
			Price: *closes[i],
		})
	}
	// Weekly bars can repeat the current week's date; keep the latest value.
	return models.MergeHistory(nil, points), nil
}
