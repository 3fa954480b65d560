package external

import (
	"net/http"
	"strings"
	"time"

	"github.com/fedorten/resursGraf/internal/httputil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

var upstreamFetches = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "resursgraf_upstream_fetch_total",
		Help: "Upstream history fetches by provider and result",
	},
	[]string{"provider", "result"},
)

func observe(provider string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	upstreamFetches.WithLabelValues(provider, result).Inc()
}

// Options are shared by the upstream clients.
type Options struct {
	// Hosts are tried in order. Bare hostnames get an https:// prefix.
	Hosts   []string
	Timeout time.Duration
	Retry   httputil.RetryConfig
	Logger  logrus.FieldLogger
	// HTTPClient overrides the default client built from Timeout.
	HTTPClient *http.Client
}

func (o Options) client() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return &http.Client{Timeout: o.Timeout}
}

func baseURLs(hosts []string) []string {
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if !strings.Contains(h, "://") {
			h = "https://" + h
		}
		out = append(out, strings.TrimRight(h, "/"))
	}
	return out
}
