package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fedorten/resursGraf/internal/catalog"
	"github.com/fedorten/resursGraf/internal/logging"
	"github.com/fedorten/resursGraf/internal/models"
	"github.com/fedorten/resursGraf/internal/prices"
	"github.com/fedorten/resursGraf/internal/store"
	"github.com/fedorten/resursGraf/internal/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type stubFetcher struct {
	name   string
	points []models.PricePoint
	err    error
	calls  atomic.Int32
}

func (f *stubFetcher) Name() string { return f.name }

func (f *stubFetcher) FetchHistory(context.Context, string) ([]models.PricePoint, error) {
	f.calls.Add(1)
	return f.points, f.err
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

type fixture struct {
	handler http.Handler
	store   *store.Memory
	yahoo   *stubFetcher
	fx      *stubFetcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store: store.NewMemory(),
		yahoo: &stubFetcher{name: models.ProviderYahoo, points: []models.PricePoint{
			{Date: "2023-01-02", Price: 1830.2},
			{Date: "2024-03-04", Price: 2115.0},
			{Date: "2024-06-10", Price: 2331.4},
		}},
		fx: &stubFetcher{name: models.ProviderFrankfurter, points: []models.PricePoint{
			{Date: "2024-06-14", Price: 89.1},
		}},
	}

	cat := catalog.Default()
	svc := prices.NewService(cat, f.store, []prices.Fetcher{f.yahoo, f.fx}, prices.Options{
		TTL:    time.Hour,
		Now:    func() time.Time { return testNow },
		Logger: logging.Discard(),
	})
	pages, err := web.NewRenderer()
	require.NoError(t, err)

	s := NewServer(svc, cat, f.store, pages, Config{Port: 0, CORSOrigin: "*"}, logging.Discard())
	f.handler = s.httpServer.Handler
	return f
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestPrice_Gold(t *testing.T) {
	f := newFixture(t)

	rr := f.get(t, "/api/price/gold")
	require.Equal(t, http.StatusOK, rr.Code)

	q := decode[models.Quote](t, rr)
	assert.Equal(t, "gold", q.Resource)
	assert.Equal(t, "Золото", q.Name)
	assert.Equal(t, 2331.4, q.Price)
	assert.Equal(t, "2024-06-10", q.Date)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestPrice_Steel(t *testing.T) {
	f := newFixture(t)

	rr := f.get(t, "/api/price/steel")
	require.Equal(t, http.StatusOK, rr.Code)

	q := decode[models.Quote](t, rr)
	assert.Equal(t, 2500.0, q.Price)
	assert.Equal(t, "2024-06-15", q.Date)
	assert.Equal(t, int32(0), f.yahoo.calls.Load())
}

func TestPrice_UnknownResource(t *testing.T) {
	f := newFixture(t)

	rr := f.get(t, "/api/price/platinum")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, map[string]string{"error": "Resource not found"}, decode[map[string]string](t, rr))
}

func TestPrice_NoData(t *testing.T) {
	f := newFixture(t)
	f.yahoo.points = nil
	f.yahoo.err = errors.New("mirrors down")

	rr := f.get(t, "/api/price/oil")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, map[string]string{"error": "No data"}, decode[map[string]string](t, rr))
}

func TestPrice_RubUsesFrankfurter(t *testing.T) {
	f := newFixture(t)

	rr := f.get(t, "/api/price/rub")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"unit":"₽/USD"`)
	assert.Equal(t, int32(1), f.fx.calls.Load())
	assert.Equal(t, int32(0), f.yahoo.calls.Load())
}

func TestHistory_Periods(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		path string
		want int
	}{
		{"/api/history/gold", 3},
		{"/api/history/gold/all", 3},
		{"/api/history/gold/week", 1},
		{"/api/history/gold/month", 1},
		{"/api/history/gold/year", 2},
		{"/api/history/gold/3years", 3},
		{"/api/history/gold/forever", 3},
	}
	for _, tc := range cases {
		rr := f.get(t, tc.path)
		require.Equal(t, http.StatusOK, rr.Code, tc.path)
		assert.Len(t, decode[[]models.PricePoint](t, rr), tc.want, tc.path)
	}
	assert.Equal(t, int32(1), f.yahoo.calls.Load(), "history is cached within the TTL")
}

func TestHistory_UnknownResource(t *testing.T) {
	f := newFixture(t)

	rr := f.get(t, "/api/history/platinum/year")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, map[string]string{"error": "Resource not found"}, decode[map[string]string](t, rr))
}

func TestHistory_NoDataIsEmptyArray(t *testing.T) {
	f := newFixture(t)
	f.yahoo.points = nil
	f.yahoo.err = errors.New("mirrors down")

	rr := f.get(t, "/api/history/copper/month")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rr.Body.String()))
}

func TestHistory_StaleFallback(t *testing.T) {
	f := newFixture(t)
	stale := []models.PricePoint{{Date: "2024-06-03", Price: 4.61}}
	require.NoError(t, f.store.Save(context.Background(), &models.History{
		Resource:  "copper",
		Source:    models.ProviderYahoo,
		Points:    stale,
		FetchedAt: testNow.Add(-24 * time.Hour),
	}))
	f.yahoo.points = nil
	f.yahoo.err = errors.New("mirrors down")

	rr := f.get(t, "/api/history/copper/month")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, stale, decode[[]models.PricePoint](t, rr))
	assert.Equal(t, int32(1), f.yahoo.calls.Load())
}

func TestPages(t *testing.T) {
	f := newFixture(t)

	rr := f.get(t, "/")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `href="/chart/diesel"`)

	rr = f.get(t, "/chart/silver")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `data-resource="silver"`)

	rr = f.get(t, "/chart/unobtainium")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "404")

	rr = f.get(t, "/no/such/page")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.get(t, "/static/script.js")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rr := f.get(t, "/health")
	require.Equal(t, http.StatusOK, rr.Code)
	h := decode[healthResponse](t, rr)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, "connected", h.Services.Store)
}

func TestHealth_StoreDown(t *testing.T) {
	s := &Server{store: failingPinger{}, log: logging.Discard()}

	rr := httptest.NewRecorder()
	s.handleHealth(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "disconnected", decode[healthResponse](t, rr).Services.Store)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.get(t, "/api/price/steel")

	rr := f.get(t, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `http_requests_total{method="GET",path="GET /api/price/{resource}",status="200"}`)
}
