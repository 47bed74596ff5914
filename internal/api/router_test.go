package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-billing/internal/api/models"
	"energy-billing/internal/engine"
	"energy-billing/internal/ledger"
	"energy-billing/internal/model"
	"energy-billing/internal/source"
	"energy-billing/internal/state"
	"energy-billing/internal/tariff"
)

const (
	forward = "sensor.forward_total"
	reverse = "sensor.reverse_total"
)

type fixture struct {
	router *gin.Engine
	rt     *engine.Runtime
	src    *source.StaticSource
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	src := source.NewStaticSource(map[string]string{forward: "100", reverse: "20"})
	sched, err := tariff.NewSchedule(tariff.DefaultTiers(), tariff.DefaultTaxRate)
	require.NoError(t, err)
	lw := ledger.NewDailyWriter(dir, ledger.MissingSkip, 3)
	now := time.Date(2025, 6, 5, 8, 0, 0, 0, time.UTC)

	rt, err := engine.New(context.Background(), engine.Options{
		InstanceID:    "api-test",
		ForwardEntity: forward,
		ReverseEntity: reverse,
		Source:        src,
		Store:         state.NewFileStore(filepath.Join(dir, "state.json")),
		Ledger:        lw,
		BuySchedule:   sched,
		SellRate:      tariff.NewFlatRate(tariff.DefaultSellPrice),
		Currency:      tariff.DefaultCurrency,
		RoundDecimals: 3,
		CostDecimals:  1,
		Location:      time.UTC,
		Clock:         func() time.Time { return now },
		Logger:        zerolog.Nop(),
	})
	require.NoError(t, err)

	router := NewRouter(Deps{
		InstanceID:   "api-test",
		Instance:     rt,
		Ledger:       lw,
		BuySchedule:  sched,
		SellRate:     tariff.NewFlatRate(tariff.DefaultSellPrice),
		Currency:     tariff.DefaultCurrency,
		CostDecimals: 1,
		Logger:       zerolog.Nop(),
		Metrics:      promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{}),
	})
	return &fixture{router: router, rt: rt, src: src}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.HealthResponse{Status: "ok", InstanceID: "api-test"}, decode[models.HealthResponse](t, w))
}

func TestRefreshAndSnapshot(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/snapshot", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.ElementsMatch(t, []model.Channel{model.ChannelBuy, model.ChannelSell}, decode[model.Snapshot](t, w).Missing)

	w = f.do(t, http.MethodPost, "/api/v1/refresh", "")
	require.Equal(t, http.StatusOK, w.Code)
	snap := decode[model.Snapshot](t, w)
	assert.Equal(t, 100.0, snap.TotalBuy)
	assert.Equal(t, 20.0, snap.TotalSell)

	f.src.Set(forward, "112")
	f.do(t, http.MethodPost, "/api/v1/refresh", "")
	w = f.do(t, http.MethodGet, "/api/v1/snapshot", "")
	snap = decode[model.Snapshot](t, w)
	assert.Equal(t, 12.0, snap.BuyDay)
	assert.Equal(t, "VND", snap.Currency)
}

func TestApplyOptions(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/v1/refresh", "")

	w := f.do(t, http.MethodPost, "/api/v1/options", `{"buy":{"day":{"value":3.5}},"sell":{"month":{"value":"12"}}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	snap := decode[model.Snapshot](t, w)
	assert.Equal(t, 3.5, snap.BuyDay)
	assert.Equal(t, 12.0, snap.SellMonth)
}

func TestApplyOptionsErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body string
		code string
	}{
		{name: "malformed json", body: `{"buy":`, code: "INVALID_REQUEST"},
		{name: "nothing to apply", body: `{}`, code: "EMPTY_OPTIONS"},
		{name: "interval too long", body: `{"interval_minutes":90}`, code: "INVALID_INTERVAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/v1/options", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.code, decode[models.ErrorResponse](t, w).Error.Code)
		})
	}
}

func TestLedgerEndpoints(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/v1/refresh", "")
	f.src.Set(forward, "104.5")
	f.do(t, http.MethodPost, "/api/v1/refresh", "")

	w := f.do(t, http.MethodGet, "/api/v1/ledger/2025", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[models.LedgerResponse](t, w)
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, "2025-06-05", resp.Rows[0].Date)
	assert.Equal(t, 4.5, resp.TotalBuy)
	require.Len(t, resp.Usage, 2)
	assert.Equal(t, model.ChannelBuy, resp.Usage[0].Channel)
	assert.Equal(t, 4.5, resp.Usage[0].MaxKWh)
	require.Len(t, resp.TopDays, 1)
	assert.Equal(t, "2025-06-05", resp.TopDays[0].Date)

	w = f.do(t, http.MethodGet, "/api/v1/ledger/2024", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[models.LedgerResponse](t, w).Rows)

	w = f.do(t, http.MethodGet, "/api/v1/ledger/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/ledger/2025/export?format=xlsx", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "energy-2025.xlsx")
	assert.True(t, strings.HasPrefix(w.Body.String(), "PK"))

	w = f.do(t, http.MethodGet, "/api/v1/ledger/2025/export?format=pdf", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))

	w = f.do(t, http.MethodGet, "/api/v1/ledger/2025/export?format=csv", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_FORMAT", decode[models.ErrorResponse](t, w).Error.Code)
}

func TestTariffQuote(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/tariff/quote?kwh=120", "")
	require.Equal(t, http.StatusOK, w.Code)
	q := decode[models.QuoteResponse](t, w)
	require.Len(t, q.Lines, 3)
	assert.Equal(t, 3, q.Lines[2].Tier)
	assert.Equal(t, 269.2, q.TotalThousands)
	assert.Equal(t, "VND", q.Currency)

	w = f.do(t, http.MethodGet, "/api/v1/tariff/quote", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/tariff/quote?kwh=lots", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_KWH", decode[models.ErrorResponse](t, w).Error.Code)

	w = f.do(t, http.MethodGet, "/api/v1/tariff", "")
	require.Equal(t, http.StatusOK, w.Code)
	tr := decode[models.TariffResponse](t, w)
	assert.Len(t, tr.Tiers, 6)
	assert.Nil(t, tr.Tiers[5].BlockKWh)
	assert.Equal(t, 0.08, tr.TaxRate)
}

func TestCORSAndNotFound(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = f.do(t, http.MethodGet, "/api/v1/nope", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode[models.ErrorResponse](t, w).Error.Code)

	w = f.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestEventsStream(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.router)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	events := make(chan model.Snapshot, 4)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			line := sc.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			var s model.Snapshot
			if json.Unmarshal([]byte(strings.TrimPrefix(line, "data:")), &s) == nil {
				events <- s
			}
		}
		close(events)
	}()

	select {
	case first := <-events:
		assert.Equal(t, 0.0, first.TotalBuy)
	case <-time.After(2 * time.Second):
		t.Fatal("no initial snapshot event")
	}

	_, err = f.rt.Update(context.Background())
	require.NoError(t, err)
	select {
	case s := <-events:
		assert.Equal(t, 100.0, s.TotalBuy)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot event after update")
	}
}
