package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/backtester/config"
)

func newTestServer(t *testing.T, cfg config.APIConfig) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewServer(cfg, zerolog.Nop()).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func writeSeries(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "series.csv")
	body := "date,close,pe\n" +
		"2020-01-01,100,10\n" + // below lo: buy
		"2020-01-02,110,20\n" + // inside band: hold
		"2020-01-03,120,30\n" // above hi: sell
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func replayURL(base, csvPath string, extra url.Values) string {
	q := url.Values{
		"symbol":   {"SP500"},
		"csv_path": {csvPath},
	}
	for k, vs := range extra {
		q[k] = vs
	}
	return base + "/replay-all?" + q.Encode()
}

func TestReplayAll(t *testing.T) {
	srv := newTestServer(t, config.APIConfig{})
	csvPath := writeSeries(t)

	resp, err := http.Get(replayURL(srv.URL, csvPath, url.Values{
		"strategy": {"threshold"},
		"quantity": {"10"},
	}))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body struct {
		Spec struct {
			Symbol   string  `json:"symbol"`
			Strategy string  `json:"strategy"`
			Quantity float64 `json:"quantity"`
		} `json:"spec"`
		Frames []struct {
			Idx   int `json:"idx"`
			Fills []struct {
				Direction int     `json:"direction"`
				Price     float64 `json:"fill_price"`
				Qty       float64 `json:"qty"`
			} `json:"fills"`
			Portfolio struct {
				Cash float64 `json:"cash"`
			} `json:"portfolio"`
		} `json:"frames"`
		Final struct {
			Cash       float64 `json:"cash"`
			TotalValue float64 `json:"total_value"`
		} `json:"final"`
		MaxDD float64 `json:"max_drawdown"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.Equal(t, "SP500", body.Spec.Symbol)
	assert.Equal(t, "threshold", body.Spec.Strategy)
	require.Len(t, body.Frames, 3)
	assert.Equal(t, 0, body.Frames[0].Idx)

	// Day 1: pe 10 below 15, buy 10 at 100.
	require.Len(t, body.Frames[0].Fills, 1)
	assert.Equal(t, 1, body.Frames[0].Fills[0].Direction)
	assert.InDelta(t, 100, body.Frames[0].Fills[0].Price, 1e-9)
	assert.InDelta(t, 99_000, body.Frames[0].Portfolio.Cash, 1e-9)

	// Day 2: pe 20 inside the band, nothing happens.
	assert.Empty(t, body.Frames[1].Fills)

	// Day 3: pe 30 above 25, sell 10 at 120. Round trip gains 200.
	require.Len(t, body.Frames[2].Fills, 1)
	assert.Equal(t, -1, body.Frames[2].Fills[0].Direction)
	assert.InDelta(t, 100_200, body.Final.Cash, 1e-9)
	assert.InDelta(t, 100_200, body.Final.TotalValue, 1e-9)
	assert.Zero(t, body.MaxDD)
}

func TestReplayAllRequiredParams(t *testing.T) {
	srv := newTestServer(t, config.APIConfig{})

	resp, err := http.Get(srv.URL + "/replay-all?symbol=SP500")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/replay-all?csv_path=series.csv")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReplayAllMissingFile(t *testing.T) {
	srv := newTestServer(t, config.APIConfig{})

	resp, err := http.Get(replayURL(srv.URL, filepath.Join(t.TempDir(), "missing.csv"), nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReplayAllUnknownStrategy(t *testing.T) {
	srv := newTestServer(t, config.APIConfig{})
	csvPath := writeSeries(t)

	resp, err := http.Get(replayURL(srv.URL, csvPath, url.Values{"strategy": {"martingale"}}))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReplayAllRateLimited(t *testing.T) {
	srv := newTestServer(t, config.APIConfig{RateLimit: 1, Burst: 1})
	csvPath := writeSeries(t)

	resp, err := http.Get(replayURL(srv.URL, csvPath, url.Values{"quantity": {"1"}}))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The burst is spent; the second request inside the window is rejected.
	resp, err = http.Get(replayURL(srv.URL, csvPath, nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, config.APIConfig{})

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, config.APIConfig{})

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
