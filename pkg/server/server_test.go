package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/Kevin-Rudy/gosta/pkg/core"
	"github.com/Kevin-Rudy/gosta/pkg/sta"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeController 记录调用的假调度器
type fakeController struct {
	mu       sync.Mutex
	snap     core.Snapshot
	config   sta.Config
	cleared  int
	paused   bool
	window   [2]float64
	detector sta.DetectorConfig
	period   float64
	err      error
	snaps    chan *core.Snapshot
}

func newFakeController() *fakeController {
	return &fakeController{
		snap: core.Snapshot{
			Session:    "s1",
			EventCount: 2,
			DT:         0.001,
			Time:       []float64{-0.001, 0, 0.001},
			Average:    []float64{0.5, 1, -2},
		},
		config: *sta.DefaultConfig(),
		snaps:  make(chan *core.Snapshot, 4),
	}
}

func (f *fakeController) Snapshot(ctx context.Context, dst *core.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	dst.CopyFrom(&f.snap)
	dst.Paused = f.paused
	return nil
}

func (f *fakeController) EngineConfig(ctx context.Context) (sta.Config, error) {
	return f.config, nil
}

func (f *fakeController) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
	return nil
}

func (f *fakeController) Pause(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = true
	return nil
}

func (f *fakeController) Resume(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = false
	return nil
}

func (f *fakeController) SetWindow(ctx context.Context, left, right float64) error {
	if left < 0 || right < 0 {
		return &sta.ConfigError{Field: "LeftWinTime", Reason: "不能为负数"}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.window = [2]float64{left, right}
	return f.err
}

func (f *fakeController) SetDetector(ctx context.Context, detector sta.DetectorConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detector = detector
	return nil
}

func (f *fakeController) SetPeriod(ctx context.Context, dt float64) error {
	if dt <= 0 {
		return &sta.ConfigError{Field: "dt", Reason: "采样周期必须大于0"}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.period = dt
	return f.err
}

func (f *fakeController) setAverage(average []float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap.Average = average
}

func (f *fakeController) currentPeriod() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.period
}

// state 在锁内读取记录的调用结果
func (f *fakeController) state() (cleared int, paused bool, window [2]float64, detector sta.DetectorConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cleared, f.paused, f.window, f.detector
}

func (f *fakeController) Subscribe() (<-chan *core.Snapshot, func()) {
	return f.snaps, func() {}
}

func newTestServer(t *testing.T, ctrl Controller) (*Server, *httptest.Server) {
	t.Helper()
	config := DefaultConfig()
	config.Gatherer = prometheus.NewRegistry()
	s, err := NewServer(ctrl, config)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	s.startHub(ctx)
	ts := httptest.NewServer(s.Handler(ctx))
	t.Cleanup(func() {
		ts.Close()
		cancel()
		s.wg.Wait()
	})
	return s, ts
}

func doRequest(t *testing.T, method, url string, body string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestGetSnapshot(t *testing.T) {
	_, ts := newTestServer(t, newFakeController())

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/api/snapshot", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Success bool          `json:"success"`
		Data    core.Snapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.True(t, out.Success)
	require.Equal(t, "s1", out.Data.Session)
	require.Equal(t, 2, out.Data.EventCount)
	require.Equal(t, []float64{0.5, 1, -2}, out.Data.Average)
}

func TestGetSnapshotNonFinite(t *testing.T) {
	ctrl := newFakeController()
	ctrl.setAverage([]float64{math.NaN(), 1, math.Inf(1)})
	_, ts := newTestServer(t, ctrl)

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/api/snapshot", "")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var out ErrorResponse
	require.NoError(t, json.Unmarshal(body, &out))
	require.False(t, out.Success)
	require.Equal(t, ErrCodeInternal, out.Error.Code)
}

func TestGetAverage(t *testing.T) {
	_, ts := newTestServer(t, newFakeController())

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/api/average", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
	require.Equal(t, "-0.001 0.5\n0 1\n0.001 -2\n", string(body))
}

func TestGetConfig(t *testing.T) {
	_, ts := newTestServer(t, newFakeController())

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/api/config", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Data configResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.Equal(t, 0.05, out.Data.Left)
	require.Equal(t, core.DetectorLevel, out.Data.Detector)
	require.Equal(t, 0.5, out.Data.Interval)
}

func TestControlEndpoints(t *testing.T) {
	ctrl := newFakeController()
	_, ts := newTestServer(t, ctrl)

	resp, _ := doRequest(t, http.MethodPost, ts.URL+"/api/clear", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cleared, _, _, _ := ctrl.state()
	require.Equal(t, 1, cleared)

	resp, _ = doRequest(t, http.MethodPost, ts.URL+"/api/pause", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, paused, _, _ := ctrl.state()
	require.True(t, paused)

	resp, _ = doRequest(t, http.MethodPost, ts.URL+"/api/resume", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, paused, _, _ = ctrl.state()
	require.False(t, paused)
}

func TestPutWindow(t *testing.T) {
	ctrl := newFakeController()
	_, ts := newTestServer(t, ctrl)

	resp, _ := doRequest(t, http.MethodPut, ts.URL+"/api/window", `{"left":0.01,"right":0.02}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, _, window, _ := ctrl.state()
	require.Equal(t, [2]float64{0.01, 0.02}, window)

	resp, body := doRequest(t, http.MethodPut, ts.URL+"/api/window", `{"left":-1,"right":0.02}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Contains(t, string(body), ErrCodeInvalidConfig)

	resp, _ = doRequest(t, http.MethodPut, ts.URL+"/api/window", `{"left":0.01}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doRequest(t, http.MethodPut, ts.URL+"/api/window", `not json`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPutWindowInternalError(t *testing.T) {
	ctrl := newFakeController()
	ctrl.err = errors.New("boom")
	_, ts := newTestServer(t, ctrl)

	resp, _ := doRequest(t, http.MethodPut, ts.URL+"/api/window", `{"left":0.01,"right":0.02}`)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestPutDetector(t *testing.T) {
	ctrl := newFakeController()
	_, ts := newTestServer(t, ctrl)

	resp, _ := doRequest(t, http.MethodPut, ts.URL+"/api/detector", `{"kind":"threshold","threshold":0.7,"interval":0.25}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, _, _, detector := ctrl.state()
	require.Equal(t, core.DetectorThreshold, detector.Kind)
	require.Equal(t, 0.7, detector.Threshold)
	require.Equal(t, 250*time.Millisecond, detector.Interval)
}

func TestPutPeriod(t *testing.T) {
	ctrl := newFakeController()
	_, ts := newTestServer(t, ctrl)

	resp, _ := doRequest(t, http.MethodPut, ts.URL+"/api/period", `{"dt":0.0005}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 0.0005, ctrl.currentPeriod())

	resp, body := doRequest(t, http.MethodPut, ts.URL+"/api/period", `{"dt":0}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Contains(t, string(body), ErrCodeInvalidConfig)

	resp, _ = doRequest(t, http.MethodPut, ts.URL+"/api/period", `{}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNoRoute(t *testing.T) {
	_, ts := newTestServer(t, newFakeController())

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/nope", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Contains(t, string(body), ErrCodeNotFound)
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, newFakeController())

	resp, _ := doRequest(t, http.MethodGet, ts.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebSocketStreamsSnapshots(t *testing.T) {
	ctrl := newFakeController()
	s, ts := newTestServer(t, ctrl)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.hub.Clients() == 1 }, 2*time.Second, 5*time.Millisecond)

	ctrl.snaps <- &core.Snapshot{Session: "s1", EventCount: 9, Average: []float64{1, 2}}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.NewDecoder(bytes.NewReader(data)).Decode(&msg))
	require.Equal(t, "snapshot", msg.Type)
	require.Equal(t, 9, msg.Data.EventCount)
	require.Equal(t, []float64{1, 2}, msg.Data.Average)
}

func TestServerStartStop(t *testing.T) {
	config := DefaultConfig()
	config.Addr = "127.0.0.1:0"
	config.Gatherer = prometheus.NewRegistry()
	s, err := NewServer(newFakeController(), config)
	require.NoError(t, err)

	require.NoError(t, s.Start())
	require.NotNil(t, s.Addr())

	resp, _ := doRequest(t, http.MethodGet, "http://"+s.Addr().String()+"/api/snapshot", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Stop())
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	c := DefaultConfig()
	c.Addr = ""
	require.Error(t, c.Validate())

	c = DefaultConfig()
	c.ClientBuffer = 0
	require.Error(t, c.Validate())
}
