package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samsungplay/CS559-IP3/internal/logging"
	"github.com/samsungplay/CS559-IP3/internal/world"
	"github.com/samsungplay/CS559-IP3/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncRunner выполняет команды прямо в вызывающей горутине
type syncRunner struct {
	mu  sync.Mutex
	w   *world.World
	err error
}

func (r *syncRunner) Do(ctx context.Context, fn func(w *world.World)) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.w)
	return nil
}

func newTestServer(t *testing.T) (*RestServer, *syncRunner) {
	t.Helper()
	reg := block.DefaultRegistry(block.DefaultOptions())
	w := world.New(reg, world.DefaultOptions())
	for cx := -1; cx <= 0; cx++ {
		for cz := -1; cz <= 0; cz++ {
			c := world.NewChunk(cx, cz)
			world.FlatGenerator{Height: 10}.GenerateChunk(c)
			w.SetChunk(cx, cz, c)
		}
	}
	runner := &syncRunner{w: w}

	rs, err := NewRestServer(Config{
		Runner:     runner,
		Registry:   reg,
		Prometheus: prometheus.NewRegistry(),
		Logger:     logging.NewWriterLogger("api", io.Discard, logging.ERROR),
	})
	require.NoError(t, err)
	return rs, runner
}

func request(t *testing.T, rs *RestServer, method, path string, body interface{}) (*httptest.ResponseRecorder, GenericResponse) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	rs.Handler().ServeHTTP(rec, req)

	var resp GenericResponse
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestHealth(t *testing.T) {
	rs, _ := newTestServer(t)
	rec, _ := request(t, rs, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestGetBlock(t *testing.T) {
	rs, _ := newTestServer(t)

	rec, resp := request(t, rs, http.MethodGet, "/api/block?x=-3&y=10&z=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "grass_block", data["name"])
	assert.Equal(t, true, data["loaded"])

	rec, _ = request(t, rs, http.MethodGet, "/api/block?x=a&y=1&z=1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetBlockWakesWater(t *testing.T) {
	rs, runner := newTestServer(t)

	rec, resp := request(t, rs, http.MethodPost, "/api/block", map[string]int{"x": 0, "y": 11, "z": 0, "id": int(block.WaterBlockID)})
	require.Equal(t, http.StatusOK, rec.Code, resp.Message)

	runner.w.TickFluids()
	level, ok := runner.w.FluidLevel(1, 11, 0)
	assert.True(t, ok)
	assert.Equal(t, uint8(1), level)
}

func TestSetBlockWithMeta(t *testing.T) {
	rs, runner := newTestServer(t)

	rec, _ := request(t, rs, http.MethodPost, "/api/block", map[string]int{"x": 1, "y": 11, "z": 1, "id": int(block.TorchBlockID), "meta": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint8(2), runner.w.GetMetaWorld(1, 11, 1))
}

func TestSetBlockValidation(t *testing.T) {
	rs, _ := newTestServer(t)

	rec, _ := request(t, rs, http.MethodPost, "/api/block", map[string]int{"x": 0, "y": 11})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "нет z и id")

	rec, _ = request(t, rs, http.MethodPost, "/api/block", map[string]int{"x": 0, "y": 11, "z": 0, "id": 200})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "незарегистрированный id")

	rec, _ = request(t, rs, http.MethodPost, "/api/block", map[string]int{"x": 500, "y": 11, "z": 0, "id": 1})
	assert.Equal(t, http.StatusConflict, rec.Code, "чанк не загружен")
}

func TestPlaceAndBreak(t *testing.T) {
	rs, runner := newTestServer(t)

	rec, _ := request(t, rs, http.MethodPost, "/api/place", map[string]interface{}{
		"x": 2, "y": 11, "z": 2, "id": int(block.TorchBlockID),
		"support": map[string]int{"x": 2, "y": 11, "z": 1},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, block.TorchBlockID, runner.w.GetBlockWorld(2, 11, 2))
	assert.Equal(t, block.AttachNorth, runner.w.GetMetaWorld(2, 11, 2))

	rec, _ = request(t, rs, http.MethodPost, "/api/place", map[string]int{"x": 2, "y": 10, "z": 2, "id": int(block.StoneBlockID)})
	assert.Equal(t, http.StatusConflict, rec.Code, "ячейка занята травой")

	rec, resp := request(t, rs, http.MethodPost, "/api/break", map[string]int{"x": 2, "y": 10, "z": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "grass_block", resp.Data.(map[string]interface{})["name"])

	rec, _ = request(t, rs, http.MethodPost, "/api/break", map[string]int{"x": 2, "y": 10, "z": 2})
	assert.Equal(t, http.StatusConflict, rec.Code, "воздух не разрушается")
}

func TestExplode(t *testing.T) {
	rs, runner := newTestServer(t)

	rec, resp := request(t, rs, http.MethodPost, "/api/explode", map[string]float64{"x": 0.5, "y": 10.5, "z": 0.5, "radius": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	destroyed := resp.Data.(map[string]interface{})["destroyed"].(float64)
	assert.Greater(t, destroyed, 0.0)
	assert.Equal(t, block.AirBlockID, runner.w.GetBlockWorld(0, 10, 0))

	rec, _ = request(t, rs, http.MethodPost, "/api/explode", map[string]float64{"x": 0, "y": 0, "z": 0, "radius": 100})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChunksAndStats(t *testing.T) {
	rs, _ := newTestServer(t)

	rec, resp := request(t, rs, http.MethodGet, "/api/chunks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, 4.0, data["total"])
	first := data["chunks"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, -1.0, first["cx"])

	rec, resp = request(t, rs, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := resp.Data.(map[string]interface{})
	assert.Equal(t, 4.0, stats["world"].(map[string]interface{})["loaded_chunks"])
	assert.Contains(t, stats["process"], "goroutines")
}

func TestBlockCatalogue(t *testing.T) {
	rs, _ := newTestServer(t)
	rec, resp := request(t, rs, http.MethodGet, "/api/blocks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, resp.Data.([]interface{}), 43)
}

func TestWorldUnavailable(t *testing.T) {
	rs, runner := newTestServer(t)
	runner.err = errors.New("stopped")

	rec, _ := request(t, rs, http.MethodGet, "/api/chunks", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	runner.err = context.DeadlineExceeded
	rec, _ = request(t, rs, http.MethodGet, "/api/stats", nil)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rs, _ := newTestServer(t)
	request(t, rs, http.MethodGet, "/health", nil)

	rec, _ := request(t, rs, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "voxel_api_http_request_duration_seconds")
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "5с", formatUptime(5e9))
	assert.Equal(t, "1м 1с", formatUptime(61e9))
}
