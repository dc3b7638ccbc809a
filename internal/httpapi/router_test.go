package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jgirmay/dtq/internal/coordinator"
	"github.com/jgirmay/dtq/internal/events"
	"github.com/jgirmay/dtq/internal/leasequeue"
	"github.com/jgirmay/dtq/internal/registry"
	"github.com/jgirmay/dtq/internal/taskstore"
)

const (
	testClientKey = "client-test-key"
	testWorkerKey = "worker-test-key"
)

func newTestRouter() http.Handler {
	store := taskstore.NewStore()
	queue := leasequeue.New()
	reg := registry.New(time.Hour)
	hub := events.NewHub()
	cfg := coordinator.Config{LeaseSeconds: 20, SweepInterval: time.Hour}
	coord := coordinator.New(store, queue, reg, cfg, hub)
	return NewRouter(coord, hub, testClientKey, testWorkerKey)
}

func doRequest(t *testing.T, router http.Handler, method, path, apiKey string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouter_HealthzIsUnauthenticated(t *testing.T) {
	router := newTestRouter()
	rec := doRequest(t, router, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_SubmitRequiresClientKey(t *testing.T) {
	router := newTestRouter()
	rec := doRequest(t, router, http.MethodPost, "/client/tasks", "", submitTaskRequest{Type: "echo"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_SubmitAndGetTask(t *testing.T) {
	router := newTestRouter()

	rec := doRequest(t, router, http.MethodPost, "/client/tasks", testClientKey, submitTaskRequest{
		Type:           "add",
		Payload:        map[string]any{"a": 1, "b": 2},
		MaxRetries:     3,
		TimeoutSeconds: 10,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var submitResp submitTaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitResp))
	require.NotEmpty(t, submitResp.TaskID)

	rec = doRequest(t, router, http.MethodGet, "/client/tasks/"+submitResp.TaskID, testClientKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var view taskstore.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, "PENDING", view.Status)
}

func TestRouter_GetUnknownTaskIs404(t *testing.T) {
	router := newTestRouter()
	rec := doRequest(t, router, http.MethodGet, "/client/tasks/00000000-0000-0000-0000-000000000000", testClientKey, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_WorkerPullAndReportFlow(t *testing.T) {
	router := newTestRouter()

	rec := doRequest(t, router, http.MethodPost, "/client/tasks", testClientKey, submitTaskRequest{
		Type:           "echo",
		Payload:        map[string]any{"hi": "there"},
		MaxRetries:     1,
		TimeoutSeconds: 10,
	})
	var submitResp submitTaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitResp))

	rec = doRequest(t, router, http.MethodPost, "/worker/register", testWorkerKey, registerWorkerRequest{WorkerID: "worker-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/worker/pull", testWorkerKey, heartbeatRequest{WorkerID: "worker-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var pullResp pullTaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pullResp))
	require.NotNil(t, pullResp.Task)
	require.Equal(t, submitResp.TaskID, pullResp.Task.TaskID.String())

	rec = doRequest(t, router, http.MethodPost, "/worker/report", testWorkerKey, reportResultRequest{
		WorkerID: "worker-1",
		TaskID:   submitResp.TaskID,
		OK:       true,
		Result:   map[string]any{"echo": map[string]any{"hi": "there"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/client/tasks/"+submitResp.TaskID+"/result", testClientKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result resultResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, "DONE", result.Status)
}

func TestRouter_MetricsEndpointIsUnauthenticated(t *testing.T) {
	router := newTestRouter()
	rec := doRequest(t, router, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
