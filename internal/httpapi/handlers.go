package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/jgirmay/dtq/internal/apperrors"
	"github.com/jgirmay/dtq/internal/coordinator"
	"github.com/jgirmay/dtq/internal/taskstore"
)

// Request/response DTOs for every client- and worker-facing endpoint.

type submitTaskRequest struct {
	Type           string         `json:"type"`
	Payload        map[string]any `json:"payload"`
	MaxRetries     int            `json:"max_retries"`
	TimeoutSeconds int            `json:"timeout_seconds"`
}

type submitTaskResponse struct {
	TaskID string `json:"task_id"`
}

type resultResponse struct {
	Status string         `json:"status"`
	Result map[string]any `json:"result"`
	Error  *string        `json:"error"`
}

type registerWorkerRequest struct {
	WorkerID string `json:"worker_id"`
}

type registerWorkerResponse struct {
	OK bool `json:"ok"`
}

type heartbeatRequest struct {
	WorkerID string `json:"worker_id"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type pullTaskResponse struct {
	Task *taskstore.View `json:"task"`
}

type reportResultRequest struct {
	WorkerID string         `json:"worker_id"`
	TaskID   string         `json:"task_id"`
	OK       bool           `json:"ok"`
	Result   map[string]any `json:"result"`
	Error    string         `json:"error"`
}

// defaultMaxRetries and defaultTimeoutSeconds fill in an omitted
// max_retries/timeout_seconds on submission.
const (
	defaultMaxRetries     = 3
	defaultTimeoutSeconds = 30
)

// API wires the coordinator and an error handler into chi handler
// functions, one method per endpoint.
type API struct {
	coord *coordinator.Coordinator
	errs  *apperrors.Handler
}

// NewAPI constructs an API over the given coordinator.
func NewAPI(coord *coordinator.Coordinator, errs *apperrors.Handler) *API {
	return &API{coord: coord, errs: errs}
}

func traceID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// SubmitTask handles POST /client/tasks.
func (a *API) SubmitTask(w http.ResponseWriter, r *http.Request) {
	req := submitTaskRequest{MaxRetries: defaultMaxRetries, TimeoutSeconds: defaultTimeoutSeconds}
	if err := decodeJSON(r, &req); err != nil {
		a.errs.Handle(w, apperrors.ValidationErrorf("BAD_REQUEST", "malformed request body"), traceID(r))
		return
	}

	taskID, err := a.coord.Submit(req.Type, req.Payload, req.MaxRetries, req.TimeoutSeconds)
	if err != nil {
		a.errs.Handle(w, apperrors.ValidationErrorf("INVALID_TASK", err.Error()), traceID(r))
		return
	}
	writeJSON(w, http.StatusOK, submitTaskResponse{TaskID: taskID.String()})
}

// GetTask handles GET /client/tasks/{task_id}.
func (a *API) GetTask(w http.ResponseWriter, r *http.Request) {
	t, ok := a.lookupTask(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, t.ToView())
}

// GetResult handles GET /client/tasks/{task_id}/result.
func (a *API) GetResult(w http.ResponseWriter, r *http.Request) {
	t, ok := a.lookupTask(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, resultResponse{
		Status: string(t.Status),
		Result: t.Result,
		Error:  t.LastError,
	})
}

func (a *API) lookupTask(w http.ResponseWriter, r *http.Request) (*taskstore.Task, bool) {
	raw := chi.URLParam(r, "task_id")
	id, err := uuid.Parse(raw)
	if err != nil {
		a.errs.Handle(w, apperrors.ValidationErrorf("BAD_TASK_ID", "task_id is not a valid identifier"), traceID(r))
		return nil, false
	}
	t, found := a.coord.Get(id)
	if !found {
		a.errs.Handle(w, apperrors.NotFoundErrorf("TASK_NOT_FOUND", "task not found"), traceID(r))
		return nil, false
	}
	return t, true
}

// ClientMetrics handles GET /client/metrics.
func (a *API) ClientMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.coord.Metrics())
}

// RegisterWorker handles POST /worker/register.
func (a *API) RegisterWorker(w http.ResponseWriter, r *http.Request) {
	var req registerWorkerRequest
	if err := decodeJSON(r, &req); err != nil || req.WorkerID == "" {
		a.errs.Handle(w, apperrors.ValidationErrorf("BAD_REQUEST", "worker_id is required"), traceID(r))
		return
	}
	a.coord.RegisterWorker(req.WorkerID)
	writeJSON(w, http.StatusOK, registerWorkerResponse{OK: true})
}

// Heartbeat handles POST /worker/heartbeat.
func (a *API) Heartbeat(w http.ResponseWriter, r *http.Request) {
	var req heartbeatRequest
	if err := decodeJSON(r, &req); err != nil || req.WorkerID == "" {
		a.errs.Handle(w, apperrors.ValidationErrorf("BAD_REQUEST", "worker_id is required"), traceID(r))
		return
	}
	a.coord.Heartbeat(req.WorkerID)
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// Pull handles POST /worker/pull. The worker's heartbeat is refreshed
// as a side effect, since a pull is proof of life just as much as an
// explicit heartbeat call.
func (a *API) Pull(w http.ResponseWriter, r *http.Request) {
	var req heartbeatRequest
	if err := decodeJSON(r, &req); err != nil || req.WorkerID == "" {
		a.errs.Handle(w, apperrors.ValidationErrorf("BAD_REQUEST", "worker_id is required"), traceID(r))
		return
	}
	a.coord.Heartbeat(req.WorkerID)

	t, ok := a.coord.PullForWorker(req.WorkerID)
	resp := pullTaskResponse{}
	if ok {
		v := t.ToView()
		resp.Task = &v
	}
	writeJSON(w, http.StatusOK, resp)
}

// Report handles POST /worker/report.
func (a *API) Report(w http.ResponseWriter, r *http.Request) {
	var req reportResultRequest
	if err := decodeJSON(r, &req); err != nil || req.WorkerID == "" {
		a.errs.Handle(w, apperrors.ValidationErrorf("BAD_REQUEST", "worker_id and task_id are required"), traceID(r))
		return
	}
	taskID, err := uuid.Parse(req.TaskID)
	if err != nil {
		a.errs.Handle(w, apperrors.ValidationErrorf("BAD_TASK_ID", "task_id is not a valid identifier"), traceID(r))
		return
	}
	a.coord.Report(req.WorkerID, taskID, req.OK, req.Result, req.Error)
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// Healthz handles GET /healthz, unauthenticated.
func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}
