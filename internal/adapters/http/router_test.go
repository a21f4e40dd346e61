package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bhavishyjain/SevaAI/internal/adapters/memory"
	"github.com/bhavishyjain/SevaAI/internal/application"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Status  string          `json:"status"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repos := memory.NewRepositories()
	svc := application.NewService(application.Dependencies{
		Logger:  logger,
		Tickets: repos.Tickets,
		Workers: repos.Workers,
		Outbox:  repos.Outbox,
	})
	return NewRouter(NewHandler(svc, logger))
}

func do(t *testing.T, h http.Handler, method, path, subject, role string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if subject != "" {
		req.Header.Set("Authorization", "Bearer "+subject)
	}
	if role != "" {
		req.Header.Set("X-Actor-Role", role)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestHealthEndpoints(t *testing.T) {
	h := newTestRouter(t)
	rec, env := do(t, h, http.MethodGet, "/healthz", "", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", env.Status)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestProtectedRoutesRequireBearer(t *testing.T) {
	h := newTestRouter(t)
	rec, env := do(t, h, http.MethodGet, "/v1/tickets", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", env.Code)

	rec, _ = do(t, h, http.MethodGet, "/v1/tickets", "u1", "system", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAnonymousSubmissionNeedsContact(t *testing.T) {
	h := newTestRouter(t)
	body := map[string]any{"raw_text": "Pothole near the market", "department": "road"}
	rec, env := do(t, h, http.MethodPost, "/v1/tickets/submit", "", "", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)

	body["contact_info"] = map[string]any{"phone": "+91 98765 43210"}
	rec, env = do(t, h, http.MethodPost, "/v1/tickets/submit", "", "", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	ticket := decodeData[map[string]any](t, env)
	assert.Equal(t, "pending", ticket["status"])
}

func TestDispatchFlowOverHTTP(t *testing.T) {
	h := newTestRouter(t)

	rec, env := do(t, h, http.MethodPost, "/v1/workers", "admin-1", "admin", map[string]any{
		"username":   "ravi.k",
		"department": "water",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	worker := decodeData[map[string]any](t, env)
	workerID := worker["worker_id"].(string)

	rec, env = do(t, h, http.MethodPost, "/v1/tickets", "citizen-1", "", map[string]any{
		"raw_text":   "Pipe burst on 5th cross",
		"department": "water",
		"priority":   "high",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	ticketID := decodeData[map[string]any](t, env)["ticket_id"].(string)

	rec, env = do(t, h, http.MethodPost, "/v1/tickets/"+ticketID+"/assign", "citizen-1", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = do(t, h, http.MethodPost, "/v1/tickets/"+ticketID+"/assign", "admin-1", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code, env.Message)
	assigned := decodeData[map[string]any](t, env)
	assert.Equal(t, workerID, assigned["assigned_worker_id"])
	assert.Equal(t, "assigned", assigned["status"])

	rec, env = do(t, h, http.MethodPost, "/v1/tickets/"+ticketID+"/assign", "admin-1", "admin", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ALREADY_ASSIGNED", env.Code)

	rec, _ = do(t, h, http.MethodPost, "/v1/tickets/"+ticketID+"/status", workerID, "worker", map[string]any{"status": "in-progress"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = do(t, h, http.MethodPost, "/v1/tickets/"+ticketID+"/status", workerID, "worker", map[string]any{"status": "resolved"})
	require.Equal(t, http.StatusOK, rec.Code)
	resolved := decodeData[map[string]any](t, env)
	assert.Equal(t, "resolved", resolved["status"])

	rec, env = do(t, h, http.MethodPost, "/v1/tickets/"+ticketID+"/status", workerID, "worker", map[string]any{"status": "resolved"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ALREADY_RESOLVED", env.Code)

	rec, env = do(t, h, http.MethodGet, "/v1/workers/"+workerID, "admin-1", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	after := decodeData[map[string]any](t, env)
	metrics := after["metrics"].(map[string]any)
	assert.EqualValues(t, 1, metrics["total_completed"])
	assert.Empty(t, after["active_ticket_ids"])

	rec, env = do(t, h, http.MethodGet, "/v1/analytics/stats?timeframe=7days&department=water", "admin-1", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeData[map[string]any](t, env)
	assert.EqualValues(t, 1, stats["total_complaints"])
	assert.EqualValues(t, 1, stats["resolved_complaints"])
}

func TestInvalidTransitionMapsTo422(t *testing.T) {
	h := newTestRouter(t)
	rec, env := do(t, h, http.MethodPost, "/v1/tickets", "citizen-1", "", map[string]any{
		"raw_text":   "Streetlight out",
		"department": "electricity",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	ticketID := decodeData[map[string]any](t, env)["ticket_id"].(string)

	rec, env = do(t, h, http.MethodPost, "/v1/tickets/"+ticketID+"/status", "admin-1", "admin", map[string]any{"status": "resolved"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "INVALID_TRANSITION", env.Code)
}

func TestUnknownTicketIsNotFound(t *testing.T) {
	h := newTestRouter(t)
	rec, env := do(t, h, http.MethodGet, "/v1/tickets/CMP-NOPE", "admin-1", "admin", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", env.Code)
}

func TestAdminEndpointsRequireAdmin(t *testing.T) {
	h := newTestRouter(t)
	rec, _ := do(t, h, http.MethodPost, "/v1/admin/escalations/sweep", "head-1", "head", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env := do(t, h, http.MethodPost, "/v1/admin/escalations/sweep", "admin-1", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeData[application.EscalationResult](t, env)
	assert.Empty(t, result.TicketsUpdated)

	rec, env = do(t, h, http.MethodPost, "/v1/admin/workers/reset-window", "admin-1", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decodeData[map[string]any](t, env)["workers_reset"])
}

func TestMalformedBodyIsRejected(t *testing.T) {
	h := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/tickets", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer citizen-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
