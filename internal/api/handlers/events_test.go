package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formflux/formflux/internal/logging"
	"github.com/formflux/formflux/internal/models"
	"github.com/formflux/formflux/internal/testutil/fakes"
	"github.com/formflux/formflux/pkg/clock"
)

var handlerNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newEventRouter(enqueuer *fakes.FakeEnqueuer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewEventHandler(logging.NewNoOpLogger(), enqueuer, clock.NewFixed(handlerNow))
	router := gin.New()
	router.POST("/api/v1/events", handler.IngestEvent)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestIngestEvent_WhenPayloadValid_ThenAcceptedAndEnqueued(t *testing.T) {
	// Arrange
	enqueuer := fakes.NewFakeEnqueuer()
	router := newEventRouter(enqueuer)

	// Act
	w := postJSON(t, router, "/api/v1/events", gin.H{
		"event_type":  "form.submitted",
		"tenant_id":   "tenant-1",
		"source_type": "form",
		"data":        gin.H{"amount": 150},
	})

	// Assert
	assert.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, enqueuer.EventJobs, 1)
	job := enqueuer.EventJobs[0]
	assert.Equal(t, "tenant-1", job.Event.TenantID)
	assert.Equal(t, "form.submitted", job.Event.EventType)
	assert.Equal(t, 1, job.Attempt)
	assert.Equal(t, handlerNow, job.Event.OccurredAt)

	var body struct {
		Data models.IngestEventResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, job.Event.ID, body.Data.EventID)
}

func TestIngestEvent_WhenOccurredAtProvided_ThenPreserved(t *testing.T) {
	// Arrange
	enqueuer := fakes.NewFakeEnqueuer()
	router := newEventRouter(enqueuer)
	occurredAt := time.Date(2026, 2, 28, 9, 0, 0, 0, time.UTC)

	// Act
	w := postJSON(t, router, "/api/v1/events", gin.H{
		"event_type":  "form.submitted",
		"tenant_id":   "tenant-1",
		"source_type": "form",
		"data":        gin.H{},
		"occurred_at": occurredAt.Format(time.RFC3339),
	})

	// Assert
	assert.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, enqueuer.EventJobs, 1)
	assert.True(t, enqueuer.EventJobs[0].Event.OccurredAt.Equal(occurredAt))
}

func TestIngestEvent_WhenRequiredFieldsMissing_ThenBadRequest(t *testing.T) {
	// Arrange
	enqueuer := fakes.NewFakeEnqueuer()
	router := newEventRouter(enqueuer)

	// Act
	w := postJSON(t, router, "/api/v1/events", gin.H{"event_type": "form.submitted"})

	// Assert
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, enqueuer.EventJobs)
}

func TestIngestEvent_WhenSourceTypeUnknown_ThenBadRequest(t *testing.T) {
	// Arrange
	enqueuer := fakes.NewFakeEnqueuer()
	router := newEventRouter(enqueuer)

	// Act
	w := postJSON(t, router, "/api/v1/events", gin.H{
		"event_type":  "form.submitted",
		"tenant_id":   "tenant-1",
		"source_type": "carrier_pigeon",
		"data":        gin.H{},
	})

	// Assert
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIngestEvent_WhenQueueUnavailable_ThenInternalServerError(t *testing.T) {
	// Arrange
	enqueuer := fakes.NewFakeEnqueuer()
	enqueuer.Err = errors.New("broker unavailable")
	router := newEventRouter(enqueuer)

	// Act
	w := postJSON(t, router, "/api/v1/events", gin.H{
		"event_type":  "form.submitted",
		"tenant_id":   "tenant-1",
		"source_type": "form",
		"data":        gin.H{},
	})

	// Assert
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
