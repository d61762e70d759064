package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"orderstream/internal/service/order/domain"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSender struct {
	id      string
	err     error
	gotName string
	gotQty  int
}

func (s *stubSender) SendOrder(_ context.Context, productName string, _ float64, quantity int) (string, error) {
	s.gotName, s.gotQty = productName, quantity
	return s.id, s.err
}

type stubStats struct {
	stats  domain.OrderStatistics
	resets int
}

func (s *stubStats) Statistics() domain.OrderStatistics { return s.stats }
func (s *stubStats) Reset(context.Context)              { s.resets++ }

func newTestRouter(sender *stubSender, stats *stubStats, archive *memoryArchive) http.Handler {
	r := chi.NewRouter()
	h := NewOrderHandler(sender, stats, nil, "IT-2024-001")
	if archive != nil {
		h = NewOrderHandler(sender, stats, archive, "IT-2024-001")
	}
	h.RegisterRoutes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestCreateOrder(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		senderErr  error
		wantStatus int
		wantKeys   map[string]any
	}{
		{
			name:       "created",
			body:       `{"productName":"Mouse","price":25.5,"quantity":2}`,
			wantStatus: http.StatusCreated,
			wantKeys:   map[string]any{"orderId": "o-1", "status": "PENDING", "message": "Order created successfully"},
		},
		{
			name:       "malformed body",
			body:       `{"productName":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid request",
			body:       `{"productName":"","price":1,"quantity":1}`,
			senderErr:  errors.Join(domain.ErrInvalidOrder, errors.New("productName is required")),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "publish failure",
			body:       `{"productName":"Mouse","price":1,"quantity":1}`,
			senderErr:  &domain.PublishError{Topic: "orders", OrderID: "o-1", Err: errors.New("broker down")},
			wantStatus: http.StatusInternalServerError,
			wantKeys:   map[string]any{"error": "Failed to create order"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &stubSender{id: "o-1", err: tt.senderErr}
			if tt.senderErr != nil {
				sender.id = ""
			}
			rec, body := do(t, newTestRouter(sender, &stubStats{}, nil), http.MethodPost, "/orders", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			for k, v := range tt.wantKeys {
				assert.Equal(t, v, body[k], k)
			}
		})
	}
}

func TestCreateOrder_PassesFields(t *testing.T) {
	sender := &stubSender{id: "o-9"}
	rec, _ := do(t, newTestRouter(sender, &stubStats{}, nil), http.MethodPost, "/orders/", `{"productName":"Pen","price":-5,"quantity":4}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Pen", sender.gotName)
	assert.Equal(t, 4, sender.gotQty)
}

func TestStatisticsRoutes(t *testing.T) {
	stats := &stubStats{stats: domain.OrderStatistics{
		TotalOrders: 2, RunningAverage: 14.995, TotalRevenue: 79.97, SuccessfulOrders: 2, FailedOrders: 1,
	}}
	router := newTestRouter(&stubSender{}, stats, nil)

	rec, body := do(t, router, http.MethodGet, "/orders/statistics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, body["totalOrders"])
	assert.EqualValues(t, 79.97, body["totalRevenue"])
	assert.EqualValues(t, 1, body["failedOrders"])

	rec, body = do(t, router, http.MethodPost, "/orders/statistics/reset", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Statistics reset successfully", body["message"])
	assert.Equal(t, 1, stats.resets)
}

func TestHealth(t *testing.T) {
	rec, body := do(t, newTestRouter(&stubSender{}, &stubStats{}, nil), http.MethodGet, "/orders/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "UP", body["status"])
	assert.Equal(t, "IT-2024-001", body["origin"])
}

func TestRecentDeadLetters(t *testing.T) {
	archive := &memoryArchive{records: []*domain.ArchivedDeadLetter{
		{OrderID: "o-1", ErrorReason: "invalid price value: -5", ArchivedAt: time.UnixMilli(5000)},
		{OrderID: "o-2", ErrorReason: "decode order: missing orderId", ArchivedAt: time.UnixMilli(6000)},
	}}
	router := newTestRouter(&stubSender{}, &stubStats{}, archive)

	rec, _ := do(t, router, http.MethodGet, "/orders/dead-letters?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var views []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "o-1", views[0]["orderId"])
	assert.EqualValues(t, 5000, views[0]["archivedAt"])

	rec, _ = do(t, router, http.MethodGet, "/orders/dead-letters?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	archive.err = errors.New("db down")
	rec, _ = do(t, router, http.MethodGet, "/orders/dead-letters", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRecentDeadLetters_NotConfigured(t *testing.T) {
	rec, _ := do(t, newTestRouter(&stubSender{}, &stubStats{}, nil), http.MethodGet, "/orders/dead-letters", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
