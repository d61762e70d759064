// internal/service/order/interfaces/http_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"orderstream/internal/pkg/logger"
	"orderstream/internal/service/order/application"
	"orderstream/internal/service/order/domain"
	"orderstream/internal/service/order/domain/port"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// OrderSender 是创建订单用例
type OrderSender interface {
	SendOrder(ctx context.Context, productName string, price float64, quantity int) (string, error)
}

// StatisticsProvider 是统计查询和重置用例
type StatisticsProvider interface {
	Statistics() domain.OrderStatistics
	Reset(ctx context.Context)
}

// OrderHandler 封装了 order 服务的 HTTP 处理器
type OrderHandler struct {
	producer    OrderSender
	stats       StatisticsProvider
	deadLetters port.DeadLetterRepository
	origin      string
}

// NewOrderHandler deadLetters 为 nil 时死信查询接口返回 503
func NewOrderHandler(producer OrderSender, stats StatisticsProvider, deadLetters port.DeadLetterRepository, origin string) *OrderHandler {
	return &OrderHandler{producer: producer, stats: stats, deadLetters: deadLetters, origin: origin}
}

// RegisterRoutes 在 chi 路由上注册所有路由
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.handleCreateOrder)
		r.Get("/statistics", h.handleGetStatistics)
		r.Post("/statistics/reset", h.handleResetStatistics)
		r.Get("/health", h.handleHealth)
		r.Get("/dead-letters", h.handleRecentDeadLetters)
	})
}

func (h *OrderHandler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	var req application.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	orderID, err := h.producer.SendOrder(ctx, req.ProductName, req.Price, req.Quantity)
	if err != nil {
		var pe *domain.PublishError
		switch {
		case errors.Is(err, domain.ErrInvalidOrder):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.As(err, &pe):
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error":   "Failed to create order",
				"message": pe.Error(),
			})
		default:
			logger.Ctx(ctx).Error().Err(err).Msg("Unexpected error creating order")
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error":   "Failed to create order",
				"message": err.Error(),
			})
		}
		return
	}

	writeJSON(w, http.StatusCreated, application.CreateOrderResponse{
		OrderID: orderID,
		Status:  domain.StatusPending,
		Message: "Order created successfully",
	})
}

func (h *OrderHandler) handleGetStatistics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats.Statistics())
}

func (h *OrderHandler) handleResetStatistics(w http.ResponseWriter, r *http.Request) {
	h.stats.Reset(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"message": "Statistics reset successfully"})
}

func (h *OrderHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "UP", "origin": h.origin})
}

func (h *OrderHandler) handleRecentDeadLetters(w http.ResponseWriter, r *http.Request) {
	if h.deadLetters == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "dead letter archive is not configured"})
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	records, err := h.deadLetters.Recent(r.Context(), limit)
	if err != nil {
		logger.Ctx(r.Context()).Error().Err(err).Msg("Failed to list dead letters")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	views := make([]application.DeadLetterView, len(records))
	for i, rec := range records {
		views[i] = application.ToDeadLetterView(rec)
	}
	writeJSON(w, http.StatusOK, views)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
