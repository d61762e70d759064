// internal/service/order/application/statistics.go
package application

import (
	"context"

	"orderstream/internal/pkg/logger"
	"orderstream/internal/pkg/metrics"
	"orderstream/internal/service/order/domain"
	"orderstream/internal/service/order/domain/port"
)

// StatisticsService 是统计查询和重置的入口，重置后会广播一份新快照
type StatisticsService struct {
	aggregator *Aggregator
	notifier   port.NotificationPublisher
}

func NewStatisticsService(aggregator *Aggregator, notifier port.NotificationPublisher) *StatisticsService {
	return &StatisticsService{aggregator: aggregator, notifier: notifier}
}

func (s *StatisticsService) Statistics() domain.OrderStatistics {
	return s.aggregator.Snapshot()
}

func (s *StatisticsService) Reset(ctx context.Context) {
	s.aggregator.Reset()
	logger.Ctx(ctx).Info().Msg("Statistics reset")

	if err := s.notifier.PublishStatistics(ctx, s.aggregator.Snapshot()); err != nil {
		metrics.SinkFailures.WithLabelValues(metrics.SinkNotification).Inc()
		logger.Ctx(ctx).Error().Err(err).Msg("Failed to broadcast statistics after reset")
	}
}
