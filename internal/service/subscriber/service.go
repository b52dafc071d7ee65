package subscriber

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/giftnotify/push-api/internal/model"
	"github.com/giftnotify/push-api/internal/repository"
	"github.com/giftnotify/push-api/internal/service/geoip"
	"github.com/giftnotify/push-api/pkg/metrics"
	"github.com/giftnotify/push-api/pkg/useragent"
)

type SubscriberService interface {
	Register(ctx context.Context, req *model.RegisterRequest, ip string) (*model.Subscription, error)
	ListSubscribers(ctx context.Context) ([]*model.SubscriberView, error)
	Count(ctx context.Context) (int, error)
}

type Service struct {
	repo    repository.SubscriptionRepository
	geoip   *geoip.Resolver
	metrics *metrics.Metrics
}

func NewService(repo repository.SubscriptionRepository, resolver *geoip.Resolver, m *metrics.Metrics) *Service {
	return &Service{
		repo:    repo,
		geoip:   resolver,
		metrics: m,
	}
}

// Register stores or refreshes the subscription for an endpoint.
// Repeated registrations of the same endpoint overwrite the existing
// row wholesale; key material is never merged field by field.
func (s *Service) Register(ctx context.Context, req *model.RegisterRequest, ip string) (*model.Subscription, error) {
	loc := s.geoip.Lookup(ctx, ip)

	sub := &model.Subscription{
		ID:           uuid.New(),
		Endpoint:     req.Subscription.Endpoint,
		P256dh:       req.Subscription.Keys.P256dh,
		Auth:         req.Subscription.Keys.Auth,
		UserAgent:    req.UserAgent,
		Device:       useragent.DeviceLabel(req.UserAgent),
		IP:           ip,
		City:         loc.City,
		Country:      loc.Country,
		Nickname:     req.Nickname,
		Email:        req.Email,
		RegisteredAt: time.Now().UTC(),
	}

	if err := s.repo.Upsert(ctx, sub); err != nil {
		s.metrics.DatabaseOperations.WithLabelValues("upsert_subscription", "error").Inc()
		return nil, fmt.Errorf("failed to register subscription: %w", err)
	}
	s.metrics.DatabaseOperations.WithLabelValues("upsert_subscription", "success").Inc()
	s.metrics.RegistrationsTotal.Inc()

	if count, err := s.repo.Count(ctx); err == nil {
		s.metrics.Subscribers.Set(float64(count))
	}

	return sub, nil
}

// ListSubscribers returns the display projection, newest first, with
// key material stripped.
func (s *Service) ListSubscribers(ctx context.Context) ([]*model.SubscriberView, error) {
	subs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}

	views := make([]*model.SubscriberView, 0, len(subs))
	for _, sub := range subs {
		views = append(views, sub.View())
	}
	return views, nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count subscribers: %w", err)
	}
	return count, nil
}
