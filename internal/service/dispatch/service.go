package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/giftnotify/push-api/internal/model"
	"github.com/giftnotify/push-api/internal/repository"
	"github.com/giftnotify/push-api/pkg/metrics"
	"github.com/giftnotify/push-api/pkg/webpush"
)

// maxErrorLen bounds the transport error text stored per subscription.
const maxErrorLen = 800

type DispatchService interface {
	Dispatch(ctx context.Context, msg *model.Message) (*model.DispatchResult, error)
}

// Transport delivers one encrypted message to one endpoint.
type Transport interface {
	Deliver(ctx context.Context, sub *webpush.Subscription, payload []byte) *webpush.Result
}

// Service executes one fan-out of a message to every registered
// subscription. Per-subscription failures never abort the fan-out; the
// operation always completes and reports aggregate counts.
type Service struct {
	subs    repository.SubscriptionRepository
	history repository.HistoryRepository
	client  Transport
	workers int
	metrics *metrics.Metrics
}

func NewService(subs repository.SubscriptionRepository, history repository.HistoryRepository,
	client Transport, workers int, m *metrics.Metrics) *Service {
	if workers <= 0 {
		workers = 1
	}
	return &Service{
		subs:    subs,
		history: history,
		client:  client,
		workers: workers,
		metrics: m,
	}
}

type outcome struct {
	sent    bool
	failed  bool
	removed bool
}

// Dispatch snapshots the registry, delivers the message to every
// subscription over a bounded worker pool, and appends exactly one
// history row with the aggregated counts after all workers have joined.
func (s *Service) Dispatch(ctx context.Context, msg *model.Message) (*model.DispatchResult, error) {
	timer := prometheus.NewTimer(s.metrics.DispatchDuration)
	defer timer.ObserveDuration()

	msg.Normalize()
	payload, err := msg.Payload()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize message: %w", err)
	}

	subs, err := s.subs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}

	result := &model.DispatchResult{}
	if len(subs) > 0 {
		result = s.fanOut(ctx, subs, payload)
	}

	s.metrics.DispatchesTotal.Inc()
	log.Info().
		Str("title", msg.Title).
		Int("subscribers", len(subs)).
		Int("sent", result.Sent).
		Int("failed", result.Failed).
		Int("removed", result.Removed).
		Msg("dispatch completed")

	attempt := &model.DeliveryAttempt{
		ID:      uuid.New(),
		Time:    time.Now().UTC(),
		Title:   msg.Title,
		Body:    msg.Body,
		Image:   msg.Image,
		Link:    msg.Link,
		Sent:    result.Sent,
		Failed:  result.Failed,
		Removed: result.Removed,
	}
	if err := s.history.Append(ctx, attempt); err != nil {
		return result, fmt.Errorf("failed to append history: %w", err)
	}

	if count, err := s.subs.Count(ctx); err == nil {
		s.metrics.Subscribers.Set(float64(count))
	}

	return result, nil
}

func (s *Service) fanOut(ctx context.Context, subs []*model.Subscription, payload []byte) *model.DispatchResult {
	workers := s.workers
	if workers > len(subs) {
		workers = len(subs)
	}

	jobs := make(chan *model.Subscription)
	outcomes := make(chan outcome, len(subs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sub := range jobs {
				outcomes <- s.deliver(ctx, sub, payload)
			}
		}()
	}

	for _, sub := range subs {
		jobs <- sub
	}
	close(jobs)
	wg.Wait()
	close(outcomes)

	result := &model.DispatchResult{}
	for o := range outcomes {
		if o.sent {
			result.Sent++
		}
		if o.failed {
			result.Failed++
		}
		if o.removed {
			result.Removed++
		}
	}
	return result
}

func (s *Service) deliver(ctx context.Context, sub *model.Subscription, payload []byte) outcome {
	res := s.client.Deliver(ctx, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		P256dh:   sub.P256dh,
		Auth:     sub.Auth,
	}, payload)

	if res.Delivered() {
		if err := s.subs.RecordOutcome(ctx, sub.ID, model.SubscriptionStatusSent, ""); err != nil {
			log.Error().Err(err).Str("subscription_id", sub.ID.String()).Msg("failed to record delivery")
		}
		s.metrics.DeliveriesTotal.WithLabelValues("sent").Inc()
		return outcome{sent: true}
	}

	errText := res.ErrorText()
	if len(errText) > maxErrorLen {
		errText = errText[:maxErrorLen]
	}
	if err := s.subs.RecordOutcome(ctx, sub.ID, model.SubscriptionStatusFailed, errText); err != nil {
		log.Error().Err(err).Str("subscription_id", sub.ID.String()).Msg("failed to record failure")
	}

	// 404/410 means the client unsubscribed or the subscription expired.
	// The entry is recorded as failed, then removed; both counters
	// increment for this case.
	if res.EndpointGone() {
		if err := s.subs.Delete(ctx, sub.ID); err != nil {
			log.Error().Err(err).Str("subscription_id", sub.ID.String()).Msg("failed to remove dead subscription")
		}
		s.metrics.DeliveriesTotal.WithLabelValues("removed").Inc()
		return outcome{failed: true, removed: true}
	}

	s.metrics.DeliveriesTotal.WithLabelValues("failed").Inc()
	return outcome{failed: true}
}
