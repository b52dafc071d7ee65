package subscriber

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giftnotify/push-api/internal/model"
	"github.com/giftnotify/push-api/internal/service/geoip"
	"github.com/giftnotify/push-api/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("subscriber_test", "core")

// fakeSubscriptionRepo upserts by endpoint the way the real table's
// unique constraint does.
type fakeSubscriptionRepo struct {
	mu   sync.Mutex
	rows map[string]*model.Subscription
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{rows: make(map[string]*model.Subscription)}
}

func (r *fakeSubscriptionRepo) Upsert(_ context.Context, sub *model.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.rows[sub.Endpoint]; ok {
		sub.ID = existing.ID
		sub.LastStatus = existing.LastStatus
		sub.LastError = existing.LastError
	}
	r.rows[sub.Endpoint] = sub
	return nil
}

func (r *fakeSubscriptionRepo) List(_ context.Context) ([]*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Subscription, 0, len(r.rows))
	for _, sub := range r.rows {
		out = append(out, sub)
	}
	return out, nil
}

func (r *fakeSubscriptionRepo) RecordOutcome(_ context.Context, _ uuid.UUID, _, _ string) error {
	return nil
}

func (r *fakeSubscriptionRepo) Delete(_ context.Context, _ uuid.UUID) error { return nil }

func (r *fakeSubscriptionRepo) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows), nil
}

func testGeoIPServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "success",
			"country": "Germany",
			"city":    "Berlin",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func registerRequest(endpoint string) *model.RegisterRequest {
	return &model.RegisterRequest{
		Subscription: model.SubscriptionPayload{
			Endpoint: endpoint,
			Keys:     model.SubscriptionKeys{P256dh: "key1", Auth: "auth1"},
		},
		Nickname:  "alice",
		Email:     "alice@example.com",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0",
	}
}

func TestRegisterStoresSubscription(t *testing.T) {
	repo := newFakeSubscriptionRepo()
	resolver := geoip.NewResolver(testGeoIPServer(t).URL, time.Second, time.Minute)
	svc := NewService(repo, resolver, testMetrics)

	sub, err := svc.Register(context.Background(), registerRequest("https://push.example.com/a"), "203.0.113.9")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, sub.ID)
	assert.Equal(t, "https://push.example.com/a", sub.Endpoint)
	assert.Equal(t, "key1", sub.P256dh)
	assert.Equal(t, "auth1", sub.Auth)
	assert.Equal(t, "Windows · Chrome", sub.Device)
	assert.Equal(t, "203.0.113.9", sub.IP)
	assert.Equal(t, "Berlin", sub.City)
	assert.Equal(t, "Germany", sub.Country)
	assert.Equal(t, "alice", sub.Nickname)
	assert.False(t, sub.RegisteredAt.IsZero())

	count, err := svc.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRegisterSameEndpointOverwrites(t *testing.T) {
	repo := newFakeSubscriptionRepo()
	resolver := geoip.NewResolver(testGeoIPServer(t).URL, time.Second, time.Minute)
	svc := NewService(repo, resolver, testMetrics)

	_, err := svc.Register(context.Background(), registerRequest("https://push.example.com/a"), "203.0.113.9")
	require.NoError(t, err)

	// The browser rotated its keys for the same endpoint.
	refreshed := registerRequest("https://push.example.com/a")
	refreshed.Subscription.Keys = model.SubscriptionKeys{P256dh: "key2", Auth: "auth2"}
	refreshed.Nickname = "bob"
	_, err = svc.Register(context.Background(), refreshed, "203.0.113.9")
	require.NoError(t, err)

	count, err := svc.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	stored := repo.rows["https://push.example.com/a"]
	assert.Equal(t, "key2", stored.P256dh)
	assert.Equal(t, "auth2", stored.Auth)
	assert.Equal(t, "bob", stored.Nickname)
}

func TestListSubscribersOmitsKeyMaterial(t *testing.T) {
	repo := newFakeSubscriptionRepo()
	resolver := geoip.NewResolver(testGeoIPServer(t).URL, time.Second, time.Minute)
	svc := NewService(repo, resolver, testMetrics)

	_, err := svc.Register(context.Background(), registerRequest("https://push.example.com/a"), "203.0.113.9")
	require.NoError(t, err)

	views, err := svc.ListSubscribers(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 1)

	assert.Equal(t, "alice", views[0].Nickname)
	assert.Equal(t, "Berlin", views[0].City)

	// The wire form must never leak the endpoint or encryption keys.
	raw, err := json.Marshal(views[0])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "endpoint")
	assert.NotContains(t, string(raw), "key1")
	assert.NotContains(t, string(raw), "auth1")
	assert.Contains(t, string(raw), "subscribed_at")
}

func TestRegisterToleratesGeoIPOutage(t *testing.T) {
	repo := newFakeSubscriptionRepo()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, `{"status":"fail"}`)
	}))
	t.Cleanup(srv.Close)
	resolver := geoip.NewResolver(srv.URL, time.Second, time.Minute)
	svc := NewService(repo, resolver, testMetrics)

	sub, err := svc.Register(context.Background(), registerRequest("https://push.example.com/a"), "203.0.113.9")
	require.NoError(t, err)
	assert.Empty(t, sub.City)
	assert.Empty(t, sub.Country)
}
