package subscription

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giftnotify/push-api/internal/handler"
	"github.com/giftnotify/push-api/internal/model"
)

type fakeSubscriberService struct {
	registered []*model.RegisterRequest
	ips        []string
	err        error
}

func (f *fakeSubscriberService) Register(_ context.Context, req *model.RegisterRequest, ip string) (*model.Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.registered = append(f.registered, req)
	f.ips = append(f.ips, ip)
	return &model.Subscription{Endpoint: req.Subscription.Endpoint}, nil
}

func (f *fakeSubscriberService) ListSubscribers(_ context.Context) ([]*model.SubscriberView, error) {
	return nil, nil
}

func (f *fakeSubscriberService) Count(_ context.Context) (int, error) {
	return len(f.registered), nil
}

func setupRouter(svc *fakeSubscriberService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler.RegisterValidations()
	r := gin.New()
	NewHandler(svc, "test-public-key").RegisterRoutes(r.Group(""))
	return r
}

func TestSubscribe(t *testing.T) {
	svc := &fakeSubscriberService{}
	r := setupRouter(svc)

	body := `{
		"subscription": {
			"endpoint": "https://push.example.com/a",
			"keys": {"p256dh": "a2V5MQ", "auth": "YXV0aDE"}
		},
		"nickname": "alice",
		"ua": "Mozilla/5.0"
	}`
	req := httptest.NewRequest(http.MethodPost, "/subscribe", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.registered, 1)
	assert.Equal(t, "https://push.example.com/a", svc.registered[0].Subscription.Endpoint)
	assert.Equal(t, "Mozilla/5.0", svc.registered[0].UserAgent)
}

func TestSubscribeFallsBackToUserAgentHeader(t *testing.T) {
	svc := &fakeSubscriberService{}
	r := setupRouter(svc)

	body := `{
		"subscription": {
			"endpoint": "https://push.example.com/a",
			"keys": {"p256dh": "a2V5MQ", "auth": "YXV0aDE"}
		}
	}`
	req := httptest.NewRequest(http.MethodPost, "/subscribe", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "TestBrowser/1.0")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.registered, 1)
	assert.Equal(t, "TestBrowser/1.0", svc.registered[0].UserAgent)
}

func TestSubscribeRejectsIncompletePayload(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing subscription", `{"nickname": "alice"}`},
		{"missing keys", `{"subscription": {"endpoint": "https://push.example.com/a"}}`},
		{"missing auth key", `{"subscription": {"endpoint": "https://push.example.com/a", "keys": {"p256dh": "k"}}}`},
		{"endpoint not a url", `{"subscription": {"endpoint": "nope", "keys": {"p256dh": "k", "auth": "a"}}}`},
		{"keys not base64", `{"subscription": {"endpoint": "https://push.example.com/a", "keys": {"p256dh": "%%%", "auth": "a"}}}`},
		{"not json", `hello`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeSubscriberService{}
			r := setupRouter(svc)

			req := httptest.NewRequest(http.MethodPost, "/subscribe", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, svc.registered)
		})
	}
}

func TestVAPIDKey(t *testing.T) {
	r := setupRouter(&fakeSubscriberService{})

	req := httptest.NewRequest(http.MethodGet, "/vapid-key", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success","data":{"key":"test-public-key"}}`, w.Body.String())
}
