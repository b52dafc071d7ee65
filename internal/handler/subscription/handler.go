package subscription

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/giftnotify/push-api/internal/handler"
	"github.com/giftnotify/push-api/internal/model"
	"github.com/giftnotify/push-api/internal/service/subscriber"
)

type Handler struct {
	service        subscriber.SubscriberService
	vapidPublicKey string
}

func NewHandler(service subscriber.SubscriberService, vapidPublicKey string) *Handler {
	return &Handler{
		service:        service,
		vapidPublicKey: vapidPublicKey,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/subscribe", h.Subscribe)
	r.GET("/vapid-key", h.VAPIDKey)
}

// Subscribe registers or refreshes a push endpoint. Payloads missing
// the endpoint or key material are rejected here and never reach the
// registry.
func (h *Handler) Subscribe(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid subscription"))
		return
	}

	if req.UserAgent == "" {
		req.UserAgent = c.Request.UserAgent()
	}

	if _, err := h.service.Register(c.Request.Context(), &req, c.ClientIP()); err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"ok": true}))
}

// VAPIDKey exposes the public signing key browsers need to create a
// subscription.
func (h *Handler) VAPIDKey(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"key": h.vapidPublicKey}))
}
