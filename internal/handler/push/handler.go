package push

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/giftnotify/push-api/internal/handler"
	"github.com/giftnotify/push-api/internal/model"
	"github.com/giftnotify/push-api/internal/repository"
	"github.com/giftnotify/push-api/internal/service/dispatch"
	"github.com/giftnotify/push-api/internal/service/subscriber"
)

type Handler struct {
	dispatcher  dispatch.DispatchService
	subscribers subscriber.SubscriberService
	history     repository.HistoryRepository
}

func NewHandler(dispatcher dispatch.DispatchService, subscribers subscriber.SubscriberService,
	history repository.HistoryRepository) *Handler {
	return &Handler{
		dispatcher:  dispatcher,
		subscribers: subscribers,
		history:     history,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/send", h.Send)
	r.GET("/subscribers", h.ListSubscribers)
	r.GET("/history", h.ListHistory)
	r.GET("/stats", h.Stats)
}

// Send fans the message out to every registered subscription and
// returns the aggregate counts. Per-subscriber failures are reflected
// in the counts, never as an error.
func (h *Handler) Send(c *gin.Context) {
	var msg model.Message
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	result, err := h.dispatcher.Dispatch(c.Request.Context(), &msg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

func (h *Handler) ListSubscribers(c *gin.Context) {
	views, err := h.subscribers.ListSubscribers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(views))
}

func (h *Handler) ListHistory(c *gin.Context) {
	attempts, err := h.history.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(attempts))
}

func (h *Handler) Stats(c *gin.Context) {
	count, err := h.subscribers.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"count": count}))
}
