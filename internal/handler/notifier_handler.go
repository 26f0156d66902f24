package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/shift-bots/internal/dto"
	"github.com/noah-isme/shift-bots/internal/service"
	appErrors "github.com/noah-isme/shift-bots/pkg/errors"
	"github.com/noah-isme/shift-bots/pkg/jobs"
	"github.com/noah-isme/shift-bots/pkg/middleware/requestid"
	"github.com/noah-isme/shift-bots/pkg/response"
)

const (
	slackBotRunning  = "Slack Bot is running."
	postEventsQueued = "Processing events and posting to Slack"
)

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// NotifierHandler exposes the slack-bot endpoints.
type NotifierHandler struct {
	queue  jobDispatcher
	logger *zap.Logger
}

// NewNotifierHandler constructs the handler.
func NewNotifierHandler(queue jobDispatcher, logger *zap.Logger) *NotifierHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotifierHandler{queue: queue, logger: logger}
}

// Register mounts the slack-bot routes.
func (h *NotifierHandler) Register(r gin.IRoutes) {
	r.GET("/", h.Root)
	r.GET("/post_events", h.PostEvents)
}

// Root is the health check.
func (h *NotifierHandler) Root(c *gin.Context) {
	response.OK(c, dto.StatusResponse{Message: slackBotRunning})
}

// PostEvents schedules the fetch-and-post job and acknowledges at once.
func (h *NotifierHandler) PostEvents(c *gin.Context) {
	job := jobs.Job{ID: uuid.NewString(), Type: service.JobTypePostEvents, Payload: requestid.Value(c)}
	if err := h.queue.Enqueue(job); err != nil {
		h.logger.Warn("post_events not scheduled", zap.String("job_id", job.ID), zap.Error(err))
		response.Error(c, appErrors.Wrap(err, appErrors.ErrQueueUnavailable.Code, appErrors.ErrQueueUnavailable.Status, appErrors.ErrQueueUnavailable.Message))
		return
	}
	response.OK(c, dto.PostEventsResponse{Status: postEventsQueued, JobID: job.ID})
}
