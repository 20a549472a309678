package livestream

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lumina-live/backend/internal/metrics"
	"github.com/lumina-live/backend/pkg/response"
)

// Handler exposes the session start/end endpoints.
type Handler struct {
	svc     *Service
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewHandler creates a livestream handler. Metrics may be nil (tests).
func NewHandler(svc *Service, logger *zap.Logger, m *metrics.Metrics) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger, metrics: m}
}

type startRequest struct {
	StreamName string `json:"streamName"`
}

type endRequest struct {
	StreamDetails Session `json:"streamDetails"`
}

// Start handles POST /start.
// Body: { "streamName": "my-stream" }.
func (h *Handler) Start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	session, err := h.svc.Start(c.Request.Context(), req.StreamName)
	if err != nil {
		if errors.Is(err, ErrStreamNameRequired) {
			response.BadRequest(c, ErrStreamNameRequired.Error())
			return
		}
		h.logger.Error("start livestream", zap.String("stream_name", req.StreamName), zap.Error(err))
		if h.metrics != nil {
			h.metrics.IncVendorErrors()
		}
		response.Fail(c, http.StatusBadGateway, "Unable to create livestream", ErrCreation)
		return
	}

	if h.metrics != nil {
		h.metrics.IncSessionsStarted()
	}
	response.OK(c, session)
}

// End handles POST /end.
// Body: { "streamDetails": { streamName, roomId, playerStreamerId, mediaProcessorId } }.
func (h *Handler) End(c *gin.Context) {
	var req endRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	if err := h.svc.End(c.Request.Context(), req.StreamDetails); err != nil {
		h.logger.Error("end livestream", zap.String("stream_name", req.StreamDetails.StreamName), zap.Error(err))
		if h.metrics != nil {
			h.metrics.IncVendorErrors()
		}
		response.Fail(c, http.StatusBadGateway, "Unable to end livestream", ErrTeardown)
		return
	}

	if h.metrics != nil {
		h.metrics.IncSessionsEnded()
	}
	response.Message(c, "Successfully ended stream "+req.StreamDetails.StreamName)
}
