package tokens

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lumina-live/backend/internal/metrics"
	"github.com/lumina-live/backend/pkg/response"
)

// Handler exposes the token issuance endpoints.
type Handler struct {
	issuer  *Issuer
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewHandler creates a tokens handler. Metrics may be nil (tests).
func NewHandler(issuer *Issuer, logger *zap.Logger, m *metrics.Metrics) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{issuer: issuer, logger: logger, metrics: m}
}

type streamerTokenRequest struct {
	Identity string `json:"identity"`
	Room     string `json:"room"`
}

// StreamerToken handles POST /streamerToken.
// Body: { "identity": "alice", "room": "my-stream" }.
func (h *Handler) StreamerToken(c *gin.Context) {
	var req streamerTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	token, err := h.issuer.StreamerToken(req.Identity, req.Room)
	if err != nil {
		if errors.Is(err, ErrMissingFields) {
			response.BadRequest(c, ErrMissingFields.Error())
			return
		}
		h.logger.Error("streamer token", zap.String("room", req.Room), zap.Error(err))
		response.Fail(c, http.StatusInternalServerError, "Unable to issue token", ErrSigning)
		return
	}

	if h.metrics != nil {
		h.metrics.IncTokensIssued("streamer")
	}
	response.Token(c, token)
}

// AudienceToken handles POST /audienceToken. No request body.
func (h *Handler) AudienceToken(c *gin.Context) {
	token, err := h.issuer.AudienceToken(c.Request.Context())
	if err != nil {
		if errors.Is(err, ErrNoActiveStream) {
			response.Message(c, ErrNoActiveStream.Error())
			return
		}
		h.logger.Error("audience token", zap.Error(err))
		if h.metrics != nil {
			h.metrics.IncVendorErrors()
		}
		response.Fail(c, http.StatusBadGateway, "Unable to view livestream", ErrViewing)
		return
	}

	if h.metrics != nil {
		h.metrics.IncTokensIssued("audience")
	}
	response.Token(c, token)
}
