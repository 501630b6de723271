package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	_ "github.com/aniladanir/review-messenger-service/docs"
	"github.com/aniladanir/review-messenger-service/internal/domain"
	"github.com/aniladanir/review-messenger-service/internal/provider"
	"github.com/aniladanir/review-messenger-service/internal/ratelimit"
	"github.com/aniladanir/review-messenger-service/internal/service"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// TenantHeader identifies the tenant on tenant-scoped routes.
const TenantHeader = "X-Tenant-ID"

const twimlAck = "<Response></Response>"

// WebhookProcessor verifies and applies a provider callback.
type WebhookProcessor interface {
	Handle(ctx context.Context, fullURL string, form url.Values, signature string) error
}

type EngagementTracker interface {
	Track(recordID string, kind domain.EngagementKind) bool
}

type LandingResolver interface {
	LandingURL(ctx context.Context, recordID string) (string, error)
}

type RateRule struct {
	Limit  int
	Window time.Duration
}

type RateLimits struct {
	Send       RateRule
	Batch      RateRule
	Webhook    RateRule
	Engagement RateRule
}

type Config struct {
	Addr string
	// PublicBaseURL is the externally visible origin used to rebuild the URL
	// the provider signed. Empty means the request's own host.
	PublicBaseURL string
	Limits        RateLimits
}

type Handler struct {
	msgSender service.MessageSender
	webhooks  WebhookProcessor
	tracker   EngagementTracker
	landing   LandingResolver
	limiter   *ratelimit.Limiter
	logger    *slog.Logger
	cfg       Config
	server    *http.Server
}

// @title Review Messenger API
// @version 1.0
// @description Sends review request texts on behalf of tenants and tracks their delivery and engagement
// @host localhost:6060
// @BasePath /
func NewHttpHandler(
	cfg Config,
	svc service.MessageSender,
	webhooks WebhookProcessor,
	tracker EngagementTracker,
	landing LandingResolver,
	limiter *ratelimit.Limiter,
	logger *slog.Logger,
) *Handler {
	h := &Handler{
		msgSender: svc,
		webhooks:  webhooks,
		tracker:   tracker,
		landing:   landing,
		limiter:   limiter,
		logger:    logger,
		cfg:       cfg,
	}

	// create router
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	// register routes
	v1 := router.Group("/v1")
	v1.GET("/health", h.health)
	v1.POST("/messages", h.rateLimit(cfg.Limits.Send), requireTenant(), h.sendMessage)
	v1.POST("/messages/batch", h.rateLimit(cfg.Limits.Batch), requireTenant(), h.sendBatch)
	v1.GET("/deliveries/:id", requireTenant(), h.getDelivery)
	v1.POST("/webhooks/provider", h.rateLimit(cfg.Limits.Webhook), h.providerWebhook)
	v1.POST("/engagement/:id/:kind", h.rateLimit(cfg.Limits.Engagement), h.trackEngagement)
	router.GET("/r/:id", h.rateLimit(cfg.Limits.Engagement), h.trackingRedirect)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// create http server
	h.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return h
}

func (h *Handler) Run() error {
	return h.server.ListenAndServe()
}

func (h *Handler) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

type sendMessageRequest struct {
	Phone      string `json:"phone" binding:"required"`
	Name       string `json:"name"`
	TemplateID string `json:"templateId" binding:"required"`
	Notes      string `json:"notes"`
}

type sendMessageResponse struct {
	Record *domain.DeliveryRecord `json:"record"`
	Error  string                 `json:"error,omitempty"`
}

type sendBatchRequest struct {
	TemplateID string              `json:"templateId" binding:"required"`
	Recipients []service.Recipient `json:"recipients" binding:"required,min=1"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Health godoc
// @Summary Liveness probe
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /v1/health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// SendMessage godoc
// @Summary Send a review request
// @Description Renders the template for one recipient and hands it to the provider
// @Tags Messages
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant id"
// @Param request body sendMessageRequest true "Recipient and template"
// @Success 200 {object} sendMessageResponse
// @Failure 400 {object} errorResponse
// @Failure 422 {object} errorResponse
// @Failure 429 {object} errorResponse
// @Failure 502 {object} sendMessageResponse
// @Router /v1/messages [post]
func (h *Handler) sendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	rec, err := h.msgSender.Send(c.Request.Context(), service.SendRequest{
		TenantID:   tenantID(c),
		TemplateID: req.TemplateID,
		Recipient: service.Recipient{
			Phone: req.Phone,
			Name:  req.Name,
			Notes: req.Notes,
		},
	})
	if err != nil {
		if rec != nil && errors.Is(err, domain.ErrProvider) {
			c.JSON(http.StatusBadGateway, sendMessageResponse{Record: rec, Error: err.Error()})
			return
		}
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, sendMessageResponse{Record: rec})
}

// SendBatch godoc
// @Summary Send a review request to many recipients
// @Description Sends sequentially with a fixed pause between provider calls; opted-out recipients are skipped
// @Tags Messages
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant id"
// @Param request body sendBatchRequest true "Template and recipients"
// @Success 200 {object} service.BatchResult
// @Failure 400 {object} errorResponse
// @Failure 422 {object} errorResponse
// @Failure 429 {object} errorResponse
// @Router /v1/messages/batch [post]
func (h *Handler) sendBatch(c *gin.Context) {
	var req sendBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	res, err := h.msgSender.SendBatch(c.Request.Context(), service.BatchRequest{
		TenantID:   tenantID(c),
		TemplateID: req.TemplateID,
		Recipients: req.Recipients,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// GetDelivery godoc
// @Summary Get a delivery record
// @Tags Messages
// @Produce json
// @Param X-Tenant-ID header string true "Tenant id"
// @Param id path string true "Delivery record id"
// @Success 200 {object} domain.DeliveryRecord
// @Failure 404 {object} errorResponse
// @Router /v1/deliveries/{id} [get]
func (h *Handler) getDelivery(c *gin.Context) {
	rec, err := h.msgSender.GetDelivery(c.Request.Context(), tenantID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// ProviderWebhook godoc
// @Summary Provider callback ingress
// @Description Receives inbound messages and delivery status callbacks. Always acknowledged unless the signature is invalid.
// @Tags Webhooks
// @Accept x-www-form-urlencoded
// @Produce xml
// @Param X-Twilio-Signature header string false "Provider request signature"
// @Success 200 {string} string "<Response></Response>"
// @Failure 400 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Router /v1/webhooks/provider [post]
func (h *Handler) providerWebhook(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed form body"})
		return
	}

	err := h.webhooks.Handle(
		c.Request.Context(),
		h.requestURL(c),
		c.Request.PostForm,
		c.GetHeader(provider.SignatureHeader),
	)
	if err != nil {
		if errors.Is(err, domain.ErrSignatureInvalid) {
			h.logger.Warn("security: provider callback signature rejected", "remoteAddr", c.ClientIP())
		}
		h.writeError(c, err)
		return
	}

	c.Data(http.StatusOK, "text/xml; charset=utf-8", []byte(twimlAck))
}

// TrackEngagement godoc
// @Summary Record recipient engagement
// @Description Fire-and-forget; the first occurrence of each kind is kept
// @Tags Engagement
// @Param id path string true "Delivery record id"
// @Param kind path string true "viewed, review-click or booking-click"
// @Success 202
// @Router /v1/engagement/{id}/{kind} [post]
func (h *Handler) trackEngagement(c *gin.Context) {
	h.tracker.Track(c.Param("id"), domain.EngagementKind(c.Param("kind")))
	c.Status(http.StatusAccepted)
}

// TrackingRedirect godoc
// @Summary Tracking link
// @Description Records the first view and redirects to the tenant's landing page
// @Tags Engagement
// @Param id path string true "Delivery record id"
// @Success 302
// @Success 204
// @Failure 404 {object} errorResponse
// @Router /r/{id} [get]
func (h *Handler) trackingRedirect(c *gin.Context) {
	id := c.Param("id")

	landing, err := h.landing.LandingURL(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.tracker.Track(id, domain.EngagementViewed)

	if landing == "" {
		c.Status(http.StatusNoContent)
		return
	}
	c.Redirect(http.StatusFound, landing)
}

// requestURL rebuilds the absolute URL the provider addressed.
func (h *Handler) requestURL(c *gin.Context) string {
	if h.cfg.PublicBaseURL != "" {
		return strings.TrimRight(h.cfg.PublicBaseURL, "/") + c.Request.URL.RequestURI()
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + c.Request.Host + c.Request.URL.RequestURI()
}

func tenantID(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(TenantHeader))
}
