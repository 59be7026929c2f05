package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kurihiro0119/github-repo-analyzer/internal/domain"
	apperrors "github.com/kurihiro0119/github-repo-analyzer/internal/errors"
	"github.com/kurihiro0119/github-repo-analyzer/internal/storage"
)

// AnalysisService serves possibly cached account summaries
type AnalysisService interface {
	GetOrCompute(ctx context.Context, username string, forceRefresh bool) (*domain.AccountSummary, bool, error)
	Invalidate(username string)
	Clear()
	Len() int
	TTL() time.Duration
}

// RateLimitSource reports the GitHub quota tracked by the collector
type RateLimitSource interface {
	RateLimit() (remaining int, resetTime time.Time, err error)
}

// HandlerOptions configures a Handler
type HandlerOptions struct {
	// Storage persists snapshots; nil disables history
	Storage         storage.Storage
	StorageType     string
	TokenConfigured bool
	// RateLimit is reported by the health check when set
	RateLimit RateLimitSource
	Now       func() time.Time
	Logger    *slog.Logger
}

// Handler handles API requests
type Handler struct {
	analysis        AnalysisService
	storage         storage.Storage
	storageType     string
	tokenConfigured bool
	rateLimit       RateLimitSource
	startedAt       time.Time
	now             func() time.Time
	logger          *slog.Logger
}

// NewHandler creates a new API handler
func NewHandler(analysis AnalysisService, opts HandlerOptions) *Handler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.StorageType == "" {
		opts.StorageType = "none"
	}
	return &Handler{
		analysis:        analysis,
		storage:         opts.Storage,
		storageType:     opts.StorageType,
		tokenConfigured: opts.TokenConfigured,
		rateLimit:       opts.RateLimit,
		startedAt:       opts.Now(),
		now:             opts.Now,
		logger:          opts.Logger.With("component", "api"),
	}
}

// analyzeResponse is an account summary annotated with its cache origin
type analyzeResponse struct {
	*domain.AccountSummary
	Cached bool `json:"cached"`
}

// Analyze returns the summary of an account
// GET /analyze?username=<login>&refresh=true
// GET /analyze/:username
func (h *Handler) Analyze(c *gin.Context) {
	username := strings.TrimSpace(c.Param("username"))
	if username == "" {
		username = strings.TrimSpace(c.Query("username"))
	}
	if username == "" {
		respondError(c, apperrors.NewMissingParameterError("username"))
		return
	}
	refresh := c.Query("refresh") == "true"

	summary, cached, err := h.analysis.GetOrCompute(c.Request.Context(), username, refresh)
	if err != nil {
		h.logError(username, err)
		respondError(c, err)
		return
	}

	if !cached {
		h.saveSnapshot(c.Request.Context(), summary)
	}

	c.JSON(http.StatusOK, analyzeResponse{AccountSummary: summary, Cached: cached})
}

// History returns the stored snapshots of an account
// GET /history?username=<login>&limit=<n>
func (h *Handler) History(c *gin.Context) {
	username, ok := h.historyUsername(c)
	if !ok {
		return
	}

	limit := storage.DefaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"detail": "limit must be a positive integer",
			})
			return
		}
		limit = n
	}

	snapshots, err := h.storage.GetSnapshots(c.Request.Context(), username, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"username":  storage.NormalizeUsername(username),
		"snapshots": snapshots,
	})
}

// LatestSnapshot returns the newest stored snapshot of an account with its
// full summary
// GET /history/latest?username=<login>
func (h *Handler) LatestSnapshot(c *gin.Context) {
	username, ok := h.historyUsername(c)
	if !ok {
		return
	}

	snapshot, err := h.storage.GetLatestSnapshot(c.Request.Context(), username)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// historyUsername reads the username of a history query and checks storage
// is enabled, writing the error response when either fails
func (h *Handler) historyUsername(c *gin.Context) (string, bool) {
	username := strings.TrimSpace(c.Query("username"))
	if username == "" {
		respondError(c, apperrors.NewMissingParameterError("username"))
		return "", false
	}
	if h.storage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"detail": "Snapshot storage is disabled",
		})
		return "", false
	}
	return username, true
}

// InvalidateCache drops the cached summary of one account
// DELETE /cache/:username
func (h *Handler) InvalidateCache(c *gin.Context) {
	h.analysis.Invalidate(c.Param("username"))
	c.Status(http.StatusNoContent)
}

// ClearCache drops every cached summary
// DELETE /cache
func (h *Handler) ClearCache(c *gin.Context) {
	h.analysis.Clear()
	c.Status(http.StatusNoContent)
}

// HealthCheck returns the health status of the API
// GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":                  "ok",
		"uptime_seconds":          int(h.now().Sub(h.startedAt).Seconds()),
		"github_token_configured": h.tokenConfigured,
		"cache_ttl_seconds":       int(h.analysis.TTL().Seconds()),
		"cache_entries":           h.analysis.Len(),
		"storage":                 h.storageType,
		"github_rate_limit":       h.rateLimitStatus(),
	})
}

// rateLimitStatus returns the tracked GitHub quota, or nil before any
// upstream response has been seen
func (h *Handler) rateLimitStatus() gin.H {
	if h.rateLimit == nil {
		return nil
	}
	remaining, resetAt, err := h.rateLimit.RateLimit()
	if err != nil || remaining < 0 {
		return nil
	}
	return gin.H{
		"remaining": remaining,
		"reset":     resetAt.Unix(),
	}
}

// saveSnapshot records a freshly computed summary. Failures are logged and
// never fail the request.
func (h *Handler) saveSnapshot(ctx context.Context, summary *domain.AccountSummary) {
	if h.storage == nil {
		return
	}
	snapshot := domain.NewSnapshot(uuid.New().String(), summary, h.now())
	if err := h.storage.SaveSnapshot(ctx, snapshot); err != nil {
		h.logger.Error("Failed to save snapshot", "username", summary.Username, "error", err)
	}
}

func (h *Handler) logError(username string, err error) {
	switch apperrors.CodeOf(err) {
	case apperrors.ErrCodeInternal, apperrors.ErrCodeUpstreamError, apperrors.ErrCodeUpstreamTimeout:
		h.logger.Error("Analysis failed", "username", username, "error", err)
	default:
		h.logger.Info("Analysis rejected", "username", username, "error", err)
	}
}

// statusFor maps an error code to its HTTP status
func statusFor(code apperrors.ErrCode) int {
	switch code {
	case apperrors.ErrCodeMissingParameter:
		return http.StatusBadRequest
	case apperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case apperrors.ErrCodeUpstreamTimeout:
		return http.StatusGatewayTimeout
	case apperrors.ErrCodeUpstreamError:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		status := statusFor(appErr.Code)
		if appErr.Code == apperrors.ErrCodeRateLimited && !appErr.ResetAt.IsZero() {
			c.Header("X-RateLimit-Reset", strconv.FormatInt(appErr.ResetAt.Unix(), 10))
		}
		message := appErr.Message
		if status == http.StatusInternalServerError {
			message = "Internal server error"
		}
		c.JSON(status, gin.H{
			"detail": message,
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"detail": "Internal server error",
	})
}
