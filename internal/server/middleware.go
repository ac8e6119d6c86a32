package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tilegrid/internal/auth"
	obscontext "github.com/smallbiznis/tilegrid/internal/observability/context"
	"github.com/smallbiznis/tilegrid/internal/observability/logger"
	userdomain "github.com/smallbiznis/tilegrid/internal/user/domain"
	"go.uber.org/zap"
)

const (
	contextUserIDKey    = "user_id"
	contextProvisionKey = "provision_result"
	bearerPrefix        = "bearer "
	maxLookupBodyBytes  = 1 << 20
)

// AuthRequired verifies the bearer token and provisions the caller on first
// sight. Handlers read the caller with userIDFromContext.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		identity, err := s.verifier.Verify(c.Request.Context(), header[len(bearerPrefix):])
		if err != nil {
			AbortWithError(c, err)
			return
		}

		result, err := s.userSvc.Provision(c.Request.Context(), userdomain.ProvisionRequest{
			ID:          identity.UserID,
			Email:       identity.Email,
			DisplayName: identity.DisplayName,
		})
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextUserIDKey, identity.UserID)
		c.Set(contextProvisionKey, result)
		ctx := obscontext.WithUserID(c.Request.Context(), identity.UserID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func userIDFromContext(c *gin.Context) (snowflake.ID, error) {
	value, ok := c.Get(contextUserIDKey)
	if !ok {
		return 0, ErrUnauthorized
	}
	id, ok := value.(snowflake.ID)
	if !ok || id == 0 {
		return 0, ErrUnauthorized
	}
	return id, nil
}

// lookupCounter tells the email lookup limiter how many tokens a request costs.
type lookupCounter func(c *gin.Context) (int, error)

func singleLookup(*gin.Context) (int, error) { return 1, nil }

// countEmailsInBody peeks at the "emails" array and restores the body for
// the handler.
func countEmailsInBody(c *gin.Context) (int, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxLookupBodyBytes))
	if err != nil {
		return 0, err
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

	var payload struct {
		Emails []string `json:"emails"`
	}
	if len(body) == 0 || json.Unmarshal(body, &payload) != nil || len(payload.Emails) == 0 {
		return 1, nil
	}
	return len(payload.Emails), nil
}

func (s *Server) EmailLookupRateLimit(count lookupCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.emailLimiter.Enabled() {
			c.Next()
			return
		}
		userID, err := userIDFromContext(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		n, err := count(c)
		if err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}

		ctx := c.Request.Context()
		res, err := s.emailLimiter.Allow(ctx, userID.String(), n)
		if err != nil {
			logger.FromContext(ctx).Warn("email lookup rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !res.Allowed {
			logger.FromContext(ctx).Warn("email lookup rate limit exceeded",
				zap.String("endpoint", rateLimitEndpoint(c)),
				zap.Int("lookups", n),
			)
			setRetryAfter(c, res.RetryAfter)
			s.recordRateLimitDenied(c, "email-lookup")
			AbortWithError(c, ErrRateLimited)
			return
		}

		if s.obsMetrics != nil {
			s.obsMetrics.RecordRateLimitAllowed(ctx, rateLimitEndpoint(c))
		}
		c.Next()
	}
}

func (s *Server) recordRateLimitDenied(c *gin.Context, reason string) {
	if s.obsMetrics == nil {
		return
	}
	s.obsMetrics.RecordRateLimitDenied(c.Request.Context(), rateLimitEndpoint(c), reason)
}

func setRetryAfter(c *gin.Context, d time.Duration) {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	c.Header("Retry-After", strconv.Itoa(seconds))
}

func rateLimitEndpoint(c *gin.Context) string {
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}

func isAuthError(err error) bool {
	return errors.Is(err, auth.ErrMissingToken) ||
		errors.Is(err, auth.ErrInvalidToken) ||
		errors.Is(err, auth.ErrTokenExpired)
}
