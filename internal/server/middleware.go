package server

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/polarishq/polaris/internal/actorcontext"
	"github.com/polarishq/polaris/internal/entitlement"
	obscontext "github.com/polarishq/polaris/internal/observability/context"
	"go.uber.org/zap"
)

const (
	contextKeyActor = "polaris.actor"

	headerRateLimit      = "X-RateLimit-Limit"
	headerRateRemaining  = "X-RateLimit-Remaining"
	headerRateRetryAfter = "Retry-After"
)

// SessionRequired authenticates the bearer token and loads the actor's
// entitlement context into the request.
func (s *Server) SessionRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		userExternalID, ok := VerifySessionToken(s.cfg.SessionSecret, token)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		uc, err := s.actorLoader.Load(c.Request.Context(), userExternalID)
		if err != nil {
			if errors.Is(err, actorcontext.ErrUnknownActor) {
				AbortWithError(c, ErrUnauthorized)
				return
			}
			s.log.Error("actor context load failed", zap.Error(err))
			AbortWithError(c, ErrInternal)
			return
		}

		c.Set(contextKeyActor, uc)
		ctx := obscontext.WithActor(c.Request.Context(), "user", uc.UserID)
		if uc.OrgID != "" {
			ctx = obscontext.WithOrgID(ctx, uc.OrgID)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// OrgRoleRequired gates a route on the actor holding at least the given
// organization role. Owner satisfies admin.
func (s *Server) OrgRoleRequired(minimum entitlement.OrgRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		uc, ok := ActorFrom(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if uc.OrgID == "" || !roleAtLeast(uc.OrgRole, minimum) {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

// WebhookRateLimit throttles webhook intake per source path and peer.
func (s *Server) WebhookRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		source := strings.TrimPrefix(c.FullPath(), "/api/webhooks/")
		res, err := s.limiter.AllowWebhook(c.Request.Context(), source, c.ClientIP())
		if err != nil {
			// A limiter outage must not drop provider deliveries.
			s.log.Warn("webhook rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !res.Allowed {
			if s.obsMetrics != nil {
				s.obsMetrics.RecordRateLimitDenied(c.Request.Context(), source, "webhook")
			}
			setRateHeaders(c, res.Limit, res.Remaining, int(res.RetryAfter.Seconds()))
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		if s.obsMetrics != nil {
			s.obsMetrics.RecordRateLimitAllowed(c.Request.Context(), source)
		}
		c.Next()
	}
}

// APIRateLimit throttles the session API per actor. It runs after
// SessionRequired so the actor id is available.
func (s *Server) APIRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		actorKey := c.ClientIP()
		if uc, ok := ActorFrom(c); ok {
			actorKey = uc.UserID
		}
		res, err := s.limiter.AllowAPI(c.Request.Context(), actorKey)
		if err != nil {
			s.log.Warn("api rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !res.Allowed {
			if s.obsMetrics != nil {
				s.obsMetrics.RecordRateLimitDenied(c.Request.Context(), "api", "actor")
			}
			setRateHeaders(c, res.Limit, res.Remaining, int(res.RetryAfter.Seconds()))
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}

// ActorFrom returns the entitlement context stored by SessionRequired.
func ActorFrom(c *gin.Context) (entitlement.UserContext, bool) {
	value, exists := c.Get(contextKeyActor)
	if !exists {
		return entitlement.UserContext{}, false
	}
	uc, ok := value.(entitlement.UserContext)
	return uc, ok
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func roleAtLeast(role, minimum entitlement.OrgRole) bool {
	order := map[entitlement.OrgRole]int{
		entitlement.RoleViewer: 0,
		entitlement.RoleMember: 1,
		entitlement.RoleAdmin:  2,
		entitlement.RoleOwner:  3,
	}
	return order[role] >= order[minimum]
}

func setRateHeaders(c *gin.Context, limit, remaining, retryAfter int) {
	if remaining < 0 {
		remaining = 0
	}
	c.Header(headerRateLimit, strconv.Itoa(limit))
	c.Header(headerRateRemaining, strconv.Itoa(remaining))
	if retryAfter > 0 {
		c.Header(headerRateRetryAfter, strconv.Itoa(retryAfter))
	}
}
