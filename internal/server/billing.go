package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	billingportaldomain "github.com/polarishq/polaris/internal/billingportal/domain"
	"go.uber.org/zap"
)

type checkoutRequest struct {
	Tier     string `json:"tier" binding:"required"`
	Interval string `json:"interval"`
}

// CreateCheckoutSession starts a provider checkout for the actor's
// organization. The session URL is returned for client-side redirect.
func (s *Server) CreateCheckoutSession(c *gin.Context) {
	uc, ok := ActorFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	interval := strings.TrimSpace(req.Interval)
	if interval == "" {
		interval = billingportaldomain.IntervalMonthly
	}

	session, err := s.portalSvc.CreateCheckoutSession(c.Request.Context(), billingportaldomain.CheckoutRequest{
		OrgExternalID:   uc.OrgID,
		Tier:            req.Tier,
		Interval:        interval,
		ActorExternalID: uc.UserID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.writeBillingAudit(c, "billing.checkout.created", uc.OrgID, map[string]any{
		"tier":     req.Tier,
		"interval": interval,
	})
	c.JSON(http.StatusOK, session)
}

// CreatePortalSession opens the provider self-service portal for the
// actor's organization.
func (s *Server) CreatePortalSession(c *gin.Context) {
	uc, ok := ActorFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	session, err := s.portalSvc.CreatePortalSession(c.Request.Context(), billingportaldomain.PortalRequest{
		OrgExternalID: uc.OrgID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.writeBillingAudit(c, "billing.portal.created", uc.OrgID, nil)
	c.JSON(http.StatusOK, session)
}

func (s *Server) writeBillingAudit(c *gin.Context, action, orgExternalID string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	uc, _ := ActorFrom(c)
	actorID := uc.UserID
	orgRef := &orgExternalID
	if err := s.auditSvc.AuditLog(c.Request.Context(), orgRef, "user", &actorID, action, "billing_session", nil, metadata); err != nil {
		s.log.Warn("failed to write billing audit log", zap.String("action", action), zap.Error(err))
	}
}
