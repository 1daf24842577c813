package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/polarishq/polaris/internal/billing/domain"
	identitydomain "github.com/polarishq/polaris/internal/identity/domain"
	reconciledomain "github.com/polarishq/polaris/internal/reconcile/domain"
	"go.uber.org/zap"
)

// HandleIdentityWebhook ingests identity-provider deliveries. Signature
// failures are rejected so the provider retries with correct headers;
// persistence failures return 500 to trigger redelivery.
func (s *Server) HandleIdentityWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()

	if err := s.identityAdapter.Verify(ctx, payload, c.Request.Header); err != nil {
		AbortWithError(c, err)
		return
	}

	event, err := s.identityAdapter.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, identitydomain.ErrEventIgnored) {
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
			return
		}
		AbortWithError(c, err)
		return
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordWebhookEvent(ctx, reconciledomain.SourceIdentity, event.Kind())
	}

	providerEventID := c.GetHeader("svix-id")
	if err := s.reconcileSvc.ApplyIdentityEvent(ctx, providerEventID, event, payload); err != nil {
		if errors.Is(err, reconciledomain.ErrInvalidEvent) || errors.Is(err, reconciledomain.ErrInvalidPayload) {
			AbortWithError(c, invalidRequestError())
			return
		}
		s.log.Error("identity event reconciliation failed",
			zap.String("event_type", event.Kind()),
			zap.Error(err),
		)
		AbortWithError(c, ErrInternal)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleBillingWebhook ingests billing-provider deliveries. Once the
// signature checks out the response is always 200: the provider
// disables endpoints that keep failing, and a missed event is
// recoverable from the audit trail while a disabled endpoint is not.
func (s *Server) HandleBillingWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()

	if err := s.billingAdapter.Verify(ctx, payload, c.Request.Header); err != nil {
		AbortWithError(c, err)
		return
	}

	event, err := s.billingAdapter.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, billingdomain.ErrEventIgnored) {
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
			return
		}
		s.log.Warn("billing event parse failed", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"status": "error"})
		return
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordWebhookEvent(ctx, reconciledomain.SourceBilling, event.Kind())
	}

	if err := s.reconcileSvc.ApplyBillingEvent(ctx, event, payload); err != nil {
		s.log.Error("billing event reconciliation failed",
			zap.String("event_type", event.Kind()),
			zap.Error(err),
		)
		c.JSON(http.StatusOK, gin.H{"status": "error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
