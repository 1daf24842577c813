package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type entitlementResponse struct {
	Feature string `json:"feature"`
	Granted bool   `json:"granted"`
}

type entitlementListResponse struct {
	Tier     string          `json:"tier,omitempty"`
	Features map[string]bool `json:"features"`
	Limits   limitsResponse  `json:"limits"`
}

type limitsResponse struct {
	SavedSearches    int `json:"saved_searches"`
	MonitoringTopics int `json:"monitoring_topics"`
	CRMContacts      int `json:"crm_contacts"`
}

// GetEntitlement resolves a single feature for the current actor.
// Unknown features resolve to denied rather than failing, so clients
// can probe features this deployment does not ship yet.
func (s *Server) GetEntitlement(c *gin.Context) {
	uc, ok := ActorFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	feature := strings.TrimSpace(c.Param("feature"))
	if feature == "" {
		AbortWithError(c, invalidRequestError())
		return
	}

	granted := s.entitlements.HasAccess(uc, feature)
	if s.obsMetrics != nil {
		s.obsMetrics.RecordEntitlementCheck(c.Request.Context(), feature, granted)
	}

	c.JSON(http.StatusOK, entitlementResponse{
		Feature: feature,
		Granted: granted,
	})
}

// ListEntitlements resolves every known feature plus the actor's tier
// limits in one call.
func (s *Server) ListEntitlements(c *gin.Context) {
	uc, ok := ActorFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	features := map[string]bool{}
	for _, feature := range s.entitlements.Features() {
		features[feature] = s.entitlements.HasAccess(uc, feature)
	}

	limits := s.entitlements.LimitsFor(uc.OrgTier)

	c.JSON(http.StatusOK, entitlementListResponse{
		Tier:     string(uc.OrgTier),
		Features: features,
		Limits: limitsResponse{
			SavedSearches:    limits.SavedSearches,
			MonitoringTopics: limits.MonitoringTopics,
			CRMContacts:      limits.CRMContacts,
		},
	})
}
