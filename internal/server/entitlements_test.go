package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/polarishq/polaris/internal/entitlement"
	"go.uber.org/zap"
)

func newEntitlementRouter(t *testing.T, uc entitlement.UserContext) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := &Server{
		log:          zap.NewNop(),
		entitlements: entitlement.NewTable(entitlement.DefaultFeatureAccess(), entitlement.DefaultTierLimits()),
	}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.Use(func(c *gin.Context) {
		c.Set(contextKeyActor, uc)
		c.Next()
	})
	router.GET("/api/v1/entitlements", srv.ListEntitlements)
	router.GET("/api/v1/entitlements/:feature", srv.GetEntitlement)
	return router
}

func getJSON(t *testing.T, router *gin.Engine, path string, out any) int {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if out != nil && resp.Code == http.StatusOK {
		if err := json.Unmarshal(resp.Body.Bytes(), out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.Code
}

func TestGetEntitlementGrantsByTier(t *testing.T) {
	router := newEntitlementRouter(t, entitlement.UserContext{
		UserID:  "user_1",
		Side:    entitlement.SideOrg,
		OrgID:   "org_1",
		OrgTier: entitlement.OrgTierEnterprise,
	})

	var body entitlementResponse
	if code := getJSON(t, router, "/api/v1/entitlements/legislative.ai_impact", &body); code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", code)
	}
	if !body.Granted {
		t.Fatal("expected enterprise tier to grant ai impact")
	}
	if body.Feature != "legislative.ai_impact" {
		t.Fatalf("unexpected feature echo %q", body.Feature)
	}
}

func TestGetEntitlementDeniesBelowTier(t *testing.T) {
	router := newEntitlementRouter(t, entitlement.UserContext{
		UserID:  "user_1",
		Side:    entitlement.SideOrg,
		OrgID:   "org_1",
		OrgTier: entitlement.OrgTierProfessional,
	})

	var body entitlementResponse
	if code := getJSON(t, router, "/api/v1/entitlements/legislative.ai_impact", &body); code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", code)
	}
	if body.Granted {
		t.Fatal("expected professional tier to be denied ai impact")
	}
}

func TestGetEntitlementUnknownFeatureDenied(t *testing.T) {
	router := newEntitlementRouter(t, entitlement.UserContext{
		UserID:  "user_1",
		Side:    entitlement.SideOrg,
		OrgID:   "org_1",
		OrgTier: entitlement.OrgTierGlobal,
	})

	var body entitlementResponse
	if code := getJSON(t, router, "/api/v1/entitlements/made.up.feature", &body); code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", code)
	}
	if body.Granted {
		t.Fatal("expected unknown feature to resolve to denied")
	}
}

func TestListEntitlementsIncludesLimits(t *testing.T) {
	router := newEntitlementRouter(t, entitlement.UserContext{
		UserID:  "user_1",
		Side:    entitlement.SideOrg,
		OrgID:   "org_1",
		OrgTier: entitlement.OrgTierProfessional,
	})

	var body entitlementListResponse
	if code := getJSON(t, router, "/api/v1/entitlements", &body); code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", code)
	}
	if body.Tier != "professional" {
		t.Fatalf("expected tier professional, got %q", body.Tier)
	}
	if granted, ok := body.Features["legislative.ai_summaries"]; !ok || !granted {
		t.Fatalf("expected ai summaries granted, got %v", body.Features)
	}
	if granted := body.Features["api.full"]; granted {
		t.Fatal("expected api.full denied for professional tier")
	}
	if body.Limits.SavedSearches != 25 || body.Limits.CRMContacts != 100 {
		t.Fatalf("unexpected limits %+v", body.Limits)
	}
}

func TestRoleGateRequiresAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	srv := &Server{log: zap.NewNop()}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.Use(func(c *gin.Context) {
		c.Set(contextKeyActor, entitlement.UserContext{
			UserID:  "user_1",
			Side:    entitlement.SideOrg,
			OrgID:   "org_1",
			OrgRole: entitlement.RoleMember,
		})
		c.Next()
	})
	router.GET("/gated", srv.OrgRoleRequired(entitlement.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/gated", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403 for member, got %d", resp.Code)
	}
}

func TestRoleGateOwnerSatisfiesAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	srv := &Server{log: zap.NewNop()}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.Use(func(c *gin.Context) {
		c.Set(contextKeyActor, entitlement.UserContext{
			UserID:  "user_1",
			Side:    entitlement.SideOrg,
			OrgID:   "org_1",
			OrgRole: entitlement.RoleOwner,
		})
		c.Next()
	})
	router.GET("/gated", srv.OrgRoleRequired(entitlement.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/gated", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected status 204 for owner, got %d", resp.Code)
	}
}
