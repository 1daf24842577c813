package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/polarishq/polaris/internal/account"
	"github.com/polarishq/polaris/internal/actorcontext"
	"github.com/polarishq/polaris/internal/audit"
	auditdomain "github.com/polarishq/polaris/internal/audit/domain"
	"github.com/polarishq/polaris/internal/billing"
	billingdomain "github.com/polarishq/polaris/internal/billing/domain"
	"github.com/polarishq/polaris/internal/billingportal"
	billingportaldomain "github.com/polarishq/polaris/internal/billingportal/domain"
	"github.com/polarishq/polaris/internal/cache"
	"github.com/polarishq/polaris/internal/config"
	"github.com/polarishq/polaris/internal/entitlement"
	"github.com/polarishq/polaris/internal/identity"
	identitydomain "github.com/polarishq/polaris/internal/identity/domain"
	"github.com/polarishq/polaris/internal/observability"
	obsmiddleware "github.com/polarishq/polaris/internal/observability/logger"
	obsmetrics "github.com/polarishq/polaris/internal/observability/metrics"
	obstracing "github.com/polarishq/polaris/internal/observability/tracing"
	"github.com/polarishq/polaris/internal/organization"
	"github.com/polarishq/polaris/internal/providers/email"
	"github.com/polarishq/polaris/internal/ratelimit"
	"github.com/polarishq/polaris/internal/reconcile"
	reconciledomain "github.com/polarishq/polaris/internal/reconcile/domain"
	"github.com/polarishq/polaris/internal/subscription"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	config.Module,
	fx.Provide(registerGin),
	audit.Module,
	account.Module,
	organization.Module,
	subscription.Module,
	identity.Module,
	billing.Module,
	entitlement.Module,
	reconcile.Module,
	actorcontext.Module,
	billingportal.Module,
	cache.Module,
	ratelimit.Module,
	email.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	db              *gorm.DB
	genID           *snowflake.Node
	identityAdapter identitydomain.Adapter
	billingAdapter  billingdomain.Adapter
	reconcileSvc    reconciledomain.Service
	actorLoader     *actorcontext.Loader
	entitlements    *entitlement.Table
	catalog         entitlement.Catalog
	portalSvc       billingportaldomain.Service
	auditSvc        auditdomain.Service
	obsMetrics      *obsmetrics.Metrics
	limiter         *ratelimit.SurfaceLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	DB              *gorm.DB
	GenID           *snowflake.Node
	IdentityAdapter identitydomain.Adapter
	BillingAdapter  billingdomain.Adapter
	ReconcileSvc    reconciledomain.Service
	ActorLoader     *actorcontext.Loader
	Entitlements    *entitlement.Table
	Catalog         entitlement.Catalog
	PortalSvc       billingportaldomain.Service
	AuditSvc        auditdomain.Service
	ObsMetrics      *obsmetrics.Metrics         `optional:"true"`
	Limiter         *ratelimit.SurfaceLimiter   `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("server"),
		db:              p.DB,
		genID:           p.GenID,
		identityAdapter: p.IdentityAdapter,
		billingAdapter:  p.BillingAdapter,
		reconcileSvc:    p.ReconcileSvc,
		actorLoader:     p.ActorLoader,
		entitlements:    p.Entitlements,
		catalog:         p.Catalog,
		portalSvc:       p.PortalSvc,
		auditSvc:        p.AuditSvc,
		obsMetrics:      p.ObsMetrics,
		limiter:         p.Limiter,
	}

	svc.registerWebhookRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerWebhookRoutes() {
	webhooks := s.engine.Group("/api/webhooks", s.WebhookRateLimit())

	webhooks.POST("/identity", s.HandleIdentityWebhook)
	webhooks.POST("/billing", s.HandleBillingWebhook)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	api.GET("/pricing", s.GetPricing)

	authed := api.Group("", s.SessionRequired(), s.APIRateLimit())
	{
		authed.GET("/entitlements", s.ListEntitlements)
		authed.GET("/entitlements/:feature", s.GetEntitlement)

		billing := authed.Group("/billing", s.OrgRoleRequired(entitlement.RoleAdmin))
		{
			billing.POST("/checkout", s.CreateCheckoutSession)
			billing.POST("/portal", s.CreatePortalSession)
		}

		authed.GET("/audit-logs", s.OrgRoleRequired(entitlement.RoleAdmin), s.ListAuditLogs)
	}
}
