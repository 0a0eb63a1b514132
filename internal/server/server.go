package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/mywill/internal/analytics"
	analyticsdomain "github.com/smallbiznis/mywill/internal/analytics/domain"
	"github.com/smallbiznis/mywill/internal/audit"
	auditdomain "github.com/smallbiznis/mywill/internal/audit/domain"
	"github.com/smallbiznis/mywill/internal/auth"
	authdomain "github.com/smallbiznis/mywill/internal/auth/domain"
	"github.com/smallbiznis/mywill/internal/auth/session"
	"github.com/smallbiznis/mywill/internal/authorization"
	"github.com/smallbiznis/mywill/internal/client"
	clientdomain "github.com/smallbiznis/mywill/internal/client/domain"
	"github.com/smallbiznis/mywill/internal/config"
	"github.com/smallbiznis/mywill/internal/dashboard"
	dashboarddomain "github.com/smallbiznis/mywill/internal/dashboard/domain"
	"github.com/smallbiznis/mywill/internal/document"
	documentdomain "github.com/smallbiznis/mywill/internal/document/domain"
	"github.com/smallbiznis/mywill/internal/note"
	notedomain "github.com/smallbiznis/mywill/internal/note/domain"
	"github.com/smallbiznis/mywill/internal/observability"
	obslogger "github.com/smallbiznis/mywill/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/mywill/internal/observability/metrics"
	obstracing "github.com/smallbiznis/mywill/internal/observability/tracing"
	"github.com/smallbiznis/mywill/internal/pricing"
	pricingdomain "github.com/smallbiznis/mywill/internal/pricing/domain"
	"github.com/smallbiznis/mywill/internal/providers"
	"github.com/smallbiznis/mywill/internal/ratelimit"
	"github.com/smallbiznis/mywill/internal/revenuemetrics"
	"github.com/smallbiznis/mywill/internal/storage"
	"github.com/smallbiznis/mywill/internal/task"
	taskdomain "github.com/smallbiznis/mywill/internal/task/domain"
	"github.com/smallbiznis/mywill/internal/tenant"
	tenantdomain "github.com/smallbiznis/mywill/internal/tenant/domain"
	"github.com/smallbiznis/mywill/internal/will"
	willdomain "github.com/smallbiznis/mywill/internal/will/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	auth.Module,
	ratelimit.Module,
	providers.Module,
	storage.Module,
	revenuemetrics.Module,
	client.Module,
	note.Module,
	task.Module,
	pricing.Module,
	tenant.Module,
	document.Module,
	will.Module,
	dashboard.Module,
	analytics.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

// NewEngine builds the gin engine with the shared middleware chain. Extra
// gatherers are served on /metrics next to the default registry.
func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, gatherers ...prometheus.Gatherer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	all := append(prometheus.Gatherers{prometheus.DefaultGatherer}, gatherers...)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(all, promhttp.HandlerOpts{})))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, revenue *revenuemetrics.Recorder) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics, revenue.Gatherer())
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server failed", zap.Error(err))
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
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	authsvc      authdomain.Service
	sessions     *session.Manager
	authzSvc     authorization.Service
	auditSvc     auditdomain.Service
	clientSvc    clientdomain.Service
	noteSvc      notedomain.Service
	taskSvc      taskdomain.Service
	willSvc      willdomain.Service
	pricingSvc   pricingdomain.Service
	tenantSvc    tenantdomain.Service
	documentSvc  documentdomain.Service
	dashboardSvc dashboarddomain.Service
	analyticsSvc analyticsdomain.Service
	storage      storage.Provider
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	Authsvc      authdomain.Service
	Sessions     *session.Manager
	AuthzSvc     authorization.Service
	AuditSvc     auditdomain.Service
	ClientSvc    clientdomain.Service
	NoteSvc      notedomain.Service
	TaskSvc      taskdomain.Service
	WillSvc      willdomain.Service
	PricingSvc   pricingdomain.Service
	TenantSvc    tenantdomain.Service
	DocumentSvc  documentdomain.Service
	DashboardSvc dashboarddomain.Service
	AnalyticsSvc analyticsdomain.Service
	Storage      storage.Provider
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          p.Log.Named("http.server"),
		authsvc:      p.Authsvc,
		sessions:     p.Sessions,
		authzSvc:     p.AuthzSvc,
		auditSvc:     p.AuditSvc,
		clientSvc:    p.ClientSvc,
		noteSvc:      p.NoteSvc,
		taskSvc:      p.TaskSvc,
		willSvc:      p.WillSvc,
		pricingSvc:   p.PricingSvc,
		tenantSvc:    p.TenantSvc,
		documentSvc:  p.DocumentSvc,
		dashboardSvc: p.DashboardSvc,
		analyticsSvc: p.AnalyticsSvc,
		storage:      p.Storage,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerAdminRoutes()
	svc.registerFileRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/login", s.Login)
	auth.POST("/logout", s.Logout)
	auth.GET("/me", s.AuthRequired(), s.Me)
	auth.POST("/reset", s.RequestPasswordReset)
	auth.POST("/reset/confirm", s.ConfirmPasswordReset)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.AuthRequired())
	api.Use(requireTenant())

	// -------- Clients --------
	api.GET("/clients", s.authorize(authorization.ObjectClient, authorization.ActionRead), s.ListClients)
	api.POST("/clients", s.authorize(authorization.ObjectClient, authorization.ActionWrite), s.CreateClient)
	api.GET("/clients/:id", s.authorize(authorization.ObjectClient, authorization.ActionRead), s.GetClient)
	api.PATCH("/clients/:id", s.authorize(authorization.ObjectClient, authorization.ActionWrite), s.UpdateClient)

	// -------- Notes --------
	api.GET("/clients/:id/notes", s.authorize(authorization.ObjectNote, authorization.ActionRead), s.ListNotes)
	api.POST("/clients/:id/notes", s.authorize(authorization.ObjectNote, authorization.ActionWrite), s.CreateNote)

	// -------- Tasks --------
	api.POST("/clients/:id/tasks", s.authorize(authorization.ObjectTask, authorization.ActionWrite), s.CreateTask)
	api.GET("/tasks", s.authorize(authorization.ObjectTask, authorization.ActionRead), s.ListTasks)
	api.GET("/tasks/:id", s.authorize(authorization.ObjectTask, authorization.ActionRead), s.GetTask)
	api.PATCH("/tasks/:id", s.authorize(authorization.ObjectTask, authorization.ActionWrite), s.UpdateTask)
	api.DELETE("/tasks/:id", s.authorize(authorization.ObjectTask, authorization.ActionWrite), s.DeleteTask)

	// -------- Wills --------
	api.GET("/wills", s.authorize(authorization.ObjectWill, authorization.ActionRead), s.ListWills)
	api.POST("/wills", s.authorize(authorization.ObjectWill, authorization.ActionWrite), s.CreateWill)
	api.GET("/wills/:id", s.authorize(authorization.ObjectWill, authorization.ActionRead), s.GetWill)
	api.PATCH("/wills/:id", s.authorize(authorization.ObjectWill, authorization.ActionWrite), s.UpdateWill)
	api.DELETE("/wills/:id", s.authorize(authorization.ObjectWill, authorization.ActionWrite), s.DeleteWill)
	api.POST("/wills/:id/preview", s.authorize(authorization.ObjectWill, authorization.ActionRead), s.PreviewWill)
	api.GET("/wills/:id/preview.pdf", s.authorize(authorization.ObjectWill, authorization.ActionRead), s.PreviewWillPDF)
	api.POST("/wills/:id/send_for_approval", s.authorize(authorization.ObjectWill, authorization.ActionWrite), s.SendWillForApproval)
	api.POST("/wills/:id/attestation/complete", s.authorize(authorization.ObjectWill, authorization.ActionWrite), s.CompleteWillAttestation)

	// -------- Pricing --------
	api.GET("/pricing", s.authorize(authorization.ObjectPricing, authorization.ActionRead), s.GetPricing)
	api.PATCH("/pricing", s.authorize(authorization.ObjectPricing, authorization.ActionWrite), s.UpdatePricing)
	api.GET("/pricing/quote", s.authorize(authorization.ObjectPricing, authorization.ActionRead), s.QuotePricing)

	// -------- Documents --------
	api.GET("/storage/documents", s.authorize(authorization.ObjectDocument, authorization.ActionRead), s.ListDocuments)

	// -------- Dashboard --------
	api.GET("/dashboard/kpis", s.authorize(authorization.ObjectDashboard, authorization.ActionRead), s.DashboardKPIs)

	// -------- Analytics --------
	api.POST("/analytics/events", s.authorize(authorization.ObjectAnalytics, authorization.ActionWrite), s.TrackAnalyticsEvent)
	api.GET("/analytics/steps", s.authorize(authorization.ObjectAnalytics, authorization.ActionRead), s.AnalyticsStepReport)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")
	admin.Use(s.AuthRequired())
	admin.Use(requirePlatformAdmin())

	admin.GET("/brokers", s.authorize(authorization.ObjectBroker, authorization.ActionRead), s.ListBrokers)
	admin.POST("/brokers", s.authorize(authorization.ObjectBroker, authorization.ActionWrite), s.CreateBroker)
	admin.GET("/audit", s.authorize(authorization.ObjectAuditLog, authorization.ActionRead), s.ListAuditLogs)
}

func (s *Server) registerFileRoutes() {
	s.engine.GET("/files/*key", s.DownloadFile)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
