package server

import (
	"context"
	"net/http"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/tilegrid/internal/audit"
	auditdomain "github.com/smallbiznis/tilegrid/internal/audit/domain"
	"github.com/smallbiznis/tilegrid/internal/auth"
	"github.com/smallbiznis/tilegrid/internal/authorization"
	"github.com/smallbiznis/tilegrid/internal/blobstore"
	"github.com/smallbiznis/tilegrid/internal/channel"
	channeldomain "github.com/smallbiznis/tilegrid/internal/channel/domain"
	"github.com/smallbiznis/tilegrid/internal/config"
	"github.com/smallbiznis/tilegrid/internal/events"
	"github.com/smallbiznis/tilegrid/internal/grid"
	griddomain "github.com/smallbiznis/tilegrid/internal/grid/domain"
	"github.com/smallbiznis/tilegrid/internal/gridfile"
	gridfiledomain "github.com/smallbiznis/tilegrid/internal/gridfile/domain"
	"github.com/smallbiznis/tilegrid/internal/message"
	messagedomain "github.com/smallbiznis/tilegrid/internal/message/domain"
	"github.com/smallbiznis/tilegrid/internal/observability"
	obslogger "github.com/smallbiznis/tilegrid/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/tilegrid/internal/observability/metrics"
	obstracing "github.com/smallbiznis/tilegrid/internal/observability/tracing"
	"github.com/smallbiznis/tilegrid/internal/permission"
	permissiondomain "github.com/smallbiznis/tilegrid/internal/permission/domain"
	tilelimit "github.com/smallbiznis/tilegrid/internal/ratelimit"
	"github.com/smallbiznis/tilegrid/internal/tile"
	tiledomain "github.com/smallbiznis/tilegrid/internal/tile/domain"
	"github.com/smallbiznis/tilegrid/internal/tilegate"
	"github.com/smallbiznis/tilegrid/internal/user"
	userdomain "github.com/smallbiznis/tilegrid/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	permission.Module,
	audit.Module,
	authorization.Module,
	events.Module,
	blobstore.Module,
	tilelimit.Module,
	auth.Module,
	tile.Module,
	tilegate.Module,
	grid.Module,
	user.Module,
	channel.Module,
	message.Module,
	gridfile.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(corsMiddleware(cfg))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(cfg, obsCfg, httpMetrics)
}

func corsMiddleware(cfg config.Config) gin.HandlerFunc {
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", obslogger.RequestIDHeader)
	corsCfg.ExposeHeaders = []string{obslogger.RequestIDHeader, "Retry-After"}
	if len(cfg.CORSAllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORSAllowedOrigins
	}
	return cors.New(corsCfg)
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
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	verifier     auth.Verifier
	resolver     permissiondomain.Resolver
	userSvc      userdomain.Service
	gridSvc      griddomain.Service
	tileSvc      tiledomain.Service
	channelSvc   channeldomain.Service
	messageSvc   messagedomain.Service
	fileSvc      gridfiledomain.Service
	auditSvc     auditdomain.Service
	emailLimiter *tilelimit.EmailLookupLimiter
	obsMetrics   *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Verifier     auth.Verifier
	Resolver     permissiondomain.Resolver
	UserSvc      userdomain.Service
	GridSvc      griddomain.Service
	TileSvc      tiledomain.Service
	ChannelSvc   channeldomain.Service
	MessageSvc   messagedomain.Service
	FileSvc      gridfiledomain.Service
	AuditSvc     auditdomain.Service
	EmailLimiter *tilelimit.EmailLookupLimiter `optional:"true"`
	ObsMetrics   *obsmetrics.Metrics           `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		verifier:     p.Verifier,
		resolver:     p.Resolver,
		userSvc:      p.UserSvc,
		gridSvc:      p.GridSvc,
		tileSvc:      p.TileSvc,
		channelSvc:   p.ChannelSvc,
		messageSvc:   p.MessageSvc,
		fileSvc:      p.FileSvc,
		auditSvc:     p.AuditSvc,
		emailLimiter: p.EmailLimiter,
		obsMetrics:   p.ObsMetrics,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")
	if limiter := s.ipRateLimit(); limiter != nil {
		v1.Use(limiter)
	}
	v1.Use(s.AuthRequired())

	// -------- Me --------
	v1.POST("/me", s.ProvisionMe)
	v1.GET("/me", s.GetMe)
	v1.PATCH("/users/:id/admin", s.SetUserAdmin)

	// -------- Grids --------
	v1.GET("/grids", s.ListGrids)
	v1.GET("/grids/shared", s.ListSharedGrids)
	v1.POST("/grids", s.CreateGrid)
	v1.GET("/grids/:id", s.GetGrid)
	v1.DELETE("/grids/:id", s.DeleteGrid)
	v1.GET("/grids/:id/permission", s.ResolvePermission)

	// -------- Shares --------
	v1.POST("/grids/:id/shares", s.EmailLookupRateLimit(singleLookup), s.CreateShare)
	v1.GET("/grids/:id/shares", s.ListShares)
	v1.DELETE("/grids/:id/shares/:userId", s.RevokeShare)

	// -------- Tiles --------
	v1.GET("/grids/:id/tiles", s.ListTiles)
	v1.POST("/grids/:id/tiles", s.CreateTile)
	v1.POST("/grids/:id/tiles/restore", s.RestoreTiles)
	v1.POST("/tiles/:id/hide", s.HideTile)
	v1.PATCH("/tiles/:id", s.UpdateTile)
	v1.PUT("/tiles/layout", s.BatchUpdateLayout)
	v1.POST("/tiles/delete", s.DeleteTiles)

	// -------- Messages --------
	v1.GET("/tiles/:id/messages", s.ListMessages)
	v1.POST("/tiles/:id/messages", s.PostMessage)

	// -------- Files --------
	v1.GET("/grids/:id/files", s.ListFiles)
	v1.POST("/grids/:id/files", s.RegisterFile)
	v1.GET("/files/:id", s.GetFile)
	v1.DELETE("/files/:id", s.DeleteFile)

	// -------- Audit --------
	v1.GET("/grids/:id/audit-logs", s.ListAuditLogs)

	// -------- Channels --------
	v1.POST("/channels", s.CreateChannel)
	v1.GET("/channels", s.ListChannels)
	v1.GET("/channels/:id/members", s.ListChannelMembers)
	v1.POST("/channels/:id/members", s.EmailLookupRateLimit(countEmailsInBody), s.AddChannelMembers)
	v1.POST("/channel-groups", s.CreateChannelGroup)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}

// ipRateLimit is nil when IP_RATE_LIMIT is zero.
func (s *Server) ipRateLimit() gin.HandlerFunc {
	if s.cfg.IPRateLimit == 0 {
		return nil
	}
	window := s.cfg.IPRateWindow
	if window <= 0 {
		window = time.Second
	}
	store := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  window,
		Limit: s.cfg.IPRateLimit,
	})
	return ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: func(c *gin.Context, info ratelimit.Info) {
			setRetryAfter(c, time.Until(info.ResetTime))
			s.recordRateLimitDenied(c, "ip")
			AbortWithError(c, ErrRateLimited)
		},
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})
}
