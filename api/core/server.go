package core

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	moderationHandler "github.com/anoixa/story-overlay/api/handler/moderation"
	proxyHandler "github.com/anoixa/story-overlay/api/handler/proxy"
	"github.com/anoixa/story-overlay/api/handler/submit"
	"github.com/anoixa/story-overlay/api/middleware"
	"github.com/anoixa/story-overlay/cache/types"
	"github.com/anoixa/story-overlay/config"
	"github.com/anoixa/story-overlay/database/repo/records"
	"github.com/anoixa/story-overlay/internal/ingestion"
	"github.com/anoixa/story-overlay/internal/moderation"
	upstream "github.com/anoixa/story-overlay/internal/proxy"
	"github.com/anoixa/story-overlay/internal/rewrite"
	"github.com/anoixa/story-overlay/storage"
	"gorm.io/gorm"
)

var startTime = time.Now()

// ServerDependencies 服务器依赖项
type ServerDependencies struct {
	DB             *gorm.DB
	Repo           records.RepositoryInterface
	Cache          types.Cache
	Store          storage.Provider
	UpstreamClient *upstream.Client
	Ingestion      *ingestion.Service
	Moderation     *moderation.Service
	Rewriter       *rewrite.Rewriter
}

// 启动gin
func setupRouter(deps *ServerDependencies) (*gin.Engine, func()) {
	cfg := config.Get()
	router := gin.New()

	// 仅在开发版本时启用 gin 日志
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		router.Use(gin.Logger())
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.HSTS(cfg.HSTSMaxAgeSeconds))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.UpstreamOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.SetTrustedProxies(nil)

	// 上传是 multipart，整体不会超过覆盖图的大小限制太多
	router.MaxMultipartMemory = ingestion.FileSizeLimit << 1

	// 速率限制
	uploadRateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitUploadRPS, cfg.RateLimitUploadBurst, cfg.RateLimitExpireTime)
	cleanup := func() {
		uploadRateLimiter.StopCleanup()
	}

	router.GET("/health", func(context *gin.Context) {
		health := gin.H{
			"status":  "ok",
			"uptime":  time.Since(startTime).Round(time.Second).String(),
			"version": config.Version,
			"checks": gin.H{
				"database": checkDatabaseHealth(deps.DB),
				"cache":    checkCacheHealth(deps.Cache),
				"storage":  checkStorageHealth(deps.Store),
			},
		}
		httpStatus := http.StatusOK
		for _, checkResult := range health["checks"].(gin.H) {
			if result, ok := checkResult.(string); ok && result != "ok" {
				httpStatus = http.StatusServiceUnavailable
				break
			}
		}
		context.JSON(httpStatus, health)
	})

	// 创建处理器（依赖注入）
	submitH := submit.NewHandler(deps.Ingestion)
	moderationH := moderationHandler.NewHandler(deps.Moderation)
	adminH := moderationHandler.NewAdminHandler(deps.Repo)
	proxyH := proxyHandler.NewHandler(deps.UpstreamClient, deps.Rewriter, deps.Store, cfg.PublicDir)

	// 覆盖层图片
	router.GET(rewrite.OverlayPathPrefix+":file", proxyH.OverlayFile)

	apiGroup := router.Group("/api")
	apiGroup.Use(func(context *gin.Context) { // 所有API禁止缓存
		context.Header("Cache-Control", "no-store")
		context.Next()
	})
	{
		apiGroup.POST("/upload-image", uploadRateLimiter.Middleware(), submitH.UploadImage)

		reviewGroup := apiGroup.Group("")
		reviewGroup.Use(middleware.BasicAuth())
		{
			reviewGroup.PUT("/accept", moderationH.Accept)
			reviewGroup.DELETE("/reject", moderationH.Reject)
		}
	}

	adminGroup := router.Group("/admin")
	adminGroup.Use(middleware.BasicAuth())
	{
		adminGroup.GET("", adminH.ReviewPage)
	}

	// 其余请求全部走透明代理
	router.NoRoute(proxyH.ProxyPage)

	return router, cleanup
}

// StartServer 创建 http.Server
func StartServer(deps *ServerDependencies) (*http.Server, func()) {
	cfg := config.Get()
	router, clean := setupRouter(deps)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	return srv, clean
}
