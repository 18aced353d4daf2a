package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/anoixa/story-overlay/api/core"
	"github.com/anoixa/story-overlay/cache"
	"github.com/anoixa/story-overlay/config"
	"github.com/anoixa/story-overlay/database"
	"github.com/anoixa/story-overlay/database/repo/records"
	"github.com/anoixa/story-overlay/internal/credits"
	"github.com/anoixa/story-overlay/internal/ingestion"
	"github.com/anoixa/story-overlay/internal/moderation"
	upstream "github.com/anoixa/story-overlay/internal/proxy"
	"github.com/anoixa/story-overlay/internal/rewrite"
	"github.com/anoixa/story-overlay/storage"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the proxy server",
	Run: func(cmd *cobra.Command, args []string) {
		RunServer()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func RunServer() {
	config.InitConfig()
	cfg := config.Get()

	if err := os.MkdirAll("./data", os.ModePerm); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	db, err := database.NewDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to auto migrate database: %v", err)
	}
	log.Println("Database initialized successfully")

	cacheProvider, err := cache.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}

	ctx := context.Background()
	store, err := storage.NewFromConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	log.Printf("Using %s storage for overlay files", store.Name())

	var repo records.RepositoryInterface = records.NewRepository(db)
	if cacheProvider != nil {
		repo = records.NewCachedRepository(repo, cacheProvider, cfg.CacheTTL)
	}

	upstreamClient, err := upstream.NewClient(cfg.UpstreamOrigin, cfg.UpstreamTimeout)
	if err != nil {
		log.Fatalf("Failed to initialize upstream client: %v", err)
	}

	ingestionSvc, err := ingestion.NewService(repo, store, cfg.UpstreamOrigin)
	if err != nil {
		log.Fatalf("Failed to initialize ingestion service: %v", err)
	}
	moderationSvc := moderation.NewService(repo)
	creditsSvc := credits.NewService(repo)
	rewriter := rewrite.NewRewriter(repo, creditsSvc, cfg.UpstreamOrigin)

	deps := &core.ServerDependencies{
		DB:             db,
		Repo:           repo,
		Cache:          cacheProvider,
		Store:          store,
		UpstreamClient: upstreamClient,
		Ingestion:      ingestionSvc,
		Moderation:     moderationSvc,
		Rewriter:       rewriter,
	}

	// 启动gin
	server, cleanup := core.StartServer(deps)
	go func() {
		log.Printf("Server started on %s, proxying %s", cfg.Addr(), cfg.UpstreamOrigin)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// 处理退出signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 先排空在途请求，再回收它们还在用的资源
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if cleanup != nil {
		cleanup()
		log.Println("Cleanup tasks finished.")
	}

	if cacheProvider != nil {
		if err := cacheProvider.Close(); err != nil {
			log.Printf("Error closing cache: %v", err)
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}

	log.Println("Server exited successfully")
}
