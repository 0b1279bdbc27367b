package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-fees-api/api/swagger"
	"github.com/noah-isme/sma-fees-api/internal/dto"
	"github.com/noah-isme/sma-fees-api/internal/fees"
	"github.com/noah-isme/sma-fees-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-fees-api/internal/middleware"
	"github.com/noah-isme/sma-fees-api/internal/models"
	"github.com/noah-isme/sma-fees-api/internal/repository"
	"github.com/noah-isme/sma-fees-api/internal/service"
	"github.com/noah-isme/sma-fees-api/pkg/cache"
	"github.com/noah-isme/sma-fees-api/pkg/config"
	"github.com/noah-isme/sma-fees-api/pkg/database"
	"github.com/noah-isme/sma-fees-api/pkg/jobs"
	"github.com/noah-isme/sma-fees-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-fees-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-fees-api/pkg/middleware/requestid"
)

// @title School Fees API
// @version 1.0.0
// @description Fee ledger, receipts and collection reports for the school front office.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := fees.ValidateRules(fees.DefaultRules); err != nil {
		logr.Fatal("invalid extras rule table", zap.Error(err))
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	// amounts keep their exact decimal text until fees.ParseAmount sees them
	binding.EnableDecoderUseNumber = true

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelBoot()

	db, err := database.NewPostgres(bootCtx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(bootCtx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, term summaries will not be cached", zap.Error(err))
	}

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	cacheRepo := repository.NewCacheRepository(redisClient, "fees-api", logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Fees.SummaryCacheTTL, logr, redisClient != nil)

	studentRepo := repository.NewStudentRepository(db)
	feeScheduleRepo := repository.NewFeeScheduleRepository(db)
	extraPriceRepo := repository.NewExtraPriceRepository(db)
	adjustmentRepo := repository.NewAdjustmentRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	historyRepo := repository.NewChargeHistoryRepository(db)
	counterRepo := repository.NewReceiptCounterRepository(db)
	maintenanceRepo := repository.NewMaintenanceRepository(db)

	loc := cfg.Fees.Location()
	receipts := service.NewReceiptAllocator(counterRepo, loc, metricsSvc, logr)

	feeSvc := service.NewFeeService(
		studentRepo,
		feeScheduleRepo,
		extraPriceRepo,
		adjustmentRepo,
		paymentRepo,
		historyRepo,
		receipts,
		cacheSvc,
		metricsSvc,
		validate,
		logr,
		service.FeeServiceConfig{
			Location:                     loc,
			AssumePromotionIfMissingPrev: cfg.Fees.AssumePromotionIfMissingPrev,
			SummaryBatchSize:             cfg.Fees.SummaryBatchSize,
			SummaryCacheTTL:              cfg.Fees.SummaryCacheTTL,
			Currency:                     cfg.Fees.Currency,
			School: dto.SchoolHeader{
				Name:    cfg.School.Name,
				Address: cfg.School.Address,
				Phone:   cfg.School.Phone,
				Logo:    cfg.School.Logo,
			},
			Rules: fees.DefaultRules,
		},
	)
	paymentSvc := service.NewPaymentService(paymentRepo, cacheSvc, metricsSvc, loc, validate, logr)
	adjustmentSvc := service.NewAdjustmentService(adjustmentRepo, studentRepo, cacheSvc, validate, logr)
	extraPriceSvc := service.NewExtraPriceService(extraPriceRepo, cacheSvc, validate, logr)
	maintenanceSvc := service.NewMaintenanceService(maintenanceRepo, cacheSvc, logr)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var warmer *service.SummaryWarmer
	if cfg.Warmer.Enabled {
		warmer = service.NewSummaryWarmer(feeSvc, jobs.QueueConfig{
			Workers:    cfg.Warmer.Workers,
			MaxRetries: cfg.Warmer.MaxRetries,
			RetryDelay: cfg.Warmer.RetryDelay,
			Logger:     logr,
		}, logr)
		warmer.Start(rootCtx)
		defer warmer.Stop()
	}

	var auth gin.HandlerFunc
	switch cfg.Auth.Mode {
	case config.AuthModeDevBypass:
		if cfg.Env == config.EnvProduction {
			logr.Fatal("dev-bypass auth is not allowed in production")
		}
		logr.Warn("authentication bypassed", zap.String("default_role", cfg.Auth.DevRole))
		auth = internalmiddleware.DevBypass(models.UserRole(cfg.Auth.DevRole))
	default:
		auth = internalmiddleware.JWT(service.NewTokenService(cfg.Auth.Secret, cfg.Auth.Issuer))
	}

	var summaryQueue handler.SummaryQueue
	if warmer != nil {
		summaryQueue = warmer
	}
	feeHandler := handler.NewFeeHandler(feeSvc, summaryQueue)
	paymentHandler := handler.NewPaymentHandler(paymentSvc)
	adjustmentHandler := handler.NewAdjustmentHandler(adjustmentSvc)
	extraPriceHandler := handler.NewExtraPriceHandler(extraPriceSvc)
	adminHandler := handler.NewAdminHandler(maintenanceSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db, cacheRepo)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	staff := internalmiddleware.RequireRoles(models.RoleDirector, models.RoleSecretary)
	director := internalmiddleware.RequireRoles(models.RoleDirector)

	api := r.Group(cfg.APIPrefix, auth)

	feesGroup := api.Group("/fees")
	feesGroup.POST("", staff, feeHandler.RecordPayment)
	feesGroup.GET("/statement/:studentId", staff, feeHandler.Statement)
	feesGroup.GET("/by-student/:id", staff, feeHandler.ByStudent)
	feesGroup.GET("/debug/missing-classes", staff, feeHandler.MissingClasses)
	feesGroup.GET("/receipt-by-number/:no", director, feeHandler.ReceiptByNumber)
	feesGroup.GET("/term-summary", director, feeHandler.TermSummary)
	feesGroup.POST("/term-summary/refresh", director, feeHandler.RefreshTermSummary)
	feesGroup.GET("/daily", director, feeHandler.Daily)
	feesGroup.GET("/daily/details", director, feeHandler.DailyDetails)
	feesGroup.POST("/:id/void", director, paymentHandler.Void)
	feesGroup.PATCH("/:id", director, paymentHandler.Edit)
	feesGroup.DELETE("/admin/wipe", director, adminHandler.Wipe)

	api.GET("/extraprices", staff, extraPriceHandler.List)
	api.POST("/extraprices", staff, extraPriceHandler.Upsert)
	api.GET("/adjustments", staff, adjustmentHandler.List)
	api.POST("/adjustments", staff, adjustmentHandler.Create)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
