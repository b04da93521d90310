package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/thesis-pipeline-api/api/swagger"
	"github.com/noah-isme/thesis-pipeline-api/internal/committee"
	"github.com/noah-isme/thesis-pipeline-api/internal/handler"
	"github.com/noah-isme/thesis-pipeline-api/internal/repository"
	"github.com/noah-isme/thesis-pipeline-api/internal/service"
	"github.com/noah-isme/thesis-pipeline-api/internal/similarity"
	"github.com/noah-isme/thesis-pipeline-api/pkg/cache"
	"github.com/noah-isme/thesis-pipeline-api/pkg/config"
	"github.com/noah-isme/thesis-pipeline-api/pkg/database"
	"github.com/noah-isme/thesis-pipeline-api/pkg/jobs"
	"github.com/noah-isme/thesis-pipeline-api/pkg/lock"
	"github.com/noah-isme/thesis-pipeline-api/pkg/logger"
)

// @title Thesis Pipeline API
// @version 1.0.0
// @description Thesis title submission, exam scheduling and committee assignment.
// @BasePath /api/v1
// @schemes http
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, continuing without cache and with in-process locks", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	policy, err := committee.PolicyFromConfig(cfg.Committee.MaxExaminers, cfg.Committee.RequiredRoles, cfg.Committee.MinExaminers)
	if err != nil {
		logr.Fatal("invalid committee policy", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()
	validate := validator.New()

	submissionRepo := repository.NewSubmissionRepository(db)
	scheduleRepo := repository.NewExamScheduleRepository(db)
	committeeRepo := repository.NewCommitteeRepository(db)
	lecturerRepo := repository.NewLecturerRepository(db)
	corpusRepo := repository.NewCorpusRepository(db)

	audit := service.NewAuditDispatcher(repository.NewAuditRepository(db), jobs.QueueConfig{
		Workers:    cfg.Workflow.AuditWorkers,
		BufferSize: cfg.Workflow.AuditBuffer,
		MaxRetries: 3,
		Logger:     logr,
	})
	audit.Start(context.Background())

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheSvc = service.NewCacheService(repository.NewCacheRepository(redisClient, "thesis"), metrics, cfg.Similarity.CorpusCacheTTL, logr)
	}

	corpusSvc := service.NewCorpusService(corpusRepo, cacheSvc, cfg.Similarity.CorpusCacheTTL, logr)
	lecturerSvc := service.NewLecturerService(lecturerRepo, logr)
	engine := similarity.NewEngine(similarity.ConfigFrom(cfg.Similarity))

	submissionSvc := service.NewSubmissionService(service.SubmissionServiceParams{
		Repo:                submissionRepo,
		Corpus:              corpusSvc,
		Scorer:              engine,
		Locker:              newLocker(redisClient, cfg.Workflow, logr),
		Audit:               audit,
		Metrics:             metrics,
		Validator:           validate,
		Logger:              logr,
		DefaultExamDuration: cfg.Workflow.DefaultExamDuration,
		LockWait:            cfg.Workflow.LockWait,
	})
	scheduleSvc := service.NewScheduleService(scheduleRepo, audit, metrics, validate, logr)
	committeeSvc := service.NewCommitteeService(service.CommitteeServiceParams{
		Repo:      committeeRepo,
		Schedules: scheduleRepo,
		Lecturers: lecturerSvc,
		Policy:    policy,
		Audit:     audit,
		Metrics:   metrics,
		Validator: validate,
		Logger:    logr,
	})
	workflowSvc := service.NewWorkflowService(submissionRepo, scheduleRepo, committeeRepo, policy, logr)
	exportSvc := service.NewExportService(submissionSvc, logr)

	r := newRouter(cfg, logr, routerDeps{
		tokens:      service.NewTokenService(cfg.JWT.Secret),
		metrics:     metrics,
		audit:       audit,
		submissions: handler.NewSubmissionHandler(submissionSvc, exportSvc),
		schedules:   handler.NewScheduleHandler(scheduleSvc),
		committees:  handler.NewCommitteeHandler(committeeSvc),
		lecturers:   handler.NewLecturerHandler(lecturerSvc),
		corpus:      handler.NewCorpusHandler(corpusSvc),
		workflow:    handler.NewWorkflowHandler(workflowSvc),
		ops:         handler.NewMetricsHandler(metrics, db),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	audit.Stop()
}

func newLocker(client *redis.Client, cfg config.WorkflowConfig, logr *zap.Logger) lock.Locker {
	if client == nil {
		return lock.NewLocal()
	}
	return lock.NewRedis(client, lock.RedisConfig{Prefix: "thesis:lock:", TTL: cfg.LockTTL, Wait: cfg.LockWait}, logr)
}
