package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/thesis-pipeline-api/internal/handler"
	"github.com/noah-isme/thesis-pipeline-api/internal/middleware"
	"github.com/noah-isme/thesis-pipeline-api/internal/models"
	"github.com/noah-isme/thesis-pipeline-api/internal/service"
	"github.com/noah-isme/thesis-pipeline-api/pkg/config"
	"github.com/noah-isme/thesis-pipeline-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/thesis-pipeline-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/thesis-pipeline-api/pkg/middleware/requestid"
)

type routerDeps struct {
	tokens      *service.TokenService
	metrics     *service.MetricsService
	audit       *service.AuditDispatcher
	submissions *handler.SubmissionHandler
	schedules   *handler.ScheduleHandler
	committees  *handler.CommitteeHandler
	lecturers   *handler.LecturerHandler
	corpus      *handler.CorpusHandler
	workflow    *handler.WorkflowHandler
	ops         *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", deps.ops.Health)
	r.GET("/ready", deps.ops.Ready)
	r.GET("/metrics", deps.ops.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	reviewers := middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin, models.RoleLecturer)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(deps.tokens))

	thesis := api.Group("/thesis")
	thesis.POST("/submissions", middleware.RequireRoles(models.RoleStudent), deps.submissions.Submit)
	thesis.GET("/submissions", deps.submissions.List)
	thesis.GET("/submissions/:id", deps.submissions.Get)
	thesis.PUT("/submissions/:id", middleware.RequireRoles(models.RoleStudent), deps.submissions.Resubmit)
	thesis.POST("/submissions/:id/review", reviewers, deps.submissions.Review)
	thesis.POST("/submissions/:id/withdraw", middleware.RequireRoles(models.RoleStudent, models.RoleAdmin, models.RoleSuperAdmin), deps.submissions.Withdraw)
	thesis.GET("/submissions/:id/similarity-report",
		middleware.Audit(deps.audit, models.AuditActionSimilarityExport, "thesis_submission", "id"),
		deps.submissions.SimilarityReport)
	thesis.POST("/similarity/check", deps.submissions.CheckSimilarity)
	thesis.POST("/corpus/refresh", reviewers, deps.corpus.Refresh)

	schedules := api.Group("/exam-schedules")
	schedules.GET("", staff, deps.schedules.List)
	schedules.GET("/:id", staff, deps.schedules.Get)
	schedules.GET("/:id/committee", staff, deps.committees.GetBySchedule)
	schedules.PUT("/:id/datetime", reviewers, deps.schedules.SetDateTime)
	schedules.POST("/:id/verify", reviewers, deps.schedules.Verify)
	schedules.POST("/:id/reschedule", reviewers, deps.schedules.Reschedule)
	schedules.POST("/:id/cancel", reviewers, deps.schedules.Cancel)

	committees := api.Group("/committees")
	committees.GET("/:id", staff, deps.committees.Get)
	committees.PUT("/:id/roles/:role", reviewers, deps.committees.Assign)
	committees.DELETE("/:id/roles/:role", reviewers, deps.committees.Unassign)

	api.GET("/lecturers", reviewers, deps.lecturers.List)
	api.GET("/workflow/pending-counts", reviewers, deps.workflow.PendingCounts)

	return r
}
