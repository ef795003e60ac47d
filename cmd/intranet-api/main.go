package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/frontier-maritime/intranet-api/api/swagger"
	"github.com/frontier-maritime/intranet-api/internal/authz"
	"github.com/frontier-maritime/intranet-api/internal/handler"
	"github.com/frontier-maritime/intranet-api/internal/middleware"
	"github.com/frontier-maritime/intranet-api/internal/repository"
	"github.com/frontier-maritime/intranet-api/internal/service"
	"github.com/frontier-maritime/intranet-api/pkg/cache"
	"github.com/frontier-maritime/intranet-api/pkg/config"
	"github.com/frontier-maritime/intranet-api/pkg/database"
	"github.com/frontier-maritime/intranet-api/pkg/logger"
	corsmiddleware "github.com/frontier-maritime/intranet-api/pkg/middleware/cors"
	reqidmiddleware "github.com/frontier-maritime/intranet-api/pkg/middleware/requestid"
	"github.com/frontier-maritime/intranet-api/pkg/storage"
)

// @title Crew Intranet API
// @version 1.0.0
// @description Internal crew intranet: session authorization, onboarding college, voyages, forms and cashflow.
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	// The capability cache is an optimisation: a missing Redis downgrades to
	// resolving permissions from postgres on every request.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, capability caching disabled", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()
	catalog := authz.NewCatalog()

	employeeRepo := repository.NewEmployeeRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	examRepo := repository.NewExamRepository(db)
	voyageRepo := repository.NewVoyageRepository(db)
	formRepo := repository.NewFormRepository(db)
	cashflowRepo := repository.NewCashflowRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCapabilityCacheService(redisClient, metricsSvc, cfg.Authz.CacheTTL, logr)
	resolverSvc := service.NewResolverService(roleRepo, employeeRepo, catalog, cacheSvc, logr)
	authSvc := service.NewAuthService(sessionRepo, auditRepo, validate, logr, service.AuthConfig{
		TokenSecret:   cfg.JWT.Secret,
		TokenExpiry:   cfg.JWT.Expiration,
		RefreshExpiry: cfg.JWT.RefreshExpiration,
		Issuer:        cfg.JWT.Issuer,
		ExchangeKey:   cfg.JWT.ExchangeKey,
	})
	collegeSvc := service.NewCollegeService(enrollmentRepo, courseRepo, employeeRepo, validate, logr,
		cfg.College.DefaultDueDays, cfg.College.TraineeRoleName)
	examSvc := service.NewExamService(examRepo, enrollmentRepo, collegeSvc, logr)
	employeeSvc := service.NewEmployeeService(employeeRepo, collegeSvc, auditRepo, validate, logr, cfg.College.DefaultDueDays)
	roleSvc := service.NewRoleService(roleRepo, catalog, cacheSvc, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, validate, logr)
	voyageSvc := service.NewVoyageService(voyageRepo, validate, logr, cfg.Voyages.CompanyShareFloor)
	formSvc := service.NewFormService(formRepo, logr)
	cashflowSvc := service.NewCashflowService(cashflowRepo, logr)
	auditSvc := service.NewAuditService(auditRepo, logr)
	exportSvc := service.NewExportService(employeeRepo, cashflowRepo, logr, cfg.Exports.CompanyName)

	exportStore, err := storage.NewLocalStorage(cfg.Exports.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.JWT.Secret, cfg.Exports.URLTTL)
	exportJobSvc := service.NewExportJobService(exportSvc, exportStore, signer, logr, cfg.Exports.Workers, cfg.Exports.URLTTL)
	exportJobSvc.Start(context.Background())
	defer exportJobSvc.Stop()

	authH := handler.NewAuthHandler(authSvc, resolverSvc)
	employeeH := handler.NewEmployeeHandler(employeeSvc)
	roleH := handler.NewRoleHandler(roleSvc)
	collegeH := handler.NewCollegeHandler(collegeSvc, courseSvc, exportSvc)
	examH := handler.NewExamHandler(examSvc)
	voyageH := handler.NewVoyageHandler(voyageSvc)
	formH := handler.NewFormHandler(formSvc)
	cashflowH := handler.NewCashflowHandler(cashflowSvc, exportSvc, exportJobSvc)
	auditH := handler.NewAuditHandler(auditSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	session := middleware.Session(authSvc)
	restrict := middleware.RestrictTrainees()
	guard := func(keys ...string) gin.HandlerFunc {
		return middleware.Authorize(resolverSvc, metricsSvc, keys...)
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/exchange", authH.Exchange)
		auth.POST("/break-glass", authH.BreakGlass)
		auth.POST("/refresh", authH.Refresh)
		auth.GET("/me", session, guard(), authH.Me)
	}

	employees := api.Group("/employees", session)
	{
		employees.GET("", guard(authz.PermEmployeesView, authz.PermEmployeesManage), restrict, employeeH.List)
		employees.GET("/:id", guard(authz.PermEmployeesView, authz.PermEmployeesManage), restrict, employeeH.Get)
		employees.POST("", guard(authz.PermEmployeesManage), restrict, employeeH.Accept)
		employees.PATCH("/:id", guard(authz.PermEmployeesManage), restrict, employeeH.Update)
	}

	roles := api.Group("/roles", session, guard(authz.PermRolesManage), restrict)
	{
		roles.GET("/catalog", roleH.Catalog)
		roles.GET("", roleH.List)
		roles.POST("", roleH.Create)
		roles.PUT("/:id/permissions", roleH.ReplacePermissions)
		roles.POST("/:id/assignments", roleH.Assign)
		roles.DELETE("/:id/assignments/:identityId", roleH.Unassign)
		roles.POST("/:id/groups", roleH.MapGroup)
		roles.DELETE("/:id/groups/:groupId", roleH.UnmapGroup)
	}

	ranks := api.Group("/ranks", session, guard(authz.PermRolesManage), restrict)
	{
		ranks.PUT("/:rank/permissions", roleH.SetRankPermissions)
	}

	// College routes stay reachable for restricted trainees; every other
	// surface carries the trainee restriction.
	college := api.Group("/college", session)
	{
		courseRead := guard(authz.PermCollegeView, authz.PermCollegeManage)
		courseWrite := guard(authz.PermCollegeManage)

		college.GET("/courses", courseRead, collegeH.ListCourses)
		college.POST("/courses", courseWrite, collegeH.CreateCourse)
		college.GET("/courses/:courseId", courseRead, collegeH.GetCourse)
		college.PATCH("/courses/:courseId", courseWrite, collegeH.UpdateCourse)
		college.DELETE("/courses/:courseId", courseWrite, collegeH.ArchiveCourse)
		college.POST("/courses/:courseId/modules", courseWrite, collegeH.AddModule)

		// Self-serve progression. Target resolution inside the handlers keeps
		// callers on their own record unless they hold a management key.
		college.GET("/progress", guard(), collegeH.Progress)
		college.POST("/modules/:moduleId/complete", guard(), collegeH.CompleteModule)
		college.POST("/courses/:courseId/terms", guard(), collegeH.AcknowledgeTerms)
		college.POST("/pass/evaluate", guard(), collegeH.EvaluatePass)
		college.GET("/certificate", guard(), collegeH.Certificate)

		college.POST("/exams/:id/attempts", guard(), examH.Submit)
		college.GET("/exams/:id/attempts", guard(), examH.ListAttempts)
		college.PUT("/attempts/:attemptId/grade", guard(authz.PermExamMark, authz.PermCollegeManage), examH.Grade)

		staff := guard(authz.PermCollegeManage, authz.PermProgressOverride, authz.PermExamMark)
		override := guard(authz.PermProgressOverride, authz.PermCollegeManage)

		college.GET("/employees/:employeeId/progress", staff, collegeH.Progress)
		college.POST("/employees/:employeeId/modules/:moduleId/complete", staff, collegeH.CompleteModule)
		college.POST("/employees/:employeeId/pass/evaluate", staff, collegeH.EvaluatePass)
		college.GET("/employees/:employeeId/certificate", staff, collegeH.Certificate)
		college.GET("/employees/:employeeId/exams/:id/attempts", staff, examH.ListAttempts)
		college.POST("/employees/:employeeId/due-date", override, collegeH.ExtendDue)
		college.POST("/employees/:employeeId/mark-passed", override, collegeH.MarkPassed)
		college.POST("/employees/:employeeId/withdraw", override, collegeH.Withdraw)
	}

	if cfg.Voyages.Enabled {
		voyages := api.Group("/voyages", session)
		{
			voyages.GET("", guard(authz.PermVoyageView, authz.PermVoyageManage), restrict, voyageH.List)
			voyages.GET("/:id", guard(authz.PermVoyageView, authz.PermVoyageManage), restrict, voyageH.Get)
			voyages.POST("", guard(authz.PermVoyageManage), restrict, voyageH.Create)
			voyages.PATCH("/:id", guard(authz.PermVoyageManage), restrict, voyageH.Update)
			voyages.PUT("/:id/crew", guard(authz.PermVoyageManage), restrict, voyageH.AssignCrew)
			voyages.POST("/:id/settle", guard(authz.PermVoyageSettle), restrict, voyageH.Settle)
		}
	}

	if cfg.Forms.Enabled {
		forms := api.Group("/forms", session)
		{
			forms.GET("", guard(authz.PermFormsView, authz.PermFormsManage), restrict, formH.List)
			forms.GET("/:id", guard(authz.PermFormsView, authz.PermFormsManage), restrict, formH.Get)
			forms.POST("", guard(authz.PermFormsManage), restrict, formH.Create)
			forms.DELETE("/:id", guard(authz.PermFormsManage), restrict, formH.Archive)
			forms.POST("/:id/submissions", guard(authz.PermFormsView, authz.PermFormsManage), restrict, formH.Submit)
			forms.GET("/:id/submissions", guard(authz.PermFormsManage), restrict, formH.Submissions)
		}
	}

	if cfg.Cashflow.Enabled {
		cashflow := api.Group("/cashflow", session)
		{
			cashflow.GET("", guard(authz.PermCashflowView, authz.PermCashflowManage), restrict, cashflowH.List)
			cashflow.GET("/balance", guard(authz.PermCashflowView, authz.PermCashflowManage), restrict, cashflowH.Balance)
			cashflow.POST("", guard(authz.PermCashflowManage), restrict, cashflowH.Record)
			if cfg.Exports.Enabled {
				cashflow.GET("/export", guard(authz.PermCashflowView, authz.PermCashflowManage), restrict, cashflowH.Export)
				cashflow.POST("/export/jobs", guard(authz.PermCashflowView, authz.PermCashflowManage), restrict, cashflowH.CreateExportJob)
				cashflow.GET("/export/jobs/:jobId", guard(authz.PermCashflowView, authz.PermCashflowManage), restrict, cashflowH.GetExportJob)
			}
		}
	}

	audit := api.Group("/audit", session)
	{
		audit.GET("", guard(authz.PermAuditView), restrict, auditH.List)
	}

	if cfg.Exports.Enabled {
		api.GET("/exports/download", cashflowH.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
