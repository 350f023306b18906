package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/sevaportal/portal-api/internal/handler"
	"github.com/sevaportal/portal-api/internal/middleware"
	"github.com/sevaportal/portal-api/internal/models"
	"github.com/sevaportal/portal-api/internal/service"
	"github.com/sevaportal/portal-api/pkg/config"
	"github.com/sevaportal/portal-api/pkg/logger"
	corsmiddleware "github.com/sevaportal/portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/sevaportal/portal-api/pkg/middleware/requestid"
)

// Handlers groups every HTTP handler the API mounts.
type Handlers struct {
	Auth         *handler.AuthHandler
	Access       *handler.AccessHandler
	Schedule     *handler.ScheduleHandler
	Session      *handler.SessionHandler
	Availability *handler.AvailabilityHandler
	Metrics      *handler.MetricsHandler
}

// Setup builds the gin engine with global middleware and all routes.
func Setup(cfg *config.Config, h Handlers, auth *service.AuthService, metrics *service.MetricsService, logr *zap.Logger) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	jwt := middleware.JWT(auth)
	project := middleware.Project(cfg.BaseDomain)

	api := r.Group(cfg.APIPrefix)
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", h.Auth.Login)
			authGroup.POST("/student/login", h.Auth.StudentLogin)
			authGroup.GET("/me", jwt, h.Auth.Me)
		}

		access := api.Group("/access")
		{
			access.GET("/routes", h.Access.Routes)
			access.POST("/check", middleware.OptionalJWT(auth), h.Access.Check)
		}

		staff := api.Group("")
		staff.Use(jwt, middleware.MinRole(models.RoleVolunteer), project)
		{
			availability := staff.Group("/availability")
			{
				availability.GET("/mine", h.Availability.Mine)
				availability.PUT("", h.Availability.Set)
				availability.DELETE("/:id", h.Availability.Delete)
			}

			sessions := staff.Group("/sessions")
			{
				sessions.GET("/mine", h.Session.Mine)
				sessions.POST("/:id/check-in", h.Session.CheckIn)
				sessions.POST("/:id/check-out", h.Session.CheckOut)
				sessions.POST("/:id/report", h.Session.Report)

				exe := middleware.MinRole(models.RoleExe)
				sessions.POST("/:id/students", exe, h.Schedule.AddStudent)
				sessions.PUT("/:id/students", exe, h.Schedule.ReplaceStudents)
				sessions.PATCH("/:id", exe, h.Schedule.ReplaceStudents)
				sessions.DELETE("/:id/students/:studentId", exe, h.Schedule.RemoveStudent)
			}

			staff.GET("/volunteers/me/performance", h.Session.MyPerformance)
			staff.GET("/volunteers/:id/performance", middleware.MinRole(models.RoleExe), h.Session.Performance)

			schedule := staff.Group("/schedule")
			schedule.Use(middleware.MinRole(models.RoleExe))
			{
				schedule.GET("", h.Schedule.Get)
				schedule.POST("", h.Schedule.Create)
				schedule.GET("/availability", h.Schedule.Availability)
				schedule.GET("/export", h.Schedule.Export)
			}

			staff.GET("/metrics/snapshot", middleware.MinRole(models.RoleAdmin), h.Metrics.Snapshot)
		}
	}

	return r
}
