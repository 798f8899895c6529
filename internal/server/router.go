package server

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/pe-space-master/api/swagger"
	"github.com/noah-isme/pe-space-master/internal/handler"
	"github.com/noah-isme/pe-space-master/internal/middleware"
	"github.com/noah-isme/pe-space-master/internal/models"
	"github.com/noah-isme/pe-space-master/internal/service"
	"github.com/noah-isme/pe-space-master/pkg/config"
	"github.com/noah-isme/pe-space-master/pkg/logger"
	corsmiddleware "github.com/noah-isme/pe-space-master/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/pe-space-master/pkg/middleware/requestid"
)

// Handlers groups the HTTP handlers mounted by NewRouter.
type Handlers struct {
	Auth       *handler.AuthHandler
	Allocation *handler.AllocationHandler
	Facility   *handler.FacilityHandler
	Report     *handler.ReportHandler
	Export     *handler.ExportHandler
	Metrics    *handler.MetricsHandler
}

// NewRouter builds the gin engine with global middleware and every route.
func NewRouter(cfg *config.Config, logr *zap.Logger, auth *service.AuthService, metrics *service.MetricsService, h Handlers) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if metrics != nil {
		r.Use(middleware.Metrics(metrics))
	}

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", h.Auth.Login)
	api.GET("/exports/:token", h.Export.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(auth))

	secured.POST("/auth/logout", h.Auth.Logout)
	secured.GET("/auth/me", h.Auth.Me)

	allocation := secured.Group("/allocation")
	allocation.POST("/timetable", h.Allocation.UploadTimetable)
	allocation.POST("/curriculum", h.Allocation.UploadCurriculum)
	allocation.POST("/run", h.Allocation.Run)
	allocation.GET("/status", h.Allocation.Status)
	allocation.GET("/results", h.Allocation.Results)
	allocation.GET("/summary", h.Allocation.Summary)
	allocation.POST("/resolve", h.Allocation.Resolve)

	editors := middleware.RequireRoles(facilityEditors(cfg.Auth.FacilityEditors)...)
	facilities := secured.Group("/facilities")
	facilities.GET("", h.Facility.List)
	facilities.PUT("", editors, h.Facility.Replace)
	facilities.POST("/import", editors, h.Facility.Import)
	facilities.POST("/reset", editors, h.Facility.Reset)

	reports := secured.Group("/reports")
	reports.GET("/teacher", h.Report.Teacher)
	reports.GET("/heatmap", h.Report.Heatmap)
	reports.GET("/activities", h.Report.Activities)
	reports.GET("/free-spaces", h.Report.FreeSpaces)
	reports.GET("/conflicts", h.Report.Conflicts)
	reports.GET("/staff", h.Report.Staff)

	secured.POST("/exports", h.Export.Create)

	return r
}

func facilityEditors(raw []string) []models.UserRole {
	if len(raw) == 0 {
		return []models.UserRole{models.RoleAdmin}
	}
	roles := make([]models.UserRole, 0, len(raw))
	for _, r := range raw {
		roles = append(roles, models.ParseUserRole(r))
	}
	return roles
}
