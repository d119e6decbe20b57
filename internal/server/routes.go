package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	slogGin "github.com/samber/slog-gin"

	execHandler "github.com/codepod-dev/codepod/internal/server/handlers/exec"
	workspaceHandler "github.com/codepod-dev/codepod/internal/server/handlers/workspace"
	"github.com/codepod-dev/codepod/internal/version"
)

func SetupRoutes(svc *Services) http.Handler {
	r := gin.New()

	wsH := workspaceHandler.New(svc.Workspace)
	exH := execHandler.New(svc.Jobs, svc.Workspace)

	httpLogger := slog.Default().WithGroup("http")
	r.Use(slogGin.NewWithConfig(httpLogger, slogGin.Config{
		DefaultLevel:     slog.LevelInfo,
		ClientErrorLevel: slog.LevelWarn,
		ServerErrorLevel: slog.LevelError,
		WithRequestID:    true,
	}))
	r.Use(gin.Recovery())
	r.Use(gzip.Gzip(gzip.BestSpeed))
	r.Use(cors.Default())

	r.GET("/", IndexHandler)
	r.GET("/healthz", HealthHandler)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/workspace", wsH.Create)
		v1.GET("/workspace/:id/manifest", wsH.GetManifest)
		v1.POST("/workspace/:id/sync", wsH.Sync)
		v1.POST("/workspace/:id/confirm", wsH.Confirm)

		v1.POST("/workspace/:id/execute", exH.Execute)
		v1.GET("/jobs/:id", exH.GetJob)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "not found",
		})
	})

	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"error": "method not allowed",
		})
	})

	return r.Handler()
}

func IndexHandler(ctx *gin.Context) {
	ctx.String(http.StatusOK, version.DetailedWithApp())
}

func HealthHandler(ctx *gin.Context) {
	ctx.PureJSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}
