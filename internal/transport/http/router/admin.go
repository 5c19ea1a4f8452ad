package router

import (
	"net/http"
	"path"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"go-gin-user-admin/internal/core/server"
	httpez "go-gin-user-admin/internal/transport/http/ez"
	mdw "go-gin-user-admin/internal/transport/http/middleware"
)

// Options 管理端 engine 参数；零值表示不启用对应保护
type Options struct {
	RPS          float64
	Burst        int
	Concurrency  int64
	MaxBodyBytes int64
	Timeout      time.Duration
	StaticDir    string // 上传目录，挂到 /static/{StaticDir}，与存储返回的相对路径对应
	AllowOrigins []string
}

func NewAdminEngine(l *zap.Logger, o Options, mods ...Module) *gin.Engine {
	r := server.NewRouter(l, o.AllowOrigins)

	// 健康检查 + 指标
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(mdw.MetricsHandler()))
	if o.StaticDir != "" {
		r.Static(path.Join("/static", filepath.ToSlash(o.StaticDir)), o.StaticDir)
	}

	admin := r.Group("/admin/v1")
	admin.Use(
		mdw.RequestID(),
		mdw.AccessLog(l),
		mdw.Metrics(),
		mdw.SimpleRecovery(l),
	)
	if o.RPS > 0 {
		admin.Use(mdw.RateLimit(rate.Limit(o.RPS), max(1, o.Burst)))
	}
	if o.Timeout > 0 {
		admin.Use(mdw.Timeout(o.Timeout))
	}
	if o.Concurrency > 0 {
		admin.Use(mdw.ConcurrencyLimit(o.Concurrency))
	}
	if o.MaxBodyBytes > 0 {
		admin.Use(mdw.MaxBodyBytes(o.MaxBodyBytes))
	}

	MountAll(httpez.New(admin, l), mods...)
	return r
}
