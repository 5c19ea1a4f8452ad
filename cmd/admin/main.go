package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"go-gin-user-admin/internal/core/cache"
	"go-gin-user-admin/internal/core/config"
	"go-gin-user-admin/internal/core/database"
	"go-gin-user-admin/internal/core/logger"
	"go-gin-user-admin/internal/core/server"
	"go-gin-user-admin/internal/core/storage"
	"go-gin-user-admin/internal/domain"
	"go-gin-user-admin/internal/repo"
	"go-gin-user-admin/internal/repo/memory"
	"go-gin-user-admin/internal/service"
	"go-gin-user-admin/internal/transport/http/handler"
	"go-gin-user-admin/internal/transport/http/router"
	"go-gin-user-admin/pkg/utils"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	log, cleanup := logger.Build(logger.Options{
		Level:       cfg.Log.Level,
		JSON:        cfg.Log.JSON,
		AddCaller:   true,
		Development: !cfg.Log.JSON,
		Rotate: logger.FileRotate{
			Enable:     cfg.Log.Rotate.Enable,
			Filename:   cfg.Log.Rotate.Filename,
			MaxSizeMB:  cfg.Log.Rotate.MaxSizeMB,
			MaxBackups: cfg.Log.Rotate.MaxBackups,
			MaxAgeDays: cfg.Log.Rotate.MaxAgeDays,
			Compress:   cfg.Log.Rotate.Compress,
		},
	})
	defer cleanup()

	// 存储（失败直接 Fatal）
	users, roles := mustOpenStore(cfg, log)

	// 依赖
	userSvc, err := service.NewUserService(users, utils.NewBcrypt(), service.UserOptions{
		Projector:      service.Projector{AssetBase: cfg.Assets.PublicBaseURL},
		RequiredFields: cfg.Users.RequiredFields,
	})
	if err != nil {
		log.Fatal("user service", zap.Error(err))
	}
	roleSvc := service.NewRoleService(roles)
	if rc := openCache(cfg, log); rc != nil {
		defer rc.Close()
		roleSvc.WithCache(rc, time.Duration(cfg.Roles.CacheTTLSec)*time.Second, log.Named("roles"))
	}
	up := storage.Local{Dir: cfg.Upload.Dir, MaxBytes: cfg.Upload.MaxBytes}

	// 路由（后台端）
	r := router.NewAdminEngine(log, router.Options{
		RPS:          cfg.Limits.RPS,
		Burst:        cfg.Limits.Burst,
		Concurrency:  cfg.Limits.Concurrency,
		MaxBodyBytes: cfg.Limits.MaxBodyMB << 20,
		Timeout:      time.Duration(cfg.Limits.TimeoutSec) * time.Second,
		StaticDir:    cfg.Upload.Dir,
		AllowOrigins: cfg.App.HTTP.AllowOrigins,
	},
		handler.NewUserHandler(userSvc, up, log.Named("users")),
		handler.NewRoleHandler(roleSvc),
	)

	// HTTP Server
	h := cfg.App.HTTP
	addr := server.Addr(h.Host, h.Port)
	srv := server.BuildServer(addr, r,
		time.Duration(h.ReadTimeoutSec)*time.Second,
		time.Duration(h.WriteTimeoutSec)*time.Second,
		time.Duration(h.IdleTimeoutSec)*time.Second,
	)

	host4human := h.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(h.Port)
	log.Info("admin api starting",
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("admin_v1", baseURL+"/admin/v1"),
		zap.String("driver", cfg.DB.Driver),
	)

	// 异步启动；失败立即退出
	go func() {
		if err := server.StartHTTP(srv, log); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("admin api start FAILED", zap.Error(err))
		}
	}()

	// 关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("admin api shutdown", zap.Error(err))
	}
	log.Info("admin api stopped gracefully")
}

func mustOpenStore(cfg *config.Config, l *zap.Logger) (domain.UserRepository, domain.RoleRepository) {
	if cfg.DB.Driver == "memory" {
		db := memory.New(cfg.DB.SeedRoles...)
		l.Warn("using in-memory store, data is lost on restart")
		return db, db.Roles()
	}

	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	}, l)
	if err != nil {
		l.Fatal("db open", zap.String("dsn", database.MaskDSN(cfg.DB.DSN)), zap.Error(err))
	}
	l.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := db.AutoMigrate(&domain.Role{}, &domain.User{}); err != nil {
			l.Fatal("db migrate", zap.Error(err))
		}
	}
	roles := repo.NewRoleRepo(db)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := roles.Seed(ctx, cfg.DB.SeedRoles); err != nil {
		l.Fatal("seed roles", zap.Strings("roles", cfg.DB.SeedRoles), zap.Error(err))
	}
	return repo.NewUserRepo(db), roles
}

// openCache 未配置 redis 时返回 nil；连不上只告警，读路径会直接回源
func openCache(cfg *config.Config, l *zap.Logger) *cache.Cache {
	if cfg.Redis.Addr == "" {
		return nil
	}
	c := cache.New(cache.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		l.Warn("redis unreachable, role cache degraded", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	return c
}
