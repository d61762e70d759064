// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"orderstream/internal/pkg/logger"
	"orderstream/internal/pkg/nacos"
	"orderstream/internal/pkg/tracing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// AppCtx 在注册阶段交给每个服务，用来挂路由、启动后台任务和登记清理函数
type AppCtx struct {
	Router chi.Router
	Config *Config

	ctx   context.Context
	group *errgroup.Group

	mu      sync.Mutex
	closers []func(context.Context) error
}

// Go 启动一个与服务同生命周期的后台任务。任务返回非 nil 错误时整个服务会开始关停。
func (a *AppCtx) Go(fn func(ctx context.Context) error) {
	a.group.Go(func() error { return fn(a.ctx) })
}

// OnShutdown 登记一个清理函数，关停时按登记的逆序执行
func (a *AppCtx) OnShutdown(fn func(ctx context.Context) error) {
	a.mu.Lock()
	a.closers = append(a.closers, fn)
	a.mu.Unlock()
}

// AppInfo 包含了启动一个微服务所需的所有特定信息。
type AppInfo struct {
	ServiceName      string
	Port             int
	RegisterHandlers func(app *AppCtx) error // 每个服务注册自己的路由和后台任务
}

// StartService 封装了通用的启动和优雅关停逻辑，阻塞直到收到退出信号或后台任务失败。
func StartService(info AppInfo) error {
	cfg := GetCurrentConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Tracer
	tp, err := tracing.InitTracerProvider(info.ServiceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		return fmt.Errorf("failed to initialize tracer provider: %w", err)
	}

	// 2. 路由和后台任务
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	g, gctx := errgroup.WithContext(ctx)
	app := &AppCtx{Router: router, Config: cfg, ctx: gctx, group: g}
	if info.RegisterHandlers != nil {
		if err := info.RegisterHandlers(app); err != nil {
			stop()
			_ = g.Wait()
			app.runClosers()
			_ = tp.Shutdown(context.Background())
			return fmt.Errorf("failed to register %s: %w", info.ServiceName, err)
		}
	}

	// 3. HTTP Server
	server := &http.Server{
		Addr:              ":" + strconv.Itoa(info.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		logger.L().Info().Int("port", info.Port).Msgf("✅ %s listening.", info.ServiceName)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("could not listen on %s: %w", server.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	// 4. 服务注册（可选）
	deregister := registerNacos(cfg, info)

	err = g.Wait()
	logger.L().Info().Msgf("🛑 Shutting down service %s...", info.ServiceName)

	// 5. 按顺序清理：先从注册中心摘除，再关闭资源，最后刷新 trace
	deregister()
	app.runClosers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.L().Error().Err(err).Msg("Error shutting down tracer provider")
	}

	if err != nil {
		return err
	}
	logger.L().Info().Msgf("Service %s gracefully shut down.", info.ServiceName)
	return nil
}

func (a *AppCtx) runClosers() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.mu.Lock()
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](ctx); err != nil {
			logger.L().Error().Err(err).Msg("Error during shutdown")
		}
	}
}

// registerNacos 在配置了 Nacos 地址时注册实例，返回对应的注销函数
func registerNacos(cfg *Config, info AppInfo) func() {
	noop := func() {}
	if cfg.Infra.Nacos.ServerAddrs == "" {
		return noop
	}

	client, err := nacos.NewNacosClient(cfg.Infra.Nacos.ServerAddrs, cfg.Infra.Nacos.Namespace, cfg.Infra.Nacos.Group)
	if err != nil {
		logger.L().Warn().Err(err).Msg("Nacos unavailable, skipping registration")
		return noop
	}
	ip, err := outboundIP()
	if err != nil {
		logger.L().Warn().Err(err).Msg("Failed to get outbound IP, skipping registration")
		client.Close()
		return noop
	}
	if err := client.RegisterServiceInstance(info.ServiceName, ip, info.Port); err != nil {
		logger.L().Warn().Err(err).Msg("Nacos registration failed")
		client.Close()
		return noop
	}

	return func() {
		if err := client.DeregisterServiceInstance(info.ServiceName, ip, info.Port); err != nil {
			logger.L().Error().Err(err).Msg("Error deregistering from Nacos")
		} else {
			logger.L().Info().Msgf("Service %s deregistered from Nacos.", info.ServiceName)
		}
		client.Close()
	}
}

// outboundIP 通过一次 UDP "连接" 找出默认路由所用的本机地址，不会真正发包
func outboundIP() (string, error) {
	if ip := os.Getenv("POD_IP"); ip != "" {
		return ip, nil
	}
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}
