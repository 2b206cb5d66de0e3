package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/houzzkit/mcpbridge/internal/config"
	"github.com/houzzkit/mcpbridge/internal/engine"
	"github.com/houzzkit/mcpbridge/internal/observability"
	"github.com/houzzkit/mcpbridge/internal/registry"
	"github.com/houzzkit/mcpbridge/internal/transport"
)

var startedAt = time.Now()

// bridgeInstance adapts a supervisor to the registry's instance contract.
type bridgeInstance struct {
	sup       *transport.Supervisor
	unloading atomic.Bool
}

func (b *bridgeInstance) ID() string              { return b.sup.ID() }
func (b *bridgeInstance) Endpoint() string        { return b.sup.Endpoint() }
func (b *bridgeInstance) SetEndpoint(addr string) { b.sup.SetEndpoint(addr) }

func (b *bridgeInstance) Lifecycle() registry.Lifecycle {
	if b.unloading.Load() {
		return registry.LifecycleUnloading
	}
	return registry.LifecycleLoaded
}

func main() {
	configPath := flag.String("config", "bridgectl.toml", "path to bridgectl config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := observability.InitLogger("bridgectl", "info")
		bootLog.Fatal().Err(err).Msg("configuration invalid")
	}
	log := observability.InitLogger(cfg.App.Name, cfg.App.LogLevel)
	observability.RegisterMetrics()

	eng := engine.NewDiscard(log)
	reg := registry.New()
	bridges := make([]*bridgeInstance, 0, len(cfg.Bridges))
	for _, bc := range cfg.Bridges {
		sup := transport.NewSupervisor(transport.SupervisorConfig{
			Name:     bc.ID,
			Endpoint: bc.Endpoint,
			Session:  cfg.Transport.SessionConfig(),
			Backoff:  cfg.Transport.Backoff.BackoffPolicy(),
		}, eng, log)
		inst := &bridgeInstance{sup: sup}
		if err := reg.Register(inst); err != nil {
			log.Fatal().Err(err).Str("bridge", bc.ID).Msg("register bridge")
		}
		bridges = append(bridges, inst)
	}

	for _, b := range bridges {
		b.sup.Start()
	}

	admin := adminServer(cfg, bridges)
	go func() {
		if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("admin server exited")
		}
	}()
	log.Info().Str("addr", cfg.Admin.Addr).Int("bridges", len(bridges)).Msg("bridgectl running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range sigCh {
		if sig == syscall.SIGHUP {
			reloaded, err := config.Load(*configPath)
			if err != nil {
				log.Warn().Err(err).Msg("reload skipped, configuration invalid")
				continue
			}
			updated := reg.Reconcile(reloaded.DesiredEndpoints())
			log.Info().Int("updated", updated).Msg("configuration reconciled")
			continue
		}
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		break
	}

	for _, b := range bridges {
		b.unloading.Store(true)
	}
	for _, b := range bridges {
		b.sup.Stop()
		reg.Deregister(b.ID())
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = admin.Shutdown(shutdownCtx)
	log.Info().Msg("bridgectl stopped")
}

func adminServer(cfg config.Config, bridges []*bridgeInstance) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	if len(cfg.Admin.CorsOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: cfg.Admin.CorsOrigins,
			AllowMethods: []string{"GET"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}
	r.GET("/health", func(c *gin.Context) {
		states := make([]gin.H, 0, len(bridges))
		for _, b := range bridges {
			states = append(states, gin.H{
				"id":       b.ID(),
				"endpoint": b.Endpoint(),
				"state":    b.sup.State().String(),
			})
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(startedAt).String(),
			"service": cfg.App.Name,
			"bridges": states,
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return &http.Server{Addr: cfg.Admin.Addr, Handler: r}
}
