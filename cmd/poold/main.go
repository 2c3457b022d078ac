package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"poold/internal/common/fsutil"
	"poold/internal/config"
	"poold/internal/gputopo"
	"poold/internal/httpapi"
	"poold/internal/nvidia"
	"poold/internal/pool"
	"poold/internal/reclaim"
	"poold/internal/router"
	"poold/internal/supervise"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal().Err(err).Msg("poold")
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "poold",
		Short:         "GPU-backed model server pool manager and request router",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var (
		cfgPath string
		addr    string
	)
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cfgPath, addr)
		},
	}
	serve.Flags().StringVar(&cfgPath, "config", "", "config file path (yaml/json/toml)")
	serve.Flags().StringVar(&addr, "addr", "", "HTTP listen address, overrides config")
	root.AddCommand(serve)
	return root
}

// defaultConfigPaths are tried in order when --config is not given.
var defaultConfigPaths = []string{
	"~/.config/poold/config.yaml",
	"/etc/poold/config.yaml",
}

func runServe(cfgPath, addrFlag string) error {
	var cfg config.Config
	if cfgPath == "" {
		for _, candidate := range defaultConfigPaths {
			p, err := fsutil.ExpandHome(candidate)
			if err != nil {
				continue
			}
			if fsutil.PathExists(p) {
				cfgPath = p
				break
			}
		}
	}
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg, err := config.FromEnv(cfg)
	if err != nil {
		return err
	}
	cfg = cfg.WithDefaults()
	if addrFlag != "" {
		cfg.Addr = addrFlag
	}
	setLogLevel(cfg.LogLevel)

	smi := nvidia.New()
	if !smi.Available() {
		log.Warn().Msg("nvidia-smi not found, assuming a single accelerator")
	}
	topo := gputopo.New(smi)
	cacheDir, err := fsutil.ExpandHome(cfg.CacheDir)
	if err != nil {
		return err
	}
	sup := supervise.New(supervise.Config{
		Binary:        cfg.ServeBinary,
		ExtraArgs:     cfg.ServeExtraArgs,
		PortStart:     cfg.PortRangeStart,
		PortEnd:       cfg.PortRangeEnd,
		CacheDir:      cacheDir,
		HealthTimeout: time.Duration(cfg.HealthTimeoutSec) * time.Second,
		GraceTimeout:  time.Duration(cfg.GraceTimeoutSec) * time.Second,
	})
	mgr := pool.New(pool.Config{
		Launcher:        sup,
		Reclaimer:       reclaim.New(smi),
		Topology:        topo,
		FailureCooldown: time.Duration(cfg.FailureCooldownSec) * time.Second,
		UnhealthyTTL:    time.Duration(cfg.UnhealthyTTLSec) * time.Second,
		ProbeTimeout:    time.Duration(cfg.ProbeTimeoutSec) * time.Second,
	})
	// Instances must never outlive the daemon, whatever the exit path.
	defer mgr.ShutdownAll()

	apiKey := cfg.RemoteAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	rules := router.Rules{
		AutoDeploy:     cfg.AutoDeploy,
		LocalPatterns:  cfg.LocalPatterns,
		RemotePatterns: cfg.RemotePatterns,
	}
	rt := router.New(router.Config{
		Rules:          rules,
		Pool:           mgr,
		Remote:         router.NewOpenAIClient(cfg.RemoteBaseURL, apiKey),
		Attempts:       uint(cfg.RetryAttempts),
		RequestTimeout: time.Duration(cfg.RequestTimeoutSec) * time.Second,
	})

	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins, nil, nil)
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)

	mux := httpapi.NewMux(&service{router: rt, mgr: mgr})
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", cfg.Addr).
			Ints("gpus", topo.IDs()).
			Bool("auto_deploy", cfg.AutoDeploy).
			Msg("poold listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	// Cancel in-flight completions, drain HTTP, then kill the pools.
	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown")
	}
	mgr.ShutdownAll()
	return nil
}

func setLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
