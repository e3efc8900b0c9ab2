package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/profile"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/emberforge/engine/internal/config"
	"github.com/emberforge/engine/internal/data"
	"github.com/emberforge/engine/internal/engine"
	"github.com/emberforge/engine/internal/gfx/headless"
	"github.com/emberforge/engine/internal/persist"
)

func init() {
	// The graphics context belongs to the main thread.
	runtime.LockOSThread()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(42-len(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

// ── Host loop ─────────────────────────────────────────────────────

func run() error {
	profileMode := flag.String("profile", "", "write a cpu or mem profile to the working directory")
	flag.Parse()
	switch *profileMode {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "":
	default:
		return fmt.Errorf("unknown profile mode %q", *profileMode)
	}

	// 1. Load config
	cfgPath := "config/engine.toml"
	if p := os.Getenv("ENGINE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// 3. Optional snapshot database
	opts := engine.Options{Device: headless.New()}
	if cfg.Database.Enabled {
		printSection("database")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		version, err := db.RunMigrations(ctx)
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK(fmt.Sprintf("migrations at version %d", version))
		opts.Snapshots = persist.NewSnapshotRepo(db)
	}

	// 4. Engine and scene. Systems must exist before the scene is spawned.
	printSection("scene")
	eng, err := engine.New(cfg, opts, log)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	defer eng.Close()

	scene, err := data.LoadScene(cfg.Scene.Path)
	if err != nil {
		return err
	}
	if err := eng.LoadScene(scene); err != nil {
		return err
	}
	printStat("entities", len(scene.Entities))
	printStat("stages", len(eng.Stages()))
	fmt.Println()

	// 5. Frame loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	frameTime := time.Second / time.Duration(max(cfg.Engine.FrameRate, 1))
	ticker := time.NewTicker(frameTime)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			eng.Frame(now.Sub(last))
			last = now
			if cfg.Engine.Frames > 0 && eng.Frames() >= uint64(cfg.Engine.Frames) {
				log.Info("frame budget reached", zap.Uint64("frames", eng.Frames()))
				saveSnapshot(eng, log)
				return nil
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			saveSnapshot(eng, log)
			return nil
		}
	}
}

func saveSnapshot(eng *engine.Engine, log *zap.Logger) {
	p := eng.Persistence()
	if p == nil {
		return
	}
	if _, err := p.SaveNow(); err != nil {
		log.Error("final snapshot failed", zap.Error(err))
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
