package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"comet/internal/archive"
	"comet/internal/metrics/prom"
	"comet/internal/pages"
	"comet/internal/store"
)

var (
	cfgFile     string
	debug       bool
	metricsAddr string
	stateDir    string
)

var rootCmd = &cobra.Command{
	Use:   "comet [file]",
	Short: "Comic and PDF reader",
	Long: `comet shows the pages of a comic archive (zip/cbz, rar/cbr, 7z/cb7),
a PDF, or a directory of images.

Pages are decoded lazily, kept in a small cache and prefetched ahead of
the reading position. Two-page spreads, right-to-left (manga) order and
splitting of wide scans can be toggled while reading. The last page read
and bookmarks are remembered per file.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(args[0])
	},
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default: ~/.comet.json)")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics at addr (e.g. :9090); empty = disabled")
	rootCmd.Flags().StringVar(&stateDir, "state-dir", "", "directory for reading progress and bookmarks (default: user config dir)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(path string) error {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := InitGraphics(); err != nil {
		return fmt.Errorf("load font: %w", err)
	}

	configs := NewConfigManager(cfgFile)
	status := configs.Get()
	cfg := status.Config
	for _, w := range status.Warnings {
		logger.Warn("config", "path", configs.Path(), "warning", w)
	}

	var metrics pages.Metrics = pages.NoopMetrics{}
	if metricsAddr != "" {
		metrics = prom.New(nil, "comet", nil)
		http.Handle("/metrics", promhttp.Handler())
		go func() {
			logger.Info("serving metrics", "addr", metricsAddr)
			if err := http.ListenAndServe(metricsAddr, nil); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	st := openStore(logger)

	doc, openErr := archive.Open(path, cfg.Sort())
	if openErr != nil {
		logger.Error("cannot open document", "path", path, "error", openErr)
	}

	reg := pages.NewRegistry()
	cache := pages.NewCache(cfg.CacheSize, logger, metrics)
	decoder := pages.NewDecoder(cache, reg, imageFactory{}, logger, metrics)
	decoder.SetSmartSplit(cfg.SmartSplit)
	prefetcher := pages.NewPrefetcher(reg, decoder, cfg.PrefetchDepth, logger, metrics)
	defer prefetcher.Stop()

	g := NewGame(configs, path, doc, openErr, prefetcher, logger)
	opts := pages.Options{
		Logger:     logger,
		Metrics:    metrics,
		Prefetcher: prefetcher,
		Mode:       cfg.Mode(),
	}
	if st != nil {
		opts.Progress = st
		opts.Bookmarks = st
	}
	display := pages.NewDisplay(reg, cache, decoder, g, opts)
	defer display.Stop()
	g.Attach(display)

	configs.OnChange(g.ConfigChanged)
	configs.WatchConfig()

	ebiten.SetWindowTitle("comet")
	ebiten.SetWindowSize(cfg.WindowWidth, cfg.WindowHeight)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if cfg.Fullscreen {
		g.savedWinW, g.savedWinH = cfg.WindowWidth, cfg.WindowHeight
		ebiten.SetFullscreen(true)
	}

	if err := ebiten.RunGame(g); err != nil {
		return err
	}
	g.saveConfig()
	return nil
}

// openStore opens the progress and bookmark store. Reading still works
// without one.
func openStore(logger *slog.Logger) *store.Store {
	dir := stateDir
	if dir == "" {
		d, err := store.DefaultDir()
		if err != nil {
			logger.Warn("no state directory, progress will not be saved", "error", err)
			return nil
		}
		dir = d
	}
	st, err := store.Open(dir, logger)
	if err != nil {
		logger.Warn("opening state store failed, progress will not be saved", "dir", dir, "error", err)
		return nil
	}
	return st
}
