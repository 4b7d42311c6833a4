package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/opratectl/internal/config"
	"codeberg.org/mutker/opratectl/internal/display"
	"codeberg.org/mutker/opratectl/internal/errors"
	"codeberg.org/mutker/opratectl/internal/events"
	"codeberg.org/mutker/opratectl/internal/histogram"
	"codeberg.org/mutker/opratectl/internal/logger"
	"codeberg.org/mutker/opratectl/internal/metrics"
	"codeberg.org/mutker/opratectl/internal/oprate"
	"codeberg.org/mutker/opratectl/internal/pid"
	"codeberg.org/mutker/opratectl/internal/property"
	"codeberg.org/mutker/opratectl/internal/server"
)

const shutdownTimeout = 5 * time.Second

var (
	cfg       *config.Config
	store     property.Store
	panel     *display.Panel
	sensor    *histogram.SimSensor
	collector metrics.Collector
	manager   *oprate.Manager
	httpSrv   *server.Server
)

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Debug, cfg.Verbose, logger.IsService())
	if !cfg.Debug && !cfg.Verbose {
		if level, ok := logger.ParseLevel(cfg.LogLevel); ok {
			logger.SetLogLevel(level)
		}
	}
	logger.Debug().Str("file", cfg.ConfigFile).Msg("Config loaded")
}

func main() {
	if err := pid.Write(cfg.PIDDir); err != nil {
		logger.Fatal().Err(err).Msg("failed to write PID file")
	}

	if err := setup(); err != nil {
		cleanup()
		logger.Fatal().Err(err).Msg("failed to initialize")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	var lumaSource events.LumaSource
	if sensor != nil {
		lumaSource = sensor
	}

	dispatcher := events.NewDispatcher(manager, panel, lumaSource, logStatus, logger.WithComponent("events"))
	go func() {
		if err := dispatcher.Run(ctx, os.Stdin); err != nil {
			logger.Error().Err(err).Msg("event stream failed")
		}
		logger.Debug().Msg("Event stream closed")
	}()

	if err := loop(ctx); err != nil {
		logger.ErrorWithCode(errors.New().Wrap(errors.ErrMainLoop, err)).Msg("error in main loop")
	}
	cleanup()
}

func setup() error {
	errFactory := errors.New()
	var err error

	store, err = property.New(cfg.StoreSettings(), logger.WithComponent("property"))
	if err != nil {
		return errFactory.Wrap(errors.ErrInitStore, err)
	}

	panel, err = display.NewPanel(cfg.PanelSettings(), logger.WithComponent("display"))
	if err != nil {
		return errFactory.Wrap(errors.ErrInitPanel, err)
	}

	history, err := metrics.NewService(cfg.MetricsSettings(), logger.WithComponent("metrics"))
	if err != nil {
		return errFactory.Wrap(errors.ErrInitMetrics, err)
	}

	var exporter *metrics.Exporter
	if cfg.Metrics.Listen != "" {
		exporter = metrics.NewExporter()
		collector = metrics.Multi(history, exporter)
	} else {
		collector = history
	}

	var luma histogram.Sensor
	if cfg.OpRate.HistDeltaTh > 0 {
		sensor = histogram.NewSimSensor(cfg.Histogram.Buckets)
		luma = sensor
	}

	manager, err = oprate.New(panel, store, luma, cfg.RateSettings(), collector, logger.WithComponent("oprate"))
	if err != nil {
		return errFactory.Wrap(errors.ErrInitManager, err)
	}
	panel.SetRateSource(manager)
	panel.HandleTargetOperationRate()

	if exporter != nil {
		var recent metrics.History
		if h, ok := history.(metrics.History); ok && cfg.Metrics.Enabled {
			recent = h
		}
		httpSrv = server.New(cfg.Metrics.Listen, manager, recent, exporter.Handler(), logger.WithComponent("server"))
		if err := httpSrv.Start(); err != nil {
			return err
		}
	}

	return nil
}

func loop(ctx context.Context) error {
	if cfg.Interval <= 0 {
		return errors.New().WithData(errors.ErrInvalidInterval, cfg.Interval)
	}

	interval := time.Duration(cfg.Interval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			manager.RecordStatus()
			if cfg.Debug {
				logStatus()
			}
		}
	}
}

func logStatus() {
	st := manager.Status()

	logger.Info().
		Int("target_hz", st.Target).
		Int("applied_hz", panel.AppliedRate()).
		Int("desired_hz", st.Desired).
		Int("refresh_hz", st.Refresh).
		Int("peak_hz", st.Peak).
		Int("brightness_dbv", st.Brightness).
		Str("power_mode", st.PowerMode).
		Bool("low_battery", st.LowBattery).
		Bool("sampler_armed", st.SamplerArmed).
		Msg("")
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func cleanup() {
	if httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := httpSrv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("failed to stop HTTP server")
		}
		cancel()
	}
	if manager != nil {
		if err := manager.Close(); err != nil {
			logger.ErrorWithCode(errors.New().Wrap(errors.ErrCloseManager, err)).Msg("failed to close operation rate manager")
		}
	}
	if collector != nil {
		if err := collector.Close(); err != nil {
			logger.ErrorWithCode(errors.New().Wrap(errors.ErrCloseMetrics, err)).Msg("failed to close metrics")
		}
	}
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close property store")
		}
	}
	if err := pid.Remove(cfg.PIDDir); err != nil {
		logger.Error().Err(err).Msg("failed to remove PID file")
	}
	logger.Info().Msg("Exiting...")
}
