// Command stepper-node rotates a time-of-flight sensor on a stepper motor
// and records a distance-vs-angle sweep, fetching each reading from the
// sensor node over UDP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/tofsweep/internal/config"
	"github.com/banshee-data/tofsweep/internal/gpio"
	"github.com/banshee-data/tofsweep/internal/monitoring"
	"github.com/banshee-data/tofsweep/internal/sensorproxy"
	"github.com/banshee-data/tofsweep/internal/stepper"
	"github.com/banshee-data/tofsweep/internal/sweep"
	"github.com/banshee-data/tofsweep/internal/timeutil"
	"github.com/banshee-data/tofsweep/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to a JSON sweep config; compiled-in defaults when empty")
	debugListen = flag.String("debug-listen", "", "Serve /debug/ pages on this address (overrides debug_listen)")
	verbose     = flag.Bool("verbose", false, "Log every pin write and sensor reply")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// ranger is the distance source and the socket it owns.
type ranger interface {
	sweep.Ranger
	io.Closer
}

// deps opens the node's devices; tests replace them with fakes.
type deps struct {
	openRanger func(cfg *config.SweepConfig) (ranger, error)
	openPins   func(cfg *config.SweepConfig) (gpio.PinWriter, error)
	clock      timeutil.Clock
}

func defaultDeps() deps {
	return deps{
		openRanger: func(cfg *config.SweepConfig) (ranger, error) {
			c, err := sensorproxy.Dial(sensorproxy.ClientConfig{
				Address:        cfg.GetPeerAddress(),
				ReceiveTimeout: cfg.GetReceiveTimeout(),
				MaxRetries:     maxRetries(cfg.GetMaxRetries()),
			})
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		openPins: openPins,
		clock:    timeutil.RealClock{},
	}
}

// maxRetries maps the config's explicit zero onto the client's "no retries".
func maxRetries(n int) int {
	if n == 0 {
		return -1
	}
	return n
}

func openPins(cfg *config.SweepConfig) (gpio.PinWriter, error) {
	switch cfg.GetGPIOBackend() {
	case config.BackendPeriph:
		pins := cfg.GetCoilPins()
		p, err := gpio.OpenPeriphPins(pins[:])
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		dev, err := gpio.OpenStreamDevice(cfg.GetGPIODevice())
		if err != nil {
			return nil, err
		}
		return dev, nil
	}
}

func loadConfig(path string) (*config.SweepConfig, error) {
	if path == "" {
		return config.EmptySweepConfig(), nil
	}
	return config.LoadSweepConfig(path)
}

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String())
		return
	}
	monitoring.SetVerbose(*verbose)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *debugListen != "" {
		cfg.DebugListen = debugListen
	}

	log.Printf("stepper node %s", version.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, defaultDeps()); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("stepper node stopped: %v", err)
		stop()
		os.Exit(1)
	}
	log.Printf("Graceful shutdown complete")
}

// run owns every device handle; each one opened is closed before it
// returns, whichever way the sweep ends.
func run(ctx context.Context, cfg *config.SweepConfig, d deps) error {
	r, err := d.openRanger(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := r.Close(); err != nil {
			log.Printf("failed to close sensor socket: %v", err)
		}
	}()

	pins, err := d.openPins(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := pins.Close(); err != nil {
			log.Printf("failed to close GPIO backend: %v", err)
		}
	}()

	driver := stepper.NewDriver(pins, stepper.Config{
		Pins:      cfg.GetCoilPins(),
		StepDelay: cfg.GetStepDelay(),
		Clock:     d.clock,
	})
	defer func() {
		if err := driver.Release(); err != nil {
			log.Printf("failed to release coils: %v", err)
		}
	}()

	ctrl := sweep.NewController(r, driver, sweep.ControllerConfig{
		SampleCount:        cfg.GetSampleCount(),
		HalfStepsPerSample: cfg.GetHalfStepsPerSample(),
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if addr := cfg.GetDebugListen(); addr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveDebug(runCtx, addr, ctrl)
		}()
	}

	err = ctrl.Run(runCtx)
	cancel()
	wg.Wait()
	return err
}

func serveDebug(ctx context.Context, addr string, ctrl *sweep.Controller) {
	mux := http.NewServeMux()
	ctrl.AttachAdminRoutes(mux)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("debug server failed: %v", err)
		}
	}()
	log.Printf("debug pages on http://%s/debug/", addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("debug server shutdown error: %v", err)
		server.Close()
	}
}
