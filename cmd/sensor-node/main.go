// Command sensor-node owns the VL53L1X on the I2C bus and answers distance
// requests from the stepper node over UDP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/tofsweep/internal/config"
	"github.com/banshee-data/tofsweep/internal/i2c"
	"github.com/banshee-data/tofsweep/internal/monitoring"
	"github.com/banshee-data/tofsweep/internal/ranging"
	"github.com/banshee-data/tofsweep/internal/sensorproxy"
	"github.com/banshee-data/tofsweep/internal/timeutil"
	"github.com/banshee-data/tofsweep/internal/version"
	"github.com/banshee-data/tofsweep/internal/vl53l1x"
)

var (
	configPath  = flag.String("config", "", "Path to a JSON sweep config; compiled-in defaults when empty")
	verbose     = flag.Bool("verbose", false, "Log every request and reply")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

type deps struct {
	openI2C i2c.Opener
	listen  func(addr string) (net.PacketConn, error)
	clock   timeutil.Clock
}

func defaultDeps() deps {
	return deps{
		openI2C: i2c.OpenDevice,
		listen: func(addr string) (net.PacketConn, error) {
			return net.ListenPacket("udp", addr)
		},
		clock: timeutil.RealClock{},
	}
}

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String())
		return
	}
	monitoring.SetVerbose(*verbose)

	cfg := config.EmptySweepConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadSweepConfig(*configPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	log.Printf("sensor node %s", version.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, defaultDeps()); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("sensor node stopped: %v", err)
		stop()
		os.Exit(1)
	}
	log.Printf("Graceful shutdown complete")
}

func run(ctx context.Context, cfg *config.SweepConfig, d deps) error {
	mode, err := vl53l1x.ParseDistanceMode(cfg.GetDistanceMode())
	if err != nil {
		return err
	}

	platform := ranging.NewPlatform(i2c.NewSession(cfg.GetI2CDevice(), d.openI2C), d.clock)
	if err := platform.Initialize(cfg.GetI2CAddress()); err != nil {
		return err
	}
	defer func() {
		if err := platform.Close(); err != nil {
			log.Printf("failed to close I2C session: %v", err)
		}
	}()

	sensor := vl53l1x.New(platform, vl53l1x.Config{MeasureTimeout: cfg.GetMeasureTimeout()})
	if err := sensor.Init(); err != nil {
		return fmt.Errorf("initialising sensor: %w", err)
	}
	if err := sensor.SetDistanceMode(mode); err != nil {
		return err
	}
	if err := sensor.StartRanging(); err != nil {
		return err
	}
	defer func() {
		if err := sensor.StopRanging(); err != nil {
			log.Printf("failed to stop ranging: %v", err)
		}
	}()
	log.Printf("VL53L1X ranging in %v mode at 0x%02X on %s", mode, cfg.GetI2CAddress(), cfg.GetI2CDevice())

	conn, err := d.listen(cfg.GetListenAddress())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GetListenAddress(), err)
	}
	defer conn.Close()
	log.Printf("Sensor proxy listening on %s", conn.LocalAddr())

	return sensorproxy.NewServer(sensorproxy.ServerConfig{Source: sensor}).Serve(ctx, conn)
}
