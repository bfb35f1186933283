package sensorproxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/banshee-data/tofsweep/internal/monitoring"
)

// DistanceSource produces one distance reading in millimetres per call.
type DistanceSource interface {
	Distance(ctx context.Context) (uint32, error)
}

// ServerConfig contains configuration options for the sensor node server.
type ServerConfig struct {
	Address     string
	Source      DistanceSource
	Stats       *Stats
	LogInterval time.Duration
}

// Server answers every non-empty datagram with the next distance reading.
type Server struct {
	address     string
	source      DistanceSource
	stats       *Stats
	logInterval time.Duration
}

// NewServer creates a new server with the provided configuration.
func NewServer(config ServerConfig) *Server {
	address := config.Address
	if address == "" {
		address = DefaultListenAddress
	}
	stats := config.Stats
	if stats == nil {
		stats = NewStats()
	}
	logInterval := config.LogInterval
	if logInterval == 0 {
		logInterval = time.Minute
	}
	return &Server{
		address:     address,
		source:      config.Source,
		stats:       stats,
		logInterval: logInterval,
	}
}

// ListenAndServe binds the configured address and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	conn, err := net.ListenPacket("udp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address %s: %w", s.address, err)
	}
	defer conn.Close()

	monitoring.Logf("Sensor proxy listening on %s", conn.LocalAddr())
	return s.Serve(ctx, conn)
}

// Serve handles requests on conn until ctx is done. A failed reading is
// logged and the request dropped; the client's retry covers it.
func (s *Server) Serve(ctx context.Context, conn net.PacketConn) error {
	go s.logStats(ctx)

	buffer := make([]byte, 512)
	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("Sensor proxy stopping due to context cancellation")
			return ctx.Err()
		default:
		}

		// short deadline so cancellation is noticed
		conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))

		n, addr, err := conn.ReadFrom(buffer)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("UDP read error: %w", err)
		}
		if n == 0 {
			continue
		}
		s.stats.addRequest()

		mm, err := s.source.Distance(ctx)
		if err != nil {
			s.stats.addFailure()
			monitoring.Logf("Distance reading for %v failed: %v", addr, err)
			continue
		}
		if _, err := conn.WriteTo(EncodeDistance(mm), addr); err != nil {
			s.stats.addFailure()
			monitoring.Logf("Reply to %v failed: %v", addr, err)
			continue
		}
		s.stats.addReply()
		monitoring.Debugf("Replied %d mm to %v", mm, addr)
	}
}

func (s *Server) logStats(ctx context.Context) {
	ticker := time.NewTicker(s.logInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.stats.LogStats()
		}
	}
}
