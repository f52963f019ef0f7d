package network

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aperture-works/touchfield/internal/monitoring"
)

// LineHandler consumes one sample line from the UDP stream.
type LineHandler func(line string)

// ListenerStats tracks UDP ingest statistics.
type ListenerStats interface {
	AddPacket(bytes int)
	AddLines(count int)
	AddDropped()
}

// noopStats is a safe default when no stats collector is provided.
type noopStats struct{}

func (noopStats) AddPacket(bytes int) {}
func (noopStats) AddLines(count int)  {}
func (noopStats) AddDropped()         {}

// UDPListener receives newline-delimited sample lines over UDP and hands
// them to a LineHandler. Gateways that bridge the sensor onto the network
// batch several lines per datagram, so each packet is split before dispatch.
type UDPListener struct {
	address string
	rcvBuf  int
	handler LineHandler
	stats   ListenerStats

	boundAddr atomic.Value // net.Addr
}

// UDPListenerConfig configures a UDPListener. Handler is required.
type UDPListenerConfig struct {
	Address string
	RcvBuf  int
	Handler LineHandler
	Stats   ListenerStats
}

// NewUDPListener creates a listener from the configuration.
func NewUDPListener(config UDPListenerConfig) *UDPListener {
	stats := config.Stats
	if stats == nil {
		stats = noopStats{}
	}
	rcvBuf := config.RcvBuf
	if rcvBuf == 0 {
		rcvBuf = 1 << 20
	}
	return &UDPListener{
		address: config.Address,
		rcvBuf:  rcvBuf,
		handler: config.Handler,
		stats:   stats,
	}
}

// LocalAddr reports the bound address once Start is listening, nil before.
func (l *UDPListener) LocalAddr() net.Addr {
	addr, _ := l.boundAddr.Load().(net.Addr)
	return addr
}

// Start listens for datagrams until the context ends. It blocks; run it in
// its own goroutine.
func (l *UDPListener) Start(ctx context.Context) error {
	if l.handler == nil {
		return fmt.Errorf("udp listener requires a line handler")
	}

	addr, err := net.ResolveUDPAddr("udp", l.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address: %w", err)
	}
	defer conn.Close()

	if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
		monitoring.Logf("failed to set UDP receive buffer to %d: %v", l.rcvBuf, err)
	}

	l.boundAddr.Store(conn.LocalAddr())
	monitoring.Logf("listening for samples on udp %s", conn.LocalAddr())

	// Close the socket when the context ends so the blocked read returns.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, 64*1024)
	deadlineErrLogged := false
	for {
		if err := conn.SetReadDeadline(time.Now().Add(time.Second)); err != nil && !deadlineErrLogged {
			monitoring.Logf("failed to set UDP read deadline: %v", err)
			deadlineErrLogged = true
		}
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			l.stats.AddDropped()
			monitoring.Logf("udp read error: %v", err)
			continue
		}

		l.stats.AddPacket(n)

		lines := strings.Split(string(buf[:n]), "\n")
		count := 0
		for _, line := range lines {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			l.handler(line)
			count++
		}
		l.stats.AddLines(count)
	}
}
