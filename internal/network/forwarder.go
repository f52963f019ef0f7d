package network

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/aperture-works/touchfield/internal/monitoring"
)

// DetectionForwarder sends detection payloads to a downstream consumer over
// UDP. Sends are asynchronous: ForwardAsync never blocks the pipeline, and
// payloads are dropped when the queue is full.
type DetectionForwarder struct {
	conn     *net.UDPConn
	sendChan chan []byte
	dropped  atomic.Int64
	sent     atomic.Int64
	done     chan struct{}
}

const forwardQueueDepth = 256

// NewDetectionForwarder dials the destination and starts the send loop. The
// forwarder runs until the context ends.
func NewDetectionForwarder(ctx context.Context, host string, port int) (*DetectionForwarder, error) {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve forward address: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial forward address: %w", err)
	}

	f := &DetectionForwarder{
		conn:     conn,
		sendChan: make(chan []byte, forwardQueueDepth),
		done:     make(chan struct{}),
	}

	go f.run(ctx)
	go f.logStats(ctx)

	monitoring.Logf("forwarding detections to udp %s:%d", host, port)
	return f, nil
}

// ForwardAsync queues a payload for sending. It never blocks; when the queue
// is full the payload is dropped and counted.
func (f *DetectionForwarder) ForwardAsync(payload []byte) {
	select {
	case f.sendChan <- payload:
	default:
		f.dropped.Add(1)
	}
}

// Dropped returns the number of payloads dropped because the queue was full.
func (f *DetectionForwarder) Dropped() int64 {
	return f.dropped.Load()
}

// Sent returns the number of payloads written to the socket.
func (f *DetectionForwarder) Sent() int64 {
	return f.sent.Load()
}

// Done is closed once the send loop has exited and the socket is closed.
func (f *DetectionForwarder) Done() <-chan struct{} {
	return f.done
}

func (f *DetectionForwarder) run(ctx context.Context) {
	defer close(f.done)
	defer f.conn.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-f.sendChan:
			if _, err := f.conn.Write(payload); err != nil {
				f.dropped.Add(1)
				continue
			}
			f.sent.Add(1)
		}
	}
}

func (f *DetectionForwarder) logStats(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	var lastDropped int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dropped := f.dropped.Load()
			if dropped > lastDropped {
				monitoring.Logf("detection forwarder dropped %d payloads in the last minute (%d total)",
					dropped-lastDropped, dropped)
			}
			lastDropped = dropped
		}
	}
}
