package serialmux

import (
	"bytes"
	"io"
	"sync"
	"time"
)

// TestableSerialPort implements SerialPorter with scripted reads and captured
// writes, for unit tests and the daemon's --mock mode.
type TestableSerialPort struct {
	mu sync.Mutex

	// ReadBuffer holds data returned by Read calls.
	ReadBuffer *bytes.Buffer
	// WriteBuffer captures everything written to the port.
	WriteBuffer *bytes.Buffer

	// ReadError, if set, is returned by the next Read.
	ReadError error
	// WriteError, if set, is returned by the next Write.
	WriteError error
	// CloseError, if set, is returned by Close.
	CloseError error

	// Closed records whether Close was called.
	Closed bool
}

// NewTestableSerialPort creates a port preloaded with the given read data.
func NewTestableSerialPort(readData string) *TestableSerialPort {
	return &TestableSerialPort{
		ReadBuffer:  bytes.NewBufferString(readData),
		WriteBuffer: &bytes.Buffer{},
	}
}

func (p *TestableSerialPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ReadError != nil {
		err := p.ReadError
		p.ReadError = nil
		return 0, err
	}
	if p.Closed {
		return 0, io.EOF
	}
	return p.ReadBuffer.Read(b)
}

func (p *TestableSerialPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.WriteError != nil {
		err := p.WriteError
		p.WriteError = nil
		return 0, err
	}
	return p.WriteBuffer.Write(b)
}

func (p *TestableSerialPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closed = true
	return p.CloseError
}

// Written returns everything written to the port so far.
func (p *TestableSerialPort) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.WriteBuffer.String()
}

// MockSerialPort emits a fixed sweep of sample lines over and over, pacing
// each sweep at the given interval. It backs the daemon's --mock mode so the
// full pipeline runs without hardware.
type MockSerialPort struct {
	reader *io.PipeReader
	writer *io.PipeWriter
	sink   bytes.Buffer
	mu     sync.Mutex
}

// NewMockSerialMux creates a SerialMux backed by a mock port that replays the
// given lines every interval.
func NewMockSerialMux(lines []string, interval time.Duration) *SerialMux[*MockSerialPort] {
	r, w := io.Pipe()
	port := &MockSerialPort{reader: r, writer: w}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			for _, line := range lines {
				if _, err := io.WriteString(w, line+"\n"); err != nil {
					return
				}
			}
		}
	}()

	return NewSerialMux(port)
}

func (m *MockSerialPort) Read(b []byte) (int, error) {
	return m.reader.Read(b)
}

// Write swallows commands; the mock device has nothing to configure.
func (m *MockSerialPort) Write(b []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sink.Write(b)
}

func (m *MockSerialPort) Close() error {
	m.writer.Close()
	return m.reader.Close()
}
