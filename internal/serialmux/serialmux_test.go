package serialmux

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.bug.st/serial"
)

func TestSendCommand_AppendsNewline(t *testing.T) {
	port := NewTestableSerialPort("")
	mux := NewSerialMux(port)

	if err := mux.SendCommand("START"); err != nil {
		t.Fatalf("SendCommand failed: %v", err)
	}
	if got := port.Written(); got != "START\n" {
		t.Errorf("written %q, want %q", got, "START\n")
	}

	if err := mux.SendCommand("STOP\n"); err != nil {
		t.Fatalf("SendCommand failed: %v", err)
	}
	if got := port.Written(); got != "START\nSTOP\n" {
		t.Errorf("written %q, want no doubled newline", got)
	}
}

func TestSendCommand_WriteError(t *testing.T) {
	port := NewTestableSerialPort("")
	port.WriteError = errors.New("device gone")
	mux := NewSerialMux(port)

	if err := mux.SendCommand("START"); err == nil {
		t.Error("expected write error")
	}
}

func TestInitialize_SendsStartSequence(t *testing.T) {
	port := NewTestableSerialPort("")
	mux := NewSerialMux(port)

	if err := mux.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	want := "STOP\nMODE,SWEEP\nSTART\n"
	if got := port.Written(); got != want {
		t.Errorf("written %q, want %q", got, want)
	}
}

func TestMonitor_FansOutLines(t *testing.T) {
	port := NewTestableSerialPort("D,0,3,100\nD,1,3,200\nD,2,3,300\n")
	mux := NewSerialMux(port)

	_, ch := mux.Subscribe()

	var got []string
	done := make(chan struct{})
	go func() {
		defer close(done)
		for line := range ch {
			got = append(got, line)
		}
	}()

	if err := mux.Monitor(context.Background()); err != nil {
		t.Fatalf("Monitor returned error: %v", err)
	}
	mux.Close()
	<-done

	if len(got) != 3 {
		t.Fatalf("received %d lines, want 3: %v", len(got), got)
	}
	if got[0] != "D,0,3,100" || got[2] != "D,2,3,300" {
		t.Errorf("unexpected lines: %v", got)
	}
}

func TestMonitor_ContextCancellation(t *testing.T) {
	// A mock port with no traffic keeps Monitor blocked until the context
	// ends.
	mux := NewMockSerialMux(nil, time.Hour)
	defer mux.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- mux.Monitor(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Monitor returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not return after cancellation")
	}
}

func TestUnsubscribe_ClosesChannel(t *testing.T) {
	mux := NewSerialMux(NewTestableSerialPort(""))

	id, ch := mux.Subscribe()
	mux.Unsubscribe(id)

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel after unsubscribe")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}
}

func TestClose_ClosesPortAndSubscribers(t *testing.T) {
	port := NewTestableSerialPort("")
	mux := NewSerialMux(port)
	_, ch := mux.Subscribe()

	if err := mux.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !port.Closed {
		t.Error("port not closed")
	}
	if _, ok := <-ch; ok {
		t.Error("subscriber channel not closed")
	}
}

func TestPortOptions_Defaults(t *testing.T) {
	opts, err := PortOptions{}.Normalize()
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if opts.BaudRate != 115200 || opts.DataBits != 8 || opts.StopBits != 1 || opts.Parity != "N" {
		t.Errorf("unexpected defaults: %+v", opts)
	}
}

func TestPortOptions_Rejections(t *testing.T) {
	cases := []PortOptions{
		{DataBits: 4},
		{DataBits: 9},
		{StopBits: 3},
		{Parity: "M"},
	}
	for _, opts := range cases {
		if _, err := opts.Normalize(); err == nil {
			t.Errorf("expected error for %+v", opts)
		}
	}
}

func TestPortOptions_SerialMode(t *testing.T) {
	mode, err := PortOptions{BaudRate: 19200, Parity: "even", StopBits: 2}.SerialMode()
	if err != nil {
		t.Fatalf("SerialMode failed: %v", err)
	}
	if mode.BaudRate != 19200 {
		t.Errorf("baud = %d, want 19200", mode.BaudRate)
	}
	if mode.Parity != serial.EvenParity {
		t.Errorf("parity = %v, want EvenParity", mode.Parity)
	}
	if mode.StopBits != serial.TwoStopBits {
		t.Errorf("stop bits = %v, want TwoStopBits", mode.StopBits)
	}
}

func TestPortOptions_SerialModeDefaultStopBits(t *testing.T) {
	// serial.OneStopBit is the zero value, not 1; a count-to-constant cast
	// would silently select 1.5 stop bits here.
	mode, err := PortOptions{}.SerialMode()
	if err != nil {
		t.Fatalf("SerialMode failed: %v", err)
	}
	if mode.StopBits != serial.OneStopBit {
		t.Errorf("stop bits = %v, want OneStopBit", mode.StopBits)
	}
	if mode.Parity != serial.NoParity {
		t.Errorf("parity = %v, want NoParity", mode.Parity)
	}
	if mode.BaudRate != 115200 || mode.DataBits != 8 {
		t.Errorf("mode = %+v, want 115200 baud 8 data bits", mode)
	}
}
