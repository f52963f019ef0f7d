// Command touchd runs the touchfield daemon: it reads angular-distance
// samples from a rangefinder (serial, UDP, or a built-in mock), converts them
// into projection-surface detections, stores them in SQLite, and serves them
// over HTTP.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aperture-works/touchfield/api"
	"github.com/aperture-works/touchfield/internal/config"
	"github.com/aperture-works/touchfield/internal/db"
	"github.com/aperture-works/touchfield/internal/monitoring"
	"github.com/aperture-works/touchfield/internal/network"
	"github.com/aperture-works/touchfield/internal/scan"
	"github.com/aperture-works/touchfield/internal/serialmux"
	"github.com/aperture-works/touchfield/internal/sweep"
	"github.com/aperture-works/touchfield/internal/version"
)

var (
	configPath   = flag.String("config", "", "Path to tuning config JSON (default: built-in defaults)")
	serialPort   = flag.String("serial-port", "", "Serial device path (overrides config)")
	udpListen    = flag.String("udp-listen", "", "Ingest samples over UDP at this address instead of serial")
	dbFile       = flag.String("db", "", "Path to the SQLite database file (overrides config)")
	listen       = flag.String("http", "", "HTTP listen address (overrides config)")
	forwardAddr  = flag.String("forward-addr", "", "Forward detections to this host (overrides config)")
	forwardPort  = flag.Int("forward-port", 0, "Forward detections to this UDP port (overrides config)")
	mockMode     = flag.Bool("mock", false, "Replay a synthetic sweep instead of reading hardware")
	mockInterval = flag.Duration("mock-interval", 250*time.Millisecond, "Sweep interval in mock mode")
	logInterval  = flag.Duration("log-interval", time.Minute, "Pipeline statistics logging interval")
)

// pipeline ties the sample stream to the detection sink: readings come in,
// converted centroids go to the database and the optional forwarder.
type pipeline struct {
	converter *scan.Converter
	store     *db.DB
	forwarder *network.DetectionForwarder

	mu         sync.Mutex
	readings   int64
	detections int64
}

func newPipeline(params scan.Params, store *db.DB, forwarder *network.DetectionForwarder) *pipeline {
	return &pipeline{
		converter: scan.NewConverter(params),
		store:     store,
		forwarder: forwarder,
	}
}

// handleReading runs one reading through convert and bunch, and records the
// centroid when one emerges. Called from a single goroutine; the converter's
// bunch state is not safe for concurrent use.
func (p *pipeline) handleReading(tr sweep.TaggedReading) {
	point := p.converter.Convert(tr.DistanceMM, tr.Index, tr.Total)
	centroid := p.converter.Bunch(point, tr.Position)

	p.mu.Lock()
	p.readings++
	if centroid != nil {
		p.detections++
	}
	p.mu.Unlock()

	if centroid == nil {
		return
	}

	np := p.converter.Normalize(*centroid)
	detection := db.Detection{
		SweepID:   tr.SweepID,
		X:         centroid.X,
		Y:         centroid.Y,
		NormX:     np.X,
		NormY:     np.Y,
		Timestamp: time.Now().UTC(),
	}

	if _, err := p.store.RecordDetection(detection); err != nil {
		monitoring.Logf("failed to record detection: %v", err)
	}

	if p.forwarder != nil {
		payload, err := json.Marshal(detection)
		if err != nil {
			monitoring.Logf("failed to encode detection: %v", err)
			return
		}
		p.forwarder.ForwardAsync(payload)
	}
}

func (p *pipeline) getAndReset() (readings, detections int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	readings, detections = p.readings, p.detections
	p.readings, p.detections = 0, 0
	return
}

// mockSweepLines builds one synthetic 101-sample sweep with a single object
// near the middle of the field of view.
func mockSweepLines() []string {
	const total = 101
	lines := make([]string, 0, total)
	for i := 0; i < total; i++ {
		distance := 9000
		if i >= 48 && i <= 52 {
			distance = 2600
		}
		lines = append(lines, fmt.Sprintf("D,%d,%d,%d", i, total, distance))
	}
	return lines
}

func loadConfig() *config.TuningConfig {
	if *configPath != "" {
		cfg, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config %s: %v", *configPath, err)
		}
		return cfg
	}
	return config.MustLoadDefaultConfig()
}

func main() {
	flag.Parse()
	log.Printf("touchd %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)

	cfg := loadConfig()
	params, err := cfg.ScanParams()
	if err != nil {
		log.Fatalf("invalid sensor parameters: %v", err)
	}

	dbPath := cfg.GetDBPath()
	if *dbFile != "" {
		dbPath = *dbFile
	}
	store, err := db.OpenDB(dbPath)
	if err != nil {
		log.Fatalf("failed to open database %s: %v", dbPath, err)
	}
	defer store.Close()
	if err := store.MigrateUp(); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var forwarder *network.DetectionForwarder
	fwdAddr := cfg.GetForwardAddr()
	if *forwardAddr != "" {
		fwdAddr = *forwardAddr
	}
	if fwdAddr != "" {
		fwdPort := cfg.GetForwardPort()
		if *forwardPort != 0 {
			fwdPort = *forwardPort
		}
		forwarder, err = network.NewDetectionForwarder(ctx, fwdAddr, fwdPort)
		if err != nil {
			log.Fatalf("failed to start detection forwarder: %v", err)
		}
	}

	pipe := newPipeline(params, store, forwarder)
	builder := sweep.NewBuilder(sweep.BuilderConfig{
		OnReading: pipe.handleReading,
	})

	// The builder and bunch state are single-stream; every ingest path hands
	// lines to this channel and one goroutine drains it.
	lines := make(chan string, 1024)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case line := <-lines:
				if err := builder.AddLine(line); err != nil {
					monitoring.Logf("rejected sample line: %v", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// Sample source: UDP listener, or a serial mux (real or mock).
	udpAddr := *udpListen
	if udpAddr == "" && *serialPort == "" && cfg.GetSerialDevice() == "" && !*mockMode {
		udpAddr = cfg.GetUDPListenAddr()
	}

	if udpAddr != "" {
		listener := network.NewUDPListener(network.UDPListenerConfig{
			Address: udpAddr,
			Handler: func(line string) {
				select {
				case lines <- line:
				default:
					// Drop rather than stall the receive loop.
				}
			},
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := listener.Start(ctx); err != nil && err != context.Canceled {
				log.Printf("udp listener terminated: %v", err)
				stop()
			}
		}()
		serveHTTP(ctx, &wg, cfg, nil, store, params)
	} else {
		var m serialmux.SerialMuxInterface
		if *mockMode {
			m = serialmux.NewMockSerialMux(mockSweepLines(), *mockInterval)
		} else {
			device := cfg.GetSerialDevice()
			if *serialPort != "" {
				device = *serialPort
			}
			m, err = serialmux.NewRealSerialMux(device, serialmux.PortOptions{
				BaudRate: cfg.GetSerialBaud(),
			})
			if err != nil {
				log.Fatalf("failed to open serial port %s: %v", device, err)
			}
		}
		defer m.Close()

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.Monitor(ctx); err != nil && err != context.Canceled {
				log.Printf("serial monitor terminated: %v", err)
			}
			stop()
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			id, c := m.Subscribe()
			defer m.Unsubscribe(id)
			for {
				select {
				case line := <-c:
					select {
					case lines <- line:
					case <-ctx.Done():
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()

		if !*mockMode {
			if err := m.Initialize(); err != nil {
				log.Fatalf("failed to initialize rangefinder: %v", err)
			}
		}

		serveHTTP(ctx, &wg, cfg, m, store, params)
	}

	// Periodic pipeline statistics.
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(*logInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				readings, detections := pipe.getAndReset()
				monitoring.Logf("pipeline: %d readings, %d detections, %d sweep resets",
					readings, detections, builder.Resets())
			case <-ctx.Done():
				return
			}
		}
	}()

	<-ctx.Done()
	wg.Wait()
	log.Print("touchd stopped")
}

func serveHTTP(ctx context.Context, wg *sync.WaitGroup, cfg *config.TuningConfig, m serialmux.SerialMuxInterface, store *db.DB, params scan.Params) {
	addr := cfg.GetHTTPAddr()
	if *listen != "" {
		addr = *listen
	}

	wg.Add(1)
	go func() {
		defer wg.Done()

		server := &http.Server{
			Addr:    addr,
			Handler: api.NewServer(m, store, params).ServeMux(),
		}

		go func() {
			log.Printf("http server listening on %s", addr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start http server: %v", err)
			}
		}()

		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("http server shutdown error: %v", err)
		}
	}()
}
