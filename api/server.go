package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/aperture-works/touchfield/internal/db"
	"github.com/aperture-works/touchfield/internal/httputil"
	"github.com/aperture-works/touchfield/internal/scan"
	"github.com/aperture-works/touchfield/internal/serialmux"
	"github.com/aperture-works/touchfield/internal/version"
)

// Server exposes detections and sensor parameters over HTTP.
type Server struct {
	m      serialmux.SerialMuxInterface
	db     *db.DB
	params scan.Params
}

// NewServer creates a Server. The mux may be nil when the daemon ingests over
// UDP instead of serial; /command then reports the device as unavailable.
func NewServer(m serialmux.SerialMuxInterface, db *db.DB, params scan.Params) *Server {
	return &Server{
		m:      m,
		db:     db,
		params: params,
	}
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/detections", s.listDetections)
	mux.HandleFunc("/detections/stats", s.detectionStats)
	mux.HandleFunc("/params", s.showParams)
	mux.HandleFunc("/command", s.sendCommandHandler)
	mux.HandleFunc("/healthz", s.healthz)
	mux.HandleFunc("/", s.homeHandler)
	return mux
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "Welcome to the Touchfield Server! (%s)", version.Version)
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
}

func (s *Server) sendCommandHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.m == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "no serial device attached")
		return
	}

	command := r.FormValue("command")

	if err := s.m.SendCommand(command); err != nil {
		httputil.InternalServerError(w, "failed to send command")
		return
	}
	io.WriteString(w, "Command sent successfully")
}

// paramsView is the JSON shape of the sensor parameters, with the placement
// rendered as its tuning-file tag.
type paramsView struct {
	Placement           string  `json:"sensor_placement"`
	OffsetX             float64 `json:"sensor_offset_x_m"`
	OffsetY             float64 `json:"sensor_offset_y_m"`
	AreaWidth           float64 `json:"projection_width_m"`
	AreaHeight          float64 `json:"projection_height_m"`
	Normalize           bool    `json:"normalize"`
	Bunch               bool    `json:"bunch"`
	BunchEps            float64 `json:"bunch_eps_m"`
	BunchPrecisionCount int     `json:"bunch_precision_count"`
}

func (s *Server) showParams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, paramsView{
		Placement:           s.params.Placement.String(),
		OffsetX:             s.params.OffsetX,
		OffsetY:             s.params.OffsetY,
		AreaWidth:           s.params.AreaWidth,
		AreaHeight:          s.params.AreaHeight,
		Normalize:           s.params.Normalize,
		Bunch:               s.params.Bunch,
		BunchEps:            s.params.BunchEps,
		BunchPrecisionCount: s.params.BunchPrecisionCount,
	})
}

// listDetections returns stored detections as JSON, newest first. Optional
// query parameters: since (RFC 3339) and limit.
func (s *Server) listDetections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	var since time.Time
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httputil.BadRequest(w, fmt.Sprintf("invalid since parameter: %v", err))
			return
		}
		since = t
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			httputil.BadRequest(w, "invalid limit parameter")
			return
		}
		limit = n
	}

	detections, err := s.db.Detections(since, limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to retrieve detections: %v", err))
		return
	}
	if detections == nil {
		detections = []db.Detection{}
	}
	httputil.WriteJSONOK(w, detections)
}

func (s *Server) detectionStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	stats, err := s.db.Stats()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to compute stats: %v", err))
		return
	}
	httputil.WriteJSONOK(w, stats)
}
