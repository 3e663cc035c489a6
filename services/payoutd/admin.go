package payoutd

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// AdminServer exposes HTTP endpoints for operator controls.
type AdminServer struct {
	processor *Processor
	mux       *http.ServeMux
}

// NewAdminServer constructs a server wrapping the provided processor.
func NewAdminServer(processor *Processor) *AdminServer {
	mux := http.NewServeMux()
	server := &AdminServer{processor: processor, mux: mux}
	mux.HandleFunc("/pause", server.handlePause)
	mux.HandleFunc("/resume", server.handleResume)
	mux.HandleFunc("/reserve", server.handleReserve)
	mux.HandleFunc("/status", server.handleStatus)
	return server
}

// ServeHTTP implements http.Handler.
func (s *AdminServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *AdminServer) handlePause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.processor.Pause()
	w.WriteHeader(http.StatusNoContent)
}

func (s *AdminServer) handleResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.processor.Resume()
	w.WriteHeader(http.StatusNoContent)
}

type reserveRequest struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type reserveResponse struct {
	Asset   string `json:"asset"`
	Balance string `json:"balance"`
}

func (s *AdminServer) handleReserve(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		asset := strings.TrimSpace(r.URL.Query().Get("asset"))
		if asset == "" {
			http.Error(w, "asset required", http.StatusBadRequest)
			return
		}
		balance, err := s.processor.Reserve(asset)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, reserveResponse{Asset: normalizeAsset(asset), Balance: strconv.FormatUint(balance, 10)})
	case http.MethodPost:
		var req reserveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		amount, err := parseAmount(req.Amount)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		balance, err := s.processor.TopUpReserve(req.Asset, amount)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, reserveResponse{Asset: normalizeAsset(req.Asset), Balance: strconv.FormatUint(balance, 10)})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *AdminServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.processor.Status())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
