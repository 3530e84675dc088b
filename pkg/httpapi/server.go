package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"warehouse/pkg/inventory"
	"warehouse/pkg/script"
)

// maxScriptBytes caps the body of POST /api/script. Larger bodies are refused whole.
const maxScriptBytes = 1 << 20

// Server wires HTTP endpoints to the warehouse service.
type Server struct {
	warehouse     *inventory.Service
	gatherer      prometheus.Gatherer
	defaultPolicy inventory.Policy
	logger        *zap.Logger
}

// New builds the server. A nil gatherer disables /metrics; a nil logger discards output.
func New(svc *inventory.Service, gatherer prometheus.Gatherer, defaultPolicy inventory.Policy, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultPolicy == "" {
		defaultPolicy = inventory.PolicyEvict
	}
	return &Server{
		warehouse:     svc,
		gatherer:      gatherer,
		defaultPolicy: defaultPolicy,
		logger:        logger,
	}
}

// Handler exposes the mux with the JSON API, the text rendering and metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/products", s.productsEndpoint())
	mux.Handle("/api/products/restock", s.postOnly(s.restockProduct))
	mux.Handle("/api/products/purchase", s.postOnly(s.purchaseProduct))
	mux.Handle("/api/sectors", s.getOnly(s.listSectors))
	mux.Handle("/api/warehouse", s.getOnly(s.renderWarehouse))
	mux.Handle("/api/script", s.postOnly(s.applyScript))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, "ok")
	})
	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// productsEndpoint handles admission, lookup and deletion on one path.
func (s *Server) productsEndpoint() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			s.addProduct(w, r)
		case http.MethodGet:
			s.getProduct(w, r)
		case http.MethodDelete:
			s.deleteProduct(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
}

func (s *Server) postOnly(h http.HandlerFunc) http.Handler {
	return s.methodOnly(http.MethodPost, h)
}

func (s *Server) getOnly(h http.HandlerFunc) http.Handler {
	return s.methodOnly(http.MethodGet, h)
}

func (s *Server) methodOnly(method string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	})
}

// addPayload is the body of POST /api/products.
type addPayload struct {
	ID     *int   `json:"id"`
	Name   string `json:"name"`
	Stock  int    `json:"stock"`
	Day    int    `json:"day"`
	Demand int    `json:"demand"`
	Policy string `json:"policy"`
}

// Validate rejects payloads the warehouse would accept but a client almost certainly did not mean.
func (p addPayload) Validate() error {
	if p.ID == nil {
		return errors.New("id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("name is required")
	}
	if strings.ContainsAny(p.Name, " \t\r\n") {
		return errors.New("name must not contain whitespace")
	}
	return script.Op{Verb: script.VerbAdd, ID: *p.ID, Name: p.Name, Stock: p.Stock, Day: p.Day, Demand: p.Demand}.Validate()
}

func (s *Server) addProduct(w http.ResponseWriter, r *http.Request) {
	var payload addPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.logger.Warn("product admission failed: unable to decode payload", zap.Error(err))
		s.respondError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := payload.Validate(); err != nil {
		s.logger.Warn("product admission rejected", zap.Error(err))
		s.respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	policy := s.defaultPolicy
	if payload.Policy != "" {
		parsed, err := inventory.ParsePolicy(payload.Policy)
		if err != nil {
			s.logger.Warn("product admission rejected", zap.String("policy", payload.Policy), zap.Error(err))
			s.respondError(w, err.Error(), http.StatusBadRequest)
			return
		}
		policy = parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	item, err := s.warehouse.Add(ctx, inventory.AddRequest{
		ID:     *payload.ID,
		Name:   payload.Name,
		Stock:  payload.Stock,
		Day:    payload.Day,
		Demand: payload.Demand,
		Policy: policy,
	})
	if err != nil {
		s.logger.Error("product admission failed", zap.Int("id", *payload.ID), zap.Error(err))
		s.respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.logger.Info("product admitted",
		zap.Int("id", item.ID), zap.Int("sector", item.Sector), zap.String("policy", string(policy)))
	s.respondJSON(w, http.StatusCreated, item)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := s.queryID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	item, err := s.warehouse.Get(ctx, id)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			s.respondError(w, err.Error(), http.StatusNotFound)
			return
		}
		s.logger.Error("product lookup failed", zap.Int("id", id), zap.Error(err))
		s.respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := s.queryID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := s.warehouse.Delete(ctx, id); err != nil {
		s.logger.Error("product delete failed", zap.Int("id", id), zap.Error(err))
		s.respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.logger.Info("product deleted", zap.Int("id", id))
	w.WriteHeader(http.StatusNoContent)
}

type restockPayload struct {
	ID     int `json:"id"`
	Amount int `json:"amount"`
}

func (s *Server) restockProduct(w http.ResponseWriter, r *http.Request) {
	var payload restockPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.logger.Warn("restock failed: unable to decode payload", zap.Error(err))
		s.respondError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := (script.Op{Verb: script.VerbRestock, ID: payload.ID, Amount: payload.Amount}).Validate(); err != nil {
		s.respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := s.warehouse.Restock(ctx, payload.ID, payload.Amount); err != nil {
		s.logger.Error("restock failed", zap.Int("id", payload.ID), zap.Error(err))
		s.respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.logger.Info("product restocked", zap.Int("id", payload.ID), zap.Int("amount", payload.Amount))
	w.WriteHeader(http.StatusNoContent)
}

type purchasePayload struct {
	ID     int `json:"id"`
	Day    int `json:"day"`
	Amount int `json:"amount"`
}

func (s *Server) purchaseProduct(w http.ResponseWriter, r *http.Request) {
	var payload purchasePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.logger.Warn("purchase failed: unable to decode payload", zap.Error(err))
		s.respondError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := (script.Op{Verb: script.VerbPurchase, ID: payload.ID, Day: payload.Day, Amount: payload.Amount}).Validate(); err != nil {
		s.respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := s.warehouse.Purchase(ctx, payload.ID, payload.Day, payload.Amount); err != nil {
		s.logger.Error("purchase failed", zap.Int("id", payload.ID), zap.Error(err))
		s.respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.logger.Info("purchase recorded",
		zap.Int("id", payload.ID), zap.Int("day", payload.Day), zap.Int("amount", payload.Amount))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listSectors(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	snap, err := s.warehouse.Snapshot(ctx)
	if err != nil {
		s.logger.Error("sector listing failed", zap.Error(err))
		s.respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.respondJSON(w, http.StatusOK, snap)
}

func (s *Server) renderWarehouse(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	text, err := s.warehouse.Render(ctx)
	if err != nil {
		s.logger.Error("warehouse rendering failed", zap.Error(err))
		s.respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, text)
}

func (s *Server) applyScript(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxScriptBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.logger.Warn("script rejected: body too large", zap.Int64("limit", tooLarge.Limit))
			s.respondError(w, fmt.Sprintf("script exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		s.logger.Warn("script rejected: unable to read body", zap.Error(err))
		s.respondError(w, "unable to read body", http.StatusBadRequest)
		return
	}
	ops, err := script.Parse(bytes.NewReader(body))
	if err != nil {
		s.logger.Warn("script rejected", zap.Error(err))
		s.respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	err = s.warehouse.Apply(ctx, func(wh *inventory.Warehouse) error {
		script.Apply(wh, ops)
		return nil
	})
	if err != nil {
		s.logger.Error("script failed", zap.Int("operations", len(ops)), zap.Error(err))
		s.respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.logger.Info("script applied", zap.Int("operations", len(ops)))
	s.respondJSON(w, http.StatusOK, map[string]int{"applied": len(ops)})
}

// queryID parses the id query parameter, answering 400 itself on failure.
func (s *Server) queryID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("id")
	if raw == "" {
		s.respondError(w, "id is required", http.StatusBadRequest)
		return 0, false
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		s.respondError(w, fmt.Sprintf("invalid id %q", raw), http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// respondError keeps JSON formatting consistent across endpoints.
func (s *Server) respondError(w http.ResponseWriter, message string, status int) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
