package controlplane

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dealsuite/modtrack/internal/models"
	"github.com/dealsuite/modtrack/internal/store"
	"github.com/dealsuite/modtrack/internal/tracking"
)

// Version is reported by the health endpoint.
const Version = "0.3.0"

// RoleHeader carries the acting user's role, supplied by the external
// auth layer. The engine authorizes against it but never authenticates.
const RoleHeader = "X-Role"

// Server provides the HTTP API for Modtrack.
type Server struct {
	service *Service
	store   *store.Store
	addr    string
	server  *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(service *Service, st *store.Store, addr string) *Server {
	return &Server{
		service: service,
		store:   st,
		addr:    addr,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Printf("Starting Modtrack daemon on %s", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/products", s.handleProducts)
	mux.HandleFunc("/products/", s.handleProductByID)
	mux.HandleFunc("/deals", s.handleDeals)
	mux.HandleFunc("/deals/", s.handleDealByID)
	mux.HandleFunc("/health", s.handleHealth)

	return mux
}

// handleProducts handles POST /products and GET /products
func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createProduct(w, r)
	case http.MethodGet:
		s.listProducts(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleProductByID handles GET /products/{id}
func (s *Server) handleProductByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/products/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	s.getProduct(w, r, id)
}

// handleDeals handles POST /deals and GET /deals
func (s *Server) handleDeals(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createDeal(w, r)
	case http.MethodGet:
		s.listDeals(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleDealByID handles /deals/{id}/*
func (s *Server) handleDealByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/deals/")
	parts := strings.Split(path, "/")

	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "deal id required", http.StatusBadRequest)
		return
	}

	dealID := parts[0]
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		s.getDeal(w, r, dealID)
	case action == "modules" && r.Method == http.MethodGet:
		s.resolveModules(w, r, dealID)
	case action == "modules" && r.Method == http.MethodPut:
		s.replaceModules(w, r, dealID)
	case action == "stage" && r.Method == http.MethodPost:
		s.setStage(w, r, dealID)
	case action == "records" && r.Method == http.MethodGet:
		s.listRecords(w, r, dealID)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// HealthResponse is the health endpoint payload.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	DB      string `json:"db"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := HealthResponse{
		OK:      true,
		DB:      "ok",
		Version: Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}

	status := http.StatusOK
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		health.OK = false
		health.DB = err.Error()
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, health)
}

// --- Product Handlers ---

type createProductRequest struct {
	Name    string   `json:"name"`
	Modules []string `json:"modules"`
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, "product name required", http.StatusBadRequest)
		return
	}

	product, err := s.service.CreateProduct(req.Name, req.Modules)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.service.ListProducts()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request, id string) {
	product, err := s.service.GetProduct(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if product == nil {
		http.Error(w, "product not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// --- Deal Handlers ---

type createDealRequest struct {
	Title     string `json:"title"`
	ProductID string `json:"product_id"`
	Value     string `json:"value"`
}

func (s *Server) createDeal(w http.ResponseWriter, r *http.Request) {
	var req createDealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		http.Error(w, "deal title required", http.StatusBadRequest)
		return
	}

	value := decimal.Zero
	if req.Value != "" {
		var err error
		if value, err = decimal.NewFromString(req.Value); err != nil {
			http.Error(w, "invalid deal value", http.StatusBadRequest)
			return
		}
	}

	deal, err := s.service.CreateDeal(req.Title, req.ProductID, value)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, deal)
}

func (s *Server) listDeals(w http.ResponseWriter, r *http.Request) {
	deals, err := s.service.ListDeals(r.URL.Query().Get("stage"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if deals == nil {
		deals = []models.Deal{}
	}
	writeJSON(w, http.StatusOK, deals)
}

func (s *Server) getDeal(w http.ResponseWriter, r *http.Request, dealID string) {
	deal, err := s.service.GetDeal(r.Context(), dealID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if deal == nil {
		http.Error(w, "deal not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, deal)
}

func (s *Server) resolveModules(w http.ResponseWriter, r *http.Request, dealID string) {
	resolved, err := s.service.ResolveModules(r.Context(), dealID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if resolved.Modules == nil {
		resolved.Modules = []models.ModuleInstance{}
	}
	writeJSON(w, http.StatusOK, resolved)
}

// moduleName/status payloads deliberately carry nothing but name and the
// two statuses; the store treats the list as authoritative.
type replaceModulesRequest struct {
	Modules []models.ModuleInstance `json:"modules"`
}

func (s *Server) replaceModules(w http.ResponseWriter, r *http.Request, dealID string) {
	var req replaceModulesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	role := models.Role(r.Header.Get(RoleHeader))
	deal, err := s.service.CommitModules(r.Context(), dealID, role, req.Modules)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deal)
}

type setStageRequest struct {
	Stage string `json:"stage"`
}

func (s *Server) setStage(w http.ResponseWriter, r *http.Request, dealID string) {
	var req setStageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	deal, err := s.service.SetDealStage(r.Context(), dealID, models.DealStage(req.Stage))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deal)
}

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request, dealID string) {
	records, err := s.service.ListRecords(dealID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if records == nil {
		records = []models.DecisionRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// writeError maps service and engine errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrDealNotFound), errors.Is(err, store.ErrDealNotFound),
		errors.Is(err, ErrProductNotFound), errors.Is(err, store.ErrProductNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrAccessDenied), errors.Is(err, ErrUnknownRole):
		status = http.StatusForbidden
	case errors.Is(err, tracking.ErrStatusOrder),
		errors.Is(err, tracking.ErrDuplicateModule),
		errors.Is(err, tracking.ErrInvalidModule),
		errors.Is(err, tracking.ErrUnknownStatus),
		errors.Is(err, ErrInvalidStage),
		errors.Is(err, ErrNoProductSelected):
		status = http.StatusUnprocessableEntity
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
