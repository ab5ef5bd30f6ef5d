// Package server exposes the feed formulation pipeline over HTTP.
package server

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/iwvelando/feedmix/internal/config"
	"github.com/iwvelando/feedmix/internal/formulation"
	"github.com/iwvelando/feedmix/internal/ingredients"
	"github.com/iwvelando/feedmix/internal/ration"
	"github.com/iwvelando/feedmix/internal/solver"
	"github.com/iwvelando/feedmix/pkg/constants"
	"github.com/iwvelando/feedmix/pkg/mathutil"
	"github.com/iwvelando/feedmix/pkg/output"
)

//go:embed static/*
var staticFiles embed.FS

const defaultExportName = "feed_result"

type handler struct {
	logger        *zap.Logger
	maxUploadSize int64
	version       string
	catalog       *ingredients.Catalog
	solverMethod  string
	limiter       *rate.Limiter
	resolveSolver func(method string) (formulation.Solver, error)
}

// NewHandler constructs the HTTP handler that serves the web form and the
// formulation API. A nil catalog serves an empty one; requests may still
// carry inline ingredients.
func NewHandler(logger *zap.Logger, cfg *Config, catalog *ingredients.Catalog, version string) http.Handler {
	return newHandler(logger, cfg, catalog, version).routes()
}

func newHandler(logger *zap.Logger, cfg *Config, catalog *ingredients.Catalog, version string) *handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}

	maxUploadSize := cfg.UploadSizeBytes()
	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	if catalog == nil {
		catalog, _ = ingredients.NewCatalog()
	}

	limit, burst := cfg.RateLimit, cfg.RateLimitBurst
	if limit <= 0 {
		limit = constants.DefaultRateLimit
	}
	if burst <= 0 {
		burst = constants.DefaultRateLimitBurst
	}

	method := cfg.Solver
	if method == "" {
		method = constants.DefaultSolver
	}

	return &handler{
		logger:        logger,
		maxUploadSize: maxUploadSize,
		version:       trimmedVersion,
		catalog:       catalog,
		solverMethod:  method,
		limiter:       rate.NewLimiter(rate.Limit(limit), burst),
		resolveSolver: solver.New,
	}
}

func (h *handler) routes() http.Handler {
	mux := http.NewServeMux()

	// System endpoints (no rate limiting)
	mux.HandleFunc("/health", h.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/version", h.handleVersion)

	// Formulation API
	mux.HandleFunc("/api/formulate", h.withMiddleware(h.handleFormulate))
	mux.HandleFunc("/api/config", h.withMiddleware(h.handleConfig))
	mux.HandleFunc("/api/export", h.withMiddleware(h.handleExport))
	mux.HandleFunc("/api/ingredients", h.withMiddleware(h.handleIngredients))

	// Static assets (web form)
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(fmt.Sprintf("failed to prepare embedded static files: %v", err))
	}
	mux.Handle("/", http.FileServer(http.FS(sub)))

	return mux
}

// formulateRequest is the JSON body of /api/formulate and /api/export.
type formulateRequest struct {
	Ingredients []string                    `json:"ingredients"`
	Inline      []formulation.Ingredient    `json:"inline,omitempty"`
	Targets     formulation.NutrientTargets `json:"targets"`
	Bounds      config.BoundsConfig         `json:"bounds"`
	Solver      string                      `json:"solver,omitempty"`
}

type formulationResponse struct {
	Name          string                      `json:"name,omitempty"`
	Method        string                      `json:"method"`
	Lines         []lineResponse              `json:"lines"`
	TotalCost     float64                     `json:"totalCost"`
	TotalWeightKg float64                     `json:"totalWeightKg"`
	CP            float64                     `json:"cp"`
	TDN           float64                     `json:"tdn"`
	Targets       formulation.NutrientTargets `json:"targets"`
	Bounds        boundsResponse              `json:"bounds"`
	CSV           string                      `json:"csv"`
	Duration      string                      `json:"duration,omitempty"`
}

type lineResponse struct {
	Ingredient string  `json:"ingredient"`
	CP         float64 `json:"cp"`
	TDN        float64 `json:"tdn"`
	Price      int64   `json:"price"`
	WeightKg   float64 `json:"weightKg"`
	SharePct   float64 `json:"sharePct"`
	Cost       float64 `json:"cost"`
}

// boundsResponse mirrors BoundsPolicy; Max is omitted when unbounded since
// JSON cannot carry infinity.
type boundsResponse struct {
	Mode string   `json:"mode"`
	Min  float64  `json:"min"`
	Max  *float64 `json:"max,omitempty"`
}

type rationResponse struct {
	Name   string               `json:"name"`
	Result *formulationResponse `json:"result,omitempty"`
	Error  *errorResponse       `json:"error,omitempty"`
}

type configResponse struct {
	Rations  []rationResponse `json:"rations"`
	Warnings []string         `json:"warnings,omitempty"`
	Duration string           `json:"duration"`
}

type ingredientsResponse struct {
	Ingredients []formulation.Ingredient `json:"ingredients"`
	MaxCP       float64                  `json:"maxCP"`
	MaxTDN      float64                  `json:"maxTDN"`
	MaxCPFrom   string                   `json:"maxCPFrom,omitempty"`
	MaxTDNFrom  string                   `json:"maxTDNFrom,omitempty"`
	Presets     []string                 `json:"presets"`
	Solvers     []string                 `json:"solvers"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleFormulate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleFormulate"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	payload, ok := h.decodeFormulateRequest(w, r, op)
	if !ok {
		return
	}

	req, err := h.resolveRequest(payload)
	if err != nil {
		h.respondFormulationError(w, r, err, op)
		return
	}

	result, err := h.formulate(payload.Solver, req)
	if err != nil {
		h.respondFormulationError(w, r, err, op)
		return
	}

	resp := buildFormulationResponse("", req, result)
	resp.Duration = time.Since(start).String()

	h.logger.Info("formulation computed",
		zap.String("op", op),
		zap.String("requestID", requestID(r)),
		zap.Int("ingredients", len(req.Ingredients)),
		zap.Float64("totalCost", result.TotalCost),
		zap.Duration("duration", time.Since(start)),
	)

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleExport(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleExport"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = constants.OutputFormatTXT
	}
	if format != constants.OutputFormatCSV && format != constants.OutputFormatTXT {
		h.writeError(w, r, http.StatusBadRequest, errCodeInvalidRequest,
			fmt.Sprintf("expected export format of %s or %s, got %s", constants.OutputFormatCSV, constants.OutputFormatTXT, format), op, nil)
		return
	}

	payload, ok := h.decodeFormulateRequest(w, r, op)
	if !ok {
		return
	}

	req, err := h.resolveRequest(payload)
	if err != nil {
		h.respondFormulationError(w, r, err, op)
		return
	}

	result, err := h.formulate(payload.Solver, req)
	if err != nil {
		h.respondFormulationError(w, r, err, op)
		return
	}

	var buf bytes.Buffer
	if err := output.Export(&buf, format, result); err != nil {
		h.writeError(w, r, http.StatusInternalServerError, errCodeInternal, err.Error(), op, nil)
		return
	}

	contentType := "text/plain; charset=utf-8"
	if format == constants.OutputFormatCSV {
		contentType = "text/csv; charset=utf-8"
	}
	filename := exportFilename(r.URL.Query().Get("filename")) + "." + format

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("failed to write export",
			zap.String("op", op),
			zap.Error(err),
		)
	}
}

func (h *handler) handleConfig(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleConfig"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.writeError(w, r, http.StatusRequestEntityTooLarge, errCodeTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), op, nil)
			return
		}
		h.writeError(w, r, http.StatusBadRequest, errCodeInvalidRequest, fmt.Sprintf("failed to parse upload: %v", err), op, nil)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, errCodeInvalidRequest, "missing configuration file", op, nil)
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", op),
				zap.Error(closeErr),
			)
		}
	}()

	conf, err := config.LoadConfigurationFromReader(file)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, errCodeInvalidRequest, err.Error(), op, nil)
		return
	}

	warnings := conf.ValidateConfiguration()
	if conf.Catalog != "" {
		warnings = append(warnings, fmt.Sprintf("Catalog path %q is ignored; the server catalog is used", conf.Catalog))
	}

	catalog, err := h.mergedCatalog(conf.Ingredients)
	if err != nil {
		h.respondFormulationError(w, r, err, op)
		return
	}

	method := conf.Solver.Method
	if method == "" {
		method = h.solverMethod
	}
	s, err := h.resolveSolver(method)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, errCodeInvalidRequest, err.Error(), op, nil)
		return
	}

	outcomes, err := ration.Run(r.Context(), h.logger, conf, catalog, s)
	if err != nil {
		h.respondFormulationError(w, r, err, op)
		return
	}

	resp := configResponse{
		Rations:  make([]rationResponse, 0, len(outcomes)),
		Warnings: warnings,
	}
	for _, outcome := range outcomes {
		item := rationResponse{Name: outcome.Name}
		if outcome.Succeeded() {
			observeFormulation(s.Method(), outcomeSuccess, outcome.Duration)
			item.Result = buildFormulationResponse(outcome.Name, outcome.Request, outcome.Result)
			item.Result.Duration = outcome.Duration.String()
		} else {
			_, code, details, label := classify(outcome.Err)
			observeFormulation(s.Method(), label, outcome.Duration)
			item.Error = &errorResponse{Error: outcome.Err.Error(), Code: code, Details: details}
		}
		resp.Rations = append(resp.Rations, item)
	}
	resp.Duration = time.Since(start).String()

	h.logger.Info("configuration formulated",
		zap.String("op", op),
		zap.String("requestID", requestID(r)),
		zap.Int("rations", len(resp.Rations)),
		zap.Int("warnings", len(warnings)),
		zap.Duration("duration", time.Since(start)),
	)

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleIngredients(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleIngredients"
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	list := h.catalog.All()
	if raw := strings.TrimSpace(r.URL.Query().Get("names")); raw != "" {
		selected, err := h.catalog.Select(splitNames(raw))
		if err != nil {
			h.respondFormulationError(w, r, err, op)
			return
		}
		list = selected
	}

	resp := ingredientsResponse{
		Ingredients: list,
		Presets:     formulation.PresetNames(),
		Solvers:     solver.Methods(),
	}
	if len(list) > 0 {
		report, err := formulation.Ceilings(list)
		if err != nil {
			h.respondFormulationError(w, r, err, op)
			return
		}
		resp.MaxCP = report.MaxCP
		resp.MaxTDN = report.MaxTDN
		resp.MaxCPFrom = report.MaxCPFrom
		resp.MaxTDNFrom = report.MaxTDNFrom
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) decodeFormulateRequest(w http.ResponseWriter, r *http.Request, op string) (formulateRequest, bool) {
	var payload formulateRequest
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.writeError(w, r, http.StatusRequestEntityTooLarge, errCodeTooLarge,
				fmt.Sprintf("request exceeds limit of %d bytes", h.maxUploadSize), op, nil)
			return payload, false
		}
		if errors.Is(err, io.EOF) {
			h.writeError(w, r, http.StatusBadRequest, errCodeInvalidRequest, "empty request body", op, nil)
			return payload, false
		}
		h.writeError(w, r, http.StatusBadRequest, errCodeInvalidRequest, fmt.Sprintf("failed to decode request: %v", err), op, nil)
		return payload, false
	}
	return payload, true
}

// resolveRequest selects the named ingredients from the server catalog plus
// any inline ones. With no names, every inline ingredient is used.
func (h *handler) resolveRequest(payload formulateRequest) (formulation.Request, error) {
	catalog, err := h.mergedCatalog(payload.Inline)
	if err != nil {
		return formulation.Request{}, err
	}

	names := payload.Ingredients
	if len(names) == 0 {
		for _, ing := range payload.Inline {
			names = append(names, ing.Name)
		}
	}

	r := config.Ration{
		Name:        "request",
		Active:      true,
		Ingredients: names,
		Targets:     config.TargetsWithDefaults(payload.Targets),
		Bounds:      payload.Bounds,
	}
	req, err := r.Request(catalog)
	if err != nil {
		return formulation.Request{}, err
	}
	return req, nil
}

func (h *handler) mergedCatalog(inline []formulation.Ingredient) (*ingredients.Catalog, error) {
	if len(inline) == 0 {
		return h.catalog, nil
	}
	merged, err := ingredients.NewCatalog(h.catalog.All()...)
	if err != nil {
		return nil, err
	}
	for _, ing := range inline {
		ing.Name = strings.TrimSpace(ing.Name)
		if err := merged.Add(ing); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

func (h *handler) formulate(method string, req formulation.Request) (*formulation.Result, error) {
	if method == "" {
		method = h.solverMethod
	}
	s, err := h.resolveSolver(method)
	if err != nil {
		return nil, err
	}
	f, err := formulation.NewFormulator(h.logger, s)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := f.Formulate(req)
	outcome := outcomeSuccess
	if err != nil {
		_, _, _, outcome = classify(err)
	}
	observeFormulation(s.Method(), outcome, time.Since(start))
	return result, err
}

func buildFormulationResponse(name string, req formulation.Request, result *formulation.Result) *formulationResponse {
	resp := &formulationResponse{
		Name:          name,
		Method:        result.Method,
		Lines:         make([]lineResponse, 0, len(result.Lines)),
		TotalCost:     result.TotalCost,
		TotalWeightKg: mathutil.RoundWeight(result.TotalWeightKg),
		CP:            result.CP,
		TDN:           result.TDN,
		Targets:       req.Targets,
		Bounds:        boundsResponse{Mode: string(req.Bounds.Mode), Min: req.Bounds.Min},
	}
	if !math.IsInf(req.Bounds.Max, 1) {
		upper := req.Bounds.Max
		resp.Bounds.Max = &upper
	}
	for _, line := range result.Lines {
		weight := line.WeightKg
		if mathutil.IsZero(weight) {
			weight = 0
		}
		resp.Lines = append(resp.Lines, lineResponse{
			Ingredient: line.Ingredient.Name,
			CP:         line.Ingredient.CP,
			TDN:        line.Ingredient.TDN,
			Price:      line.Ingredient.Price,
			WeightKg:   mathutil.RoundWeight(weight),
			SharePct:   mathutil.CalculatePercentage(weight, result.TotalWeightKg),
			Cost:       line.Cost,
		})
	}
	if csv, err := output.CsvString(result); err == nil {
		resp.CSV = csv
	}
	return resp
}

func splitNames(raw string) []string {
	var names []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return names
}

// exportFilename reduces a requested download name to a bare file stem.
func exportFilename(requested string) string {
	name := filepath.Base(strings.TrimSpace(requested))
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.Map(func(r rune) rune {
		if r == '"' || r == '\\' || r == '/' || r < 0x20 {
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." {
		return defaultExportName
	}
	return name
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
