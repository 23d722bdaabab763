// Package httpapi exposes the record store facade over HTTP. Records travel
// as flat JSON objects carrying their id field; lookups return bare arrays and
// failures a {"estatus","mensaje"} envelope.
package httpapi

import (
	"arquitectura/internal/core"
	"arquitectura/pkg/domain"
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const welcomeMessage = "Welcome to the Arquitectura API"

// Handler routes HTTP requests to a core.Service.
type Handler struct {
	svc     *core.Service
	logger  *zap.Logger
	metrics http.Handler
	mux     *http.ServeMux
}

// Option configures a Handler.
type Option func(*Handler)

// WithMetricsHandler replaces the /metrics handler.
func WithMetricsHandler(h http.Handler) Option {
	return func(hd *Handler) {
		if h != nil {
			hd.metrics = h
		}
	}
}

// NewHandler builds the routing table for svc. A nil logger disables request logs.
func NewHandler(svc *core.Service, logger *zap.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{svc: svc, logger: logger, metrics: promhttp.Handler(), mux: http.NewServeMux()}
	for _, opt := range opts {
		opt(h)
	}
	h.routes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLog(h.logger, h.mux).ServeHTTP(w, r)
}

func (h *Handler) routes() {
	h.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": welcomeMessage})
	})
	h.mux.HandleFunc("GET /healthz", h.handleHealth)
	h.mux.Handle("GET /metrics", h.metrics)
	h.mux.Handle("GET /debug/vars", expvar.Handler())

	registerRecords(h.mux, h.svc.Clients())
	registerRecords(h.mux, h.svc.Projects())
	registerRecords(h.mux, h.svc.Orders())
	registerRecords(h.mux, h.svc.Suppliers())
	registerRecords(h.mux, h.svc.Workers())
	registerRecords(h.mux, h.svc.Materials())

	h.mux.HandleFunc("GET /clientes/proyecto/{id}", lookup(h.svc.ClientsByProject, "id"))
	h.mux.HandleFunc("GET /proyectos/estado/{estado}", lookup(h.svc.ProjectsByStatus, "estado"))
	h.mux.HandleFunc("GET /proyectos/responsable/{responsable}", lookup(h.svc.ProjectsByResponsible, "responsable"))
	h.mux.HandleFunc("GET /pedidos/proyecto/{id}", lookup(h.svc.OrdersByProject, "id"))
	h.mux.HandleFunc("GET /pedidos/proveedor/{id}", lookup(h.svc.OrdersBySupplier, "id"))
	h.mux.HandleFunc("GET /pedidos/material/{id}", lookup(h.svc.OrdersByMaterial, "id"))
	h.mux.HandleFunc("GET /proveedores/producto/{nombre}", lookup(h.svc.SuppliersByProduct, "nombre"))
	h.mux.HandleFunc("GET /trabajadores/proyecto/{id}", lookup(h.svc.WorkersByProject, "id"))
	h.mux.HandleFunc("GET /materiales/categoria/{categoria}", lookup(h.svc.MaterialsByCategory, "categoria"))

	h.mux.HandleFunc("PUT /proyectos/{id}/planos/{nombre}", h.handleAttachBlueprint)
	h.mux.HandleFunc("GET /proyectos/{id}/planos/{nombre}", h.handleOpenBlueprint)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ping(r.Context()); err != nil {
		writeMessage(w, http.StatusInternalServerError, "error", err.Error())
		return
	}
	writeMessage(w, http.StatusOK, "ok", "almacenamiento disponible")
}

func registerRecords[T domain.Record](mux *http.ServeMux, recs core.Records[T]) {
	kind := recs.Kind()
	base := "/" + kind.Collection

	mux.HandleFunc("POST "+base, func(w http.ResponseWriter, r *http.Request) {
		rec, err := decodeRecord[T](r.Body, kind)
		if err != nil {
			writeError(w, err)
			return
		}
		created, err := recs.Create(r.Context(), rec)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	})
	mux.HandleFunc("PUT "+base+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if _, ok := domain.ParseID(id); !ok {
			writeError(w, domain.InvalidIdentifier(kind, id))
			return
		}
		rec, err := decodeRecord[T](r.Body, kind)
		if err != nil {
			writeError(w, err)
			return
		}
		updated, err := recs.Update(r.Context(), id, rec)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	})
	mux.HandleFunc("DELETE "+base+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		if err := recs.Delete(r.Context(), r.PathValue("id")); err != nil {
			writeError(w, err)
			return
		}
		writeMessage(w, http.StatusOK, "Éxito", kind.Display+" eliminado correctamente")
	})
	mux.HandleFunc("GET "+base+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		rec, err := recs.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	})
}

func decodeRecord[T domain.Record](body io.Reader, kind domain.Kind) (T, error) {
	var (
		rec T
		raw json.RawMessage
	)
	dec := json.NewDecoder(body)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("cuerpo vacío")
		}
		return rec, domain.InvalidInput(kind, err)
	}
	if dec.More() {
		return rec, domain.InvalidInput(kind, errors.New("contenido adicional tras el objeto JSON"))
	}
	return domain.DecodeRecord[T](raw, kind)
}

func lookup[T any](fn func(context.Context, string) ([]T, error), param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := fn(r.Context(), r.PathValue(param))
		if err != nil {
			writeError(w, err)
			return
		}
		if res == nil {
			res = []T{}
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (h *Handler) handleAttachBlueprint(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, core.MaxBlueprintSize+1)
	project, err := h.svc.AttachBlueprint(r.Context(),
		r.PathValue("id"),
		r.PathValue("nombre"),
		r.URL.Query().Get("descripcion"),
		r.Header.Get("Content-Type"),
		body,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *Handler) handleOpenBlueprint(w http.ResponseWriter, r *http.Request) {
	info, rc, err := h.svc.OpenBlueprint(r.Context(), r.PathValue("id"), r.PathValue("nombre"))
	if err != nil {
		writeError(w, err)
		return
	}
	defer func() { _ = rc.Close() }()
	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	if info.ETag != "" {
		w.Header().Set("ETag", fmt.Sprintf("%q", info.ETag))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}

// StatusFor maps a facade error onto an HTTP status code.
func StatusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.ErrorNotFound:
		return http.StatusNotFound
	case domain.ErrorInvalidIdentifier, domain.ErrorInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type envelope struct {
	Status  string `json:"estatus"`
	Message string `json:"mensaje"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, status int, estatus, message string) {
	writeJSON(w, status, envelope{Status: estatus, Message: message})
}

func writeError(w http.ResponseWriter, err error) {
	writeMessage(w, StatusFor(err), "error", err.Error())
}
