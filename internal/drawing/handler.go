package drawing

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/inamate/sketchpad/internal/document"
)

// maxBodyBytes caps uploaded shape arrays.
const maxBodyBytes = 8 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the drawing routes on r, which is expected to be the
// /api subrouter.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/drawings", h.List).Methods("GET")
	r.HandleFunc("/drawings", h.Create).Methods("POST")
	r.HandleFunc("/drawings/{drawingId}", h.Get).Methods("GET")
	r.HandleFunc("/drawings/{drawingId}", h.Save).Methods("PUT")
	r.HandleFunc("/drawings/{drawingId}", h.Delete).Methods("DELETE")
	r.HandleFunc("/drawings/{drawingId}/shapes", h.Shapes).Methods("GET")
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	drawings, err := h.service.List(r.Context())
	if err != nil {
		slog.Error("list drawings failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, drawings)
}

// Create accepts an optional shape array; an empty body creates an empty
// drawing.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	records, ok := readShapes(w, r, true)
	if !ok {
		return
	}

	d, err := h.service.Create(r.Context(), records)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, d)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Get(r.Context(), mux.Vars(r)["drawingId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, d)
}

// Shapes serves the bare shape array, the same format the file store writes.
func (h *Handler) Shapes(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Get(r.Context(), mux.Vars(r)["drawingId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	data, err := document.Marshal(d.Shapes)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+d.ID+`.json"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	records, ok := readShapes(w, r, false)
	if !ok {
		return
	}

	d, err := h.service.Save(r.Context(), mux.Vars(r)["drawingId"], records)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(r.Context(), mux.Vars(r)["drawingId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func readShapes(w http.ResponseWriter, r *http.Request, allowEmpty bool) ([]document.Record, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return nil, false
	}
	if allowEmpty && len(body) == 0 {
		return nil, true
	}

	records, err := document.Unmarshal(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return nil, false
	}
	return records, true
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrInvalidID):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid drawing id"})
	case errors.Is(err, ErrInvalidShapes):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrEmptyDrawing):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "nothing to save"})
	case errors.Is(err, ErrExists):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "already exists"})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
