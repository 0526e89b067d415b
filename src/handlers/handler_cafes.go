package handlers

import (
	"CafeAPI/src/logging"
	"CafeAPI/src/templates"
	"CafeAPI/src/types"
	"errors"
	"html/template"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

const (
	msgAdded         = "Successfully added the new cafe."
	msgPriceUpdated  = "Successfully updated the price."
	msgDeleted       = "Successfully deleted the cafe from the database."
	msgNoLocation    = "Sorry, we don't have a cafe at that location."
	msgNoID          = "Sorry a cafe with that id was not found in the database."
	msgNoCafes       = "Sorry, there are no cafes in the database."
	msgDuplicateName = "Sorry, a cafe with that name already exists."
	msgInvalidID     = "Sorry, the cafe id must be an integer."
	msgInternal      = "Sorry, something went wrong on our side."

	labelNotFound   = "Not Found"
	labelBadRequest = "Bad Request"
	labelInternal   = "Internal Server Error"
)

type Handler struct {
	store          types.DataStore
	tmpl           *template.Template
	strictBooleans bool
	validate       *validator.Validate
}

type HomePage struct {
	Total int64
}

func NewHandler(store types.DataStore, tmpl *template.Template, strictBooleans bool) *Handler {
	return &Handler{
		store:          store,
		tmpl:           tmpl,
		strictBooleans: strictBooleans,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
	}
}

// LoadTemplate parses the index page from filename, or the embedded default
// when filename is empty.
func LoadTemplate(filename string) (*template.Template, error) {
	if filename == "" {
		return template.ParseFS(templates.FS, templates.Index)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return template.New(templates.Index).Parse(string(data))
}

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	total, err := h.store.CountCafes(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to count cafes")
		http.Error(w, "Error loading cafes", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err = h.tmpl.Execute(w, HomePage{Total: total}); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to render index")
		http.Error(w, "Error rendering template", http.StatusInternalServerError)
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Random(w http.ResponseWriter, r *http.Request) {
	cafe, err := h.store.GetRandomCafe(r.Context())
	if err != nil {
		h.storeError(w, r, err, msgNoCafes)
		return
	}
	writeJSON(w, http.StatusOK, map[string]types.Cafe{"cafe": cafe})
}

func (h *Handler) All(w http.ResponseWriter, r *http.Request) {
	cafes, err := h.store.GetCafes(r.Context())
	if err != nil {
		h.storeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]types.Cafe{"cafes": cafes})
}

// Search looks a cafe up by exact location. A missing loc parameter matches
// nothing.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if _, ok := query["loc"]; !ok {
		writeError(w, http.StatusNotFound, labelNotFound, msgNoLocation)
		return
	}

	cafe, err := h.store.GetCafeByLocation(r.Context(), query.Get("loc"))
	if err != nil {
		h.storeError(w, r, err, msgNoLocation)
		return
	}
	writeJSON(w, http.StatusOK, map[string]types.Cafe{"cafe": cafe})
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	cafe, err := h.parseCafeForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, labelBadRequest, err.Error())
		return
	}

	if err = h.store.AddCafe(r.Context(), &cafe); err != nil {
		h.storeError(w, r, err, "")
		return
	}

	logging.Ctx(r.Context()).Info().Int64("id", cafe.ID).Str("name", cafe.Name).Msg("Cafe added")
	writeSuccess(w, msgAdded)
}

func (h *Handler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	id, err := cafeID(r)
	if err != nil {
		h.storeError(w, r, err, msgNoID)
		return
	}

	query := r.URL.Query()
	var price *string
	if _, ok := query["new_price"]; ok {
		p := query.Get("new_price")
		price = &p
	}

	if _, err = h.store.UpdateCafePrice(r.Context(), id, price); err != nil {
		h.storeError(w, r, err, msgNoID)
		return
	}
	writeSuccess(w, msgPriceUpdated)
}

// ReportClosed deletes a cafe. The api key has already been checked by
// token.RequireAPIKey.
func (h *Handler) ReportClosed(w http.ResponseWriter, r *http.Request) {
	id, err := cafeID(r)
	if err != nil {
		h.storeError(w, r, err, msgNoID)
		return
	}

	if err = h.store.DeleteCafe(r.Context(), id); err != nil {
		h.storeError(w, r, err, msgNoID)
		return
	}

	logging.Ctx(r.Context()).Info().Int64("id", id).Msg("Cafe reported closed")
	writeSuccess(w, msgDeleted)
}

func cafeID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "cafe_id"), 10, 64)
	if err != nil {
		return 0, types.ErrInvalidID
	}
	return id, nil
}

// storeError writes the error body for a failed store call: 404 for
// ErrNotFound, 500 for everything else.
func (h *Handler) storeError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	if errors.Is(err, types.ErrNotFound) {
		writeError(w, http.StatusNotFound, labelNotFound, notFound)
		return
	}

	msg := msgInternal
	switch {
	case errors.Is(err, types.ErrNoCafes):
		msg = msgNoCafes
	case errors.Is(err, types.ErrDuplicateName):
		msg = msgDuplicateName
	case errors.Is(err, types.ErrInvalidID):
		msg = msgInvalidID
	}

	logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	writeError(w, http.StatusInternalServerError, labelInternal, msg)
}

func writeSuccess(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, map[string]map[string]string{
		"response": {"success": msg},
	})
}

func writeError(w http.ResponseWriter, status int, label, msg string) {
	writeJSON(w, status, map[string]map[string]string{
		"error": {label: msg},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("Error encoding response")
	}
}
