package corpus

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Handler serves texts over HTTP.
type Handler struct {
	store *Store
}

// NewHandler creates a text handler.
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

type textResponse struct {
	Text string `json:"text"`
}

// HandleText serves GET /game/texts/{id}.
func (h *Handler) HandleText(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid text id", http.StatusBadRequest)
		return
	}

	text, err := h.store.Text(id)
	if errors.Is(err, ErrTextNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(textResponse{Text: text.Body}); err != nil {
		log.Error().Err(err).Int("text_id", id).Msg("failed to write text")
	}
}

// RegisterRoutes registers the text routes with an HTTP mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /game/texts/{id}", h.HandleText)
}
