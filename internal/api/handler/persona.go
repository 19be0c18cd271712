package handler

import (
	"net/http"

	"github.com/iconidentify/buzzteacher/internal/persona"
)

// PersonaHandler lists the available personas.
type PersonaHandler struct {
	catalog *persona.Catalog
}

// NewPersonaHandler creates a new persona handler.
func NewPersonaHandler(catalog *persona.Catalog) *PersonaHandler {
	return &PersonaHandler{catalog: catalog}
}

// List handles GET /api/v1/personas.
func (h *PersonaHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"creators": h.catalog.List()})
}
