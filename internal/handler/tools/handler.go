package tools

import (
	"net/http"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/shopdesk/backend/pkg/utils"
)

// Catalogue lists the operations offered to the LLM.
type Catalogue interface {
	Infos() []*schema.ToolInfo
}

// Handler serves the operation catalogue.
type Handler struct {
	catalogue Catalogue
}

// New creates a catalogue handler.
func New(catalogue Catalogue) *Handler {
	return &Handler{catalogue: catalogue}
}

// RegisterRoutes mounts the catalogue routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/tools", h.handleListTools)
}

type toolView struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) handleListTools(w http.ResponseWriter, r *http.Request) {
	infos := h.catalogue.Infos()
	views := make([]toolView, 0, len(infos))
	for _, info := range infos {
		views = append(views, toolView{Name: info.Name, Description: info.Desc})
	}
	utils.RespondJSON(w, http.StatusOK, views)
}
