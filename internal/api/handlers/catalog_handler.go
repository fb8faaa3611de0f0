package handlers

import (
	"net/http"

	"github.com/blueprintpro/estimator/internal/catalog"
	"github.com/blueprintpro/estimator/internal/models"
	appErr "github.com/blueprintpro/estimator/pkg/errors"
)

// CatalogHandler serves the static reference data used by the wizard.
type CatalogHandler struct {
	catalog *catalog.Catalog
}

func NewCatalogHandler(c *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: c}
}

// Materials lists every category, or one category with ?category=.
func (h *CatalogHandler) Materials(w http.ResponseWriter, r *http.Request) {
	if id := r.URL.Query().Get("category"); id != "" {
		cat, ok := h.catalog.Category(models.MaterialCategory(id))
		if !ok {
			writeError(w, r, appErr.New(appErr.CodeNotFound, "unknown material category"))
			return
		}
		writeData(w, r, http.StatusOK, cat)
		return
	}
	writeData(w, r, http.StatusOK, h.catalog.Categories)
}

func (h *CatalogHandler) Regions(w http.ResponseWriter, r *http.Request) {
	writeData(w, r, http.StatusOK, models.Regions)
}
