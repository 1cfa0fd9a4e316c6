package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"backend/internal/geometry"
	"backend/internal/pricing"
)

// GetCatalog serves the static material/quality catalog plus the build
// envelope so clients can render the quote form.
func GetCatalog(catalog *pricing.Catalog, envelope geometry.Size) gin.HandlerFunc {
	return func(c *gin.Context) {
		materials := catalog.Materials()
		type materialWithColors struct {
			pricing.Material
			Colors []pricing.ColorOption `json:"colors"`
		}
		out := make([]materialWithColors, 0, len(materials))
		for _, m := range materials {
			out = append(out, materialWithColors{Material: m, Colors: catalog.Colors(m.ID)})
		}

		c.JSON(http.StatusOK, gin.H{
			"materials":     out,
			"qualities":     catalog.Qualities(),
			"pricing":       catalog.Constants(),
			"buildEnvelope": envelope,
		})
	}
}
