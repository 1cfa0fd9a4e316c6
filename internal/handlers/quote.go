package handlers

import (
	"errors"
	"log"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"backend/internal/geometry"
	"backend/internal/pricing"
	"backend/internal/scale"
)

type quoteRequest struct {
	Triangles [][3][3]float64 `json:"triangles" binding:"required"`
	Material  string          `json:"material" binding:"required"`
	Quality   string          `json:"quality" binding:"required"`
	ScalePct  float64         `json:"scalePct"`
	Quantity  int             `json:"quantity"`
}

type quoteResponse struct {
	VolumeMM3    float64          `json:"volumeMm3"`
	Size         geometry.Size    `json:"size"`
	ScaledSize   geometry.Size    `json:"scaledSize"`
	MaxScale     *float64         `json:"maxScale"` // null when unconstrained
	AppliedScale float64          `json:"appliedScale"`
	Estimate     pricing.Estimate `json:"estimate"`
}

// meshFromTriangles converts the wire triangle list into a geometry.Mesh.
func meshFromTriangles(triangles [][3][3]float64) geometry.Mesh {
	mesh := make(geometry.Mesh, len(triangles))
	for i, t := range triangles {
		for j := 0; j < 3; j++ {
			mesh[i][j] = geometry.Vec3{X: t[j][0], Y: t[j][1], Z: t[j][2]}
		}
	}
	return mesh
}

// buildQuote runs the full mesh → price pipeline. Pure: no I/O.
func buildQuote(req quoteRequest, catalog *pricing.Catalog, envelope geometry.Size) (quoteResponse, error) {
	mesh := meshFromTriangles(req.Triangles)
	volume := geometry.VolumeMM3(mesh)
	size := geometry.BoundingSizeMM(mesh)

	requested := req.ScalePct / 100
	if req.ScalePct == 0 {
		requested = 1
	}

	applied, err := scale.Resolve(requested, size, envelope)
	if err != nil {
		return quoteResponse{}, err
	}

	estimate, err := catalog.Estimate(volume, req.Material, req.Quality, applied, req.Quantity)
	if err != nil {
		return quoteResponse{}, err
	}

	resp := quoteResponse{
		VolumeMM3: volume,
		Size:      size,
		ScaledSize: geometry.Size{
			X: size.X * applied,
			Y: size.Y * applied,
			Z: size.Z * applied,
		},
		AppliedScale: applied,
		Estimate:     estimate,
	}
	if max := scale.Max(size, envelope); !math.IsInf(max, 1) {
		resp.MaxScale = &max
	}
	return resp, nil
}

// quoteErrorStatus maps pipeline errors onto HTTP statuses.
func quoteErrorStatus(err error) (int, string) {
	var invalidScale scale.InvalidScaleError
	var invalidInput pricing.InvalidEstimateInputError
	var unknownMaterial pricing.UnknownMaterialError
	var unknownQuality pricing.UnknownQualityError
	switch {
	case errors.As(err, &invalidScale),
		errors.As(err, &invalidInput),
		errors.As(err, &unknownMaterial),
		errors.As(err, &unknownQuality):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "quote failed"
	}
}

// Quote prices a mesh without persisting anything.
func Quote(catalog *pricing.Catalog, envelope geometry.Size) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /quotes"
		defer handlePanic(c, route)

		var req quoteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		resp, err := buildQuote(req, catalog, envelope)
		if err != nil {
			status, msg := quoteErrorStatus(err)
			respondWithError(c, status, route, msg)
			return
		}

		log.Printf("[%s] quoted %d triangles: %.1f mm3, total %.2f USD", route, len(req.Triangles), resp.VolumeMM3, resp.Estimate.TotalPriceUSD)
		c.JSON(http.StatusOK, resp)
	}
}
