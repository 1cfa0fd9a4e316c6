package pricing

import (
	"fmt"
	"math"
)

// Estimate is the full price breakdown for one quoted print job. It is
// derived data, recomputed on every quote request.
type Estimate struct {
	VolumeMM3Each float64 `json:"volumeMm3Each"`
	GramsEach     float64 `json:"gramsEach"`
	PriceUSDEach  float64 `json:"priceUsdEach"`
	TotalPriceUSD float64 `json:"totalPriceUsd"`
}

// UnknownMaterialError reports a material id missing from the catalog.
type UnknownMaterialError struct {
	ID string
}

func (e UnknownMaterialError) Error() string {
	return fmt.Sprintf("unknown material %q", e.ID)
}

// UnknownQualityError reports a quality id missing from the catalog.
type UnknownQualityError struct {
	ID string
}

func (e UnknownQualityError) Error() string {
	return fmt.Sprintf("unknown quality %q", e.ID)
}

// InvalidEstimateInputError reports an estimate input rejected before any
// computation.
type InvalidEstimateInputError struct {
	Reason string
}

func (e InvalidEstimateInputError) Error() string {
	return e.Reason
}

// round2 rounds to cents, half away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Estimate prices a single print job. Pure and deterministic: volume scales
// cubically with the linear scale factor, weight follows material density
// and the quality fill factor, and the per-item price is floored at the
// catalog minimum. The base fee is charged once per order regardless of
// quantity. Quantity below 1 is clamped to 1; a non-positive scale is
// rejected.
func (c *Catalog) Estimate(volumeMM3Each float64, materialID, qualityID string, scale float64, quantity int) (Estimate, error) {
	if scale <= 0 {
		return Estimate{}, InvalidEstimateInputError{Reason: "scale must be greater than zero"}
	}

	mat, ok := c.Material(materialID)
	if !ok {
		return Estimate{}, UnknownMaterialError{ID: materialID}
	}
	qual, ok := c.Quality(qualityID)
	if !ok {
		return Estimate{}, UnknownQualityError{ID: qualityID}
	}

	if quantity < 1 {
		quantity = 1
	}

	volumeEach := volumeMM3Each * scale * scale * scale
	volumeCM3Each := volumeEach / 1000 // 1 cm³ = 1000 mm³

	gramsEach := volumeCM3Each * mat.DensityGCM3 * qual.FillFactor * c.constants.HandlingMultiplier
	if gramsEach < 0 {
		gramsEach = 0
	}

	priceByWeightEach := gramsEach * mat.RateUSDPerGram * qual.Multiplier
	priceEach := math.Max(c.constants.MinimumPriceUSD, round2(priceByWeightEach))

	total := round2(c.constants.BaseFeeUSD + priceEach*float64(quantity))

	return Estimate{
		VolumeMM3Each: volumeEach,
		GramsEach:     gramsEach,
		PriceUSDEach:  priceEach,
		TotalPriceUSD: total,
	}, nil
}
