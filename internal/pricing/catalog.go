package pricing

// Material is an immutable catalog entry for a printable filament.
type Material struct {
	ID             string  `json:"id"`
	Label          string  `json:"label"`
	DensityGCM3    float64 `json:"densityGCm3"`
	RateUSDPerGram float64 `json:"rateUsdPerGram"`
}

// Quality is an immutable catalog entry for a print quality tier. The fill
// factor is the effective solid fraction standing in for infill density
// and perimeter thickness.
type Quality struct {
	ID         string  `json:"id"`
	Multiplier float64 `json:"multiplier"`
	FillFactor float64 `json:"fillFactor"`
}

// ColorOption is one selectable filament color for a material.
type ColorOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Hex   string `json:"hex"`
}

// Constants are the global pricing knobs applied to every estimate.
type Constants struct {
	BaseFeeUSD         float64 `json:"baseFeeUsd"`
	MinimumPriceUSD    float64 `json:"minimumPriceUsd"`
	HandlingMultiplier float64 `json:"handlingMultiplier"`
}

// Catalog is the read-only material/quality lookup table injected at
// startup. It is never mutated after construction.
type Catalog struct {
	materials map[string]Material
	qualities map[string]Quality
	colors    map[string][]ColorOption
	constants Constants
}

// DefaultCatalog builds the static shop catalog.
func DefaultCatalog() *Catalog {
	materials := []Material{
		{ID: "pla", Label: "PLA", DensityGCM3: 1.24, RateUSDPerGram: 0.06},
		{ID: "abs", Label: "ABS", DensityGCM3: 1.04, RateUSDPerGram: 0.07},
		{ID: "tpu", Label: "TPU", DensityGCM3: 1.21, RateUSDPerGram: 0.08},
		{ID: "pa6-cf", Label: "PA6-CF", DensityGCM3: 1.12, RateUSDPerGram: 0.12},
		{ID: "asa", Label: "ASA", DensityGCM3: 1.07, RateUSDPerGram: 0.09},
		{ID: "nylon", Label: "Nylon", DensityGCM3: 1.01, RateUSDPerGram: 0.11},
	}

	qualities := []Quality{
		{ID: "draft", Multiplier: 0.95, FillFactor: 0.25},
		{ID: "standard", Multiplier: 1.0, FillFactor: 0.4},
		{ID: "fine", Multiplier: 1.2, FillFactor: 0.6},
	}

	black := ColorOption{ID: "black", Label: "Black", Hex: "#111111"}
	white := ColorOption{ID: "white", Label: "White", Hex: "#f5f5f5"}
	gray := ColorOption{ID: "gray", Label: "Gray", Hex: "#9ca3af"}
	red := ColorOption{ID: "red", Label: "Red", Hex: "#ef4444"}
	blue := ColorOption{ID: "blue", Label: "Blue", Hex: "#3b82f6"}
	green := ColorOption{ID: "green", Label: "Green", Hex: "#22c55e"}

	colors := map[string][]ColorOption{
		"pla": {
			black, white, gray, red, blue, green,
			{ID: "yellow", Label: "Yellow", Hex: "#f59e0b"},
			{ID: "orange", Label: "Orange", Hex: "#fb923c"},
			{ID: "purple", Label: "Purple", Hex: "#8b5cf6"},
		},
		"abs": {black, white, gray, red, blue, green},
		"tpu": {
			black, white,
			{ID: "clear", Label: "Clear", Hex: "#e5e7eb"},
			red, blue,
		},
		"pa6-cf": {black},
		"asa":    {black, white, gray},
		"nylon": {
			{ID: "natural", Label: "Natural", Hex: "#dddcdc"},
			black,
		},
	}

	c := &Catalog{
		materials: make(map[string]Material, len(materials)),
		qualities: make(map[string]Quality, len(qualities)),
		colors:    colors,
		constants: Constants{
			BaseFeeUSD:         3,
			MinimumPriceUSD:    5,
			HandlingMultiplier: 1.1, // waste, supports, brim
		},
	}
	for _, m := range materials {
		c.materials[m.ID] = m
	}
	for _, q := range qualities {
		c.qualities[q.ID] = q
	}
	return c
}

// Material looks up a material by id.
func (c *Catalog) Material(id string) (Material, bool) {
	m, ok := c.materials[id]
	return m, ok
}

// Quality looks up a quality tier by id.
func (c *Catalog) Quality(id string) (Quality, bool) {
	q, ok := c.qualities[id]
	return q, ok
}

// Colors returns the palette for a material.
func (c *Catalog) Colors(materialID string) []ColorOption {
	return c.colors[materialID]
}

// HasColor reports whether the material offers the given color.
func (c *Catalog) HasColor(materialID, colorID string) bool {
	for _, color := range c.colors[materialID] {
		if color.ID == colorID {
			return true
		}
	}
	return false
}

// Materials returns every material in the catalog.
func (c *Catalog) Materials() []Material {
	out := make([]Material, 0, len(c.materials))
	for _, id := range []string{"pla", "abs", "tpu", "pa6-cf", "asa", "nylon"} {
		if m, ok := c.materials[id]; ok {
			out = append(out, m)
		}
	}
	return out
}

// Qualities returns every quality tier in the catalog.
func (c *Catalog) Qualities() []Quality {
	out := make([]Quality, 0, len(c.qualities))
	for _, id := range []string{"draft", "standard", "fine"} {
		if q, ok := c.qualities[id]; ok {
			out = append(out, q)
		}
	}
	return out
}

// Constants returns the global pricing constants.
func (c *Catalog) Constants() Constants {
	return c.constants
}
