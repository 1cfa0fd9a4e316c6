package pricing

import (
	"errors"
	"math"
	"testing"
)

func TestEstimateMinimumPriceApplies(t *testing.T) {
	// 10,000 mm³ of PLA at standard quality: 10 cm³ · 1.24 · 0.4 · 1.1
	// ≈ 5.46 g, weight price ≈ 0.33 USD, so the 5 USD minimum wins.
	c := DefaultCatalog()
	est, err := c.Estimate(10000, "pla", "standard", 1, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(est.GramsEach-5.456) > 0.01 {
		t.Fatalf("expected ~5.46 g, got %v", est.GramsEach)
	}
	if est.PriceUSDEach != 5.00 {
		t.Fatalf("expected minimum price 5.00, got %v", est.PriceUSDEach)
	}
	if est.TotalPriceUSD != 8.00 {
		t.Fatalf("expected total 8.00 (3.00 base fee + 5.00), got %v", est.TotalPriceUSD)
	}
}

func TestEstimateBaseFeeChargedOnce(t *testing.T) {
	c := DefaultCatalog()
	est, err := c.Estimate(10000, "pla", "standard", 1, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if est.TotalPriceUSD != 18.00 {
		t.Fatalf("expected total 18.00 (3.00 + 5.00*3), got %v", est.TotalPriceUSD)
	}
}

func TestEstimateRoundingConsistency(t *testing.T) {
	// Displayed unit price times quantity plus the base fee must reproduce
	// the displayed total exactly.
	c := DefaultCatalog()
	volumes := []float64{10000, 123456.78, 1e6, 3.5e6}
	for _, vol := range volumes {
		for qty := 1; qty <= 7; qty++ {
			est, err := c.Estimate(vol, "pa6-cf", "fine", 1, qty)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want := round2(c.Constants().BaseFeeUSD + est.PriceUSDEach*float64(qty))
			if est.TotalPriceUSD != want {
				t.Fatalf("vol=%v qty=%d: total %v != priceEach*qty+baseFee %v", vol, qty, est.TotalPriceUSD, want)
			}
		}
	}
}

func TestEstimateCubicScaling(t *testing.T) {
	c := DefaultCatalog()
	base, err := c.Estimate(50000, "abs", "standard", 1, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doubled, err := c.Estimate(50000, "abs", "standard", 2, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(doubled.VolumeMM3Each-8*base.VolumeMM3Each) > 1e-6 {
		t.Fatalf("expected 8x volume at scale 2, got %v vs %v", doubled.VolumeMM3Each, base.VolumeMM3Each)
	}
	if math.Abs(doubled.GramsEach-8*base.GramsEach) > 1e-6 {
		t.Fatalf("expected 8x grams at scale 2, got %v vs %v", doubled.GramsEach, base.GramsEach)
	}
}

func TestEstimateQuantityClampedToOne(t *testing.T) {
	c := DefaultCatalog()
	one, err := c.Estimate(10000, "pla", "standard", 1, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	zero, err := c.Estimate(10000, "pla", "standard", 1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if zero.TotalPriceUSD != one.TotalPriceUSD {
		t.Fatalf("expected qty=0 to price as qty=1, got %v vs %v", zero.TotalPriceUSD, one.TotalPriceUSD)
	}
}

func TestEstimateRejectsNonPositiveScale(t *testing.T) {
	c := DefaultCatalog()
	for _, s := range []float64{0, -1} {
		_, err := c.Estimate(10000, "pla", "standard", s, 1)
		var invalid InvalidEstimateInputError
		if !errors.As(err, &invalid) {
			t.Fatalf("scale %v: expected InvalidEstimateInputError, got %v", s, err)
		}
	}
}

func TestEstimateUnknownCatalogIDs(t *testing.T) {
	c := DefaultCatalog()

	_, err := c.Estimate(10000, "wood", "standard", 1, 1)
	var um UnknownMaterialError
	if !errors.As(err, &um) || um.ID != "wood" {
		t.Fatalf("expected UnknownMaterialError for wood, got %v", err)
	}

	_, err = c.Estimate(10000, "pla", "ultra", 1, 1)
	var uq UnknownQualityError
	if !errors.As(err, &uq) || uq.ID != "ultra" {
		t.Fatalf("expected UnknownQualityError for ultra, got %v", err)
	}
}

func TestCatalogColors(t *testing.T) {
	c := DefaultCatalog()
	if !c.HasColor("pla", "purple") {
		t.Fatal("expected pla to offer purple")
	}
	if c.HasColor("pa6-cf", "white") {
		t.Fatal("expected pa6-cf to only offer black")
	}
	if len(c.Materials()) != 6 || len(c.Qualities()) != 3 {
		t.Fatalf("unexpected catalog sizes: %d materials, %d qualities", len(c.Materials()), len(c.Qualities()))
	}
}
