// Package pricing selects weight-banded production tariffs and derives unit
// prices from them.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/Simplici0/cotizador/internal/apperr"
)

var hundred = decimal.NewFromInt(100)

// ErrNoApplicableBand reports that no tariff band covers the requested weight
// for the ink/face combination.
var ErrNoApplicableBand = apperr.NotFound("no applicable tariff for these parameters")

// TariffBand is one production rate for an ink/face pair over a weight range.
// WeightMin is inclusive, WeightMax exclusive; an invalid WeightMax means the
// band is unbounded.
type TariffBand struct {
	ID           int64               `json:"id"`
	InkID        int64               `json:"inkId"`
	FaceID       int64               `json:"faceId"`
	WeightBandID int64               `json:"weightBandId"`
	WeightMin    decimal.Decimal     `json:"weightMin"`
	WeightMax    decimal.NullDecimal `json:"weightMax"`
	PricePerKg   decimal.Decimal     `json:"pricePerKg"`
	WastePercent decimal.Decimal     `json:"wastePercent"`
}

// Covers reports whether weight falls inside the band's range.
func (b TariffBand) Covers(weight decimal.Decimal) bool {
	if weight.LessThan(b.WeightMin) {
		return false
	}
	return !b.WeightMax.Valid || weight.LessThan(b.WeightMax.Decimal)
}

// Request is the input of a single price computation.
type Request struct {
	Quantity   int64
	UnitsPerKg decimal.Decimal
	InkID      int64
	FaceID     int64
}

// TotalWeight is Quantity / UnitsPerKg. Callers must validate UnitsPerKg first.
func (r Request) TotalWeight() decimal.Decimal {
	return decimal.NewFromInt(r.Quantity).Div(r.UnitsPerKg)
}

// Result is the cost breakdown for one quantity. WasteCost is informational
// and never part of TotalCost.
type Result struct {
	Quantity       int64           `json:"quantity"`
	TotalWeightKg  decimal.Decimal `json:"totalWeightKg"`
	PricePerKg     decimal.Decimal `json:"pricePerKg"`
	WastePercent   decimal.Decimal `json:"wastePercent"`
	ProductionCost decimal.Decimal `json:"productionCost"`
	WasteCost      decimal.Decimal `json:"wasteCost"`
	TotalCost      decimal.Decimal `json:"totalCost"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	WeightRangeMin decimal.Decimal `json:"weightRangeMin"`
	BandID         int64           `json:"bandId"`
	WeightBandID   int64           `json:"weightBandId"`
}

// FindApplicableBand returns the first band matching ink, face and weight.
// Bands are expected sorted by ascending WeightMin and are not re-sorted, so
// with overlapping ranges the caller's order decides.
func FindApplicableBand(bands []TariffBand, inkID, faceID int64, weight decimal.Decimal) (TariffBand, bool) {
	for _, b := range bands {
		if b.InkID == inkID && b.FaceID == faceID && b.Covers(weight) {
			return b, true
		}
	}
	return TariffBand{}, false
}

// Validate checks the preconditions of ComputePrice that do not depend on the
// tariff table.
func (r Request) Validate() error {
	if r.Quantity <= 0 {
		return apperr.Validation("quantity must be greater than 0")
	}
	if !r.UnitsPerKg.IsPositive() {
		return apperr.Validation("unitsPerKg must be greater than 0")
	}
	if r.InkID <= 0 || r.FaceID <= 0 {
		return apperr.Validation("inkId and faceId are required")
	}
	return nil
}

// ComputePrice prices req against bands.
func ComputePrice(req Request, bands []TariffBand) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	if len(bands) == 0 {
		return Result{}, apperr.NotFound("no tariffs are configured")
	}

	weight := req.TotalWeight()
	band, ok := FindApplicableBand(bands, req.InkID, req.FaceID, weight)
	if !ok {
		return Result{}, ErrNoApplicableBand
	}

	production := weight.Mul(band.PricePerKg)
	waste := production.Mul(band.WastePercent).Div(hundred)

	return Result{
		Quantity:       req.Quantity,
		TotalWeightKg:  weight,
		PricePerKg:     band.PricePerKg,
		WastePercent:   band.WastePercent,
		ProductionCost: production,
		WasteCost:      waste,
		TotalCost:      production,
		UnitPrice:      production.Div(decimal.NewFromInt(req.Quantity)),
		WeightRangeMin: band.WeightMin,
		BandID:         band.ID,
		WeightBandID:   band.WeightBandID,
	}, nil
}

// ComputeBatch prices every quantity with the shared parameters. The output has
// the same length and order as quantities; a nil element marks a quantity <= 0
// or one without an applicable band.
func ComputeBatch(quantities []int64, unitsPerKg decimal.Decimal, inkID, faceID int64, bands []TariffBand) []*Result {
	out := make([]*Result, len(quantities))
	for i, q := range quantities {
		if q <= 0 {
			continue
		}
		res, err := ComputePrice(Request{Quantity: q, UnitsPerKg: unitsPerKg, InkID: inkID, FaceID: faceID}, bands)
		if err != nil {
			continue
		}
		out[i] = &res
	}
	return out
}
