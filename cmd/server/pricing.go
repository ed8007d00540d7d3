package main

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/cotizador/internal/apperr"
	"github.com/Simplici0/cotizador/internal/pricing"
)

type pricingPreviewRequest struct {
	Quantity   int64           `json:"quantity"`
	UnitsPerKg decimal.Decimal `json:"unitsPerKg"`
	InkID      int64           `json:"inkId" validate:"required,gt=0"`
	FaceID     int64           `json:"faceId" validate:"required,gt=0"`
}

type pricingBatchRequest struct {
	Quantities []int64         `json:"quantities" validate:"required,min=1,max=100"`
	UnitsPerKg decimal.Decimal `json:"unitsPerKg"`
	InkID      int64           `json:"inkId" validate:"required,gt=0"`
	FaceID     int64           `json:"faceId" validate:"required,gt=0"`
}

type noBandResponse struct {
	Error         apiError        `json:"error"`
	TotalWeightKg decimal.Decimal `json:"totalWeightKg"`
	InkID         int64           `json:"inkId"`
	FaceID        int64           `json:"faceId"`
}

func (s *server) handlePricingPreview(w http.ResponseWriter, r *http.Request) {
	var body pricingPreviewRequest
	if err := s.decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	req := pricing.Request{
		Quantity:   body.Quantity,
		UnitsPerKg: body.UnitsPerKg,
		InkID:      body.InkID,
		FaceID:     body.FaceID,
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	bands, err := s.catalog.Tariffs(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := pricing.ComputePrice(req, bands)
	if errors.Is(err, pricing.ErrNoApplicableBand) {
		writeJSON(w, http.StatusNotFound, noBandResponse{
			Error:         apiError{Message: apperr.Message(err), Code: string(apperr.KindNotFound)},
			TotalWeightKg: req.TotalWeight(),
			InkID:         req.InkID,
			FaceID:        req.FaceID,
		})
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *server) handlePricingBatch(w http.ResponseWriter, r *http.Request) {
	var body pricingBatchRequest
	if err := s.decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if !body.UnitsPerKg.IsPositive() {
		s.writeError(w, r, apperr.Validation("unitsPerKg must be greater than 0"))
		return
	}

	bands, err := s.catalog.Tariffs(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pricing.ComputeBatch(body.Quantities, body.UnitsPerKg, body.InkID, body.FaceID, bands))
}
