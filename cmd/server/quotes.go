package main

import (
	"net/http"

	"github.com/Simplici0/cotizador/internal/quotes"
)

type statusRequest struct {
	StatusID int64 `json:"statusId" validate:"required,gt=0"`
}

type approvalRequest struct {
	Approved *bool `json:"approved" validate:"required"`
}

type observationRequest struct {
	Observation *string `json:"observation" validate:"omitempty,max=2000"`
}

func (s *server) handleQuotesList(w http.ResponseWriter, r *http.Request) {
	list, err := s.quotes.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *server) handleQuoteCreate(w http.ResponseWriter, r *http.Request) {
	var body quotes.NewQuote
	if err := s.decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	sequence, err := s.quotes.Create(r.Context(), body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.log.Debug("quote submitted", "sequence", sequence, "userId", principalID(r))
	writeJSON(w, http.StatusCreated, map[string]int64{"sequenceNumber": sequence})
}

func (s *server) handleQuoteStatus(w http.ResponseWriter, r *http.Request) {
	sequence, err := idParam(r, "sequence")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var body statusRequest
	if err := s.decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.quotes.UpdateStatus(r.Context(), sequence, body.StatusID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sequenceNumber": sequence, "statusId": body.StatusID})
}

func (s *server) handleQuoteDelete(w http.ResponseWriter, r *http.Request) {
	sequence, err := idParam(r, "sequence")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.quotes.Delete(r.Context(), sequence); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.log.Info("quote delete requested", "sequence", sequence, "userId", principalID(r))
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleLineApproval(w http.ResponseWriter, r *http.Request) {
	lineID, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var body approvalRequest
	if err := s.decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.quotes.SetLineApproval(r.Context(), lineID, *body.Approved); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": lineID, "approved": *body.Approved})
}

func (s *server) handleProductObservation(w http.ResponseWriter, r *http.Request) {
	productID, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var body observationRequest
	if err := s.decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.quotes.UpdateObservation(r.Context(), productID, body.Observation); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": productID, "observation": body.Observation})
}
