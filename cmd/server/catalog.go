package main

import (
	"net/http"

	"github.com/Simplici0/cotizador/internal/catalog"
)

type tariffBatchRequest struct {
	Tariffs []catalog.TariffUpdate `json:"tariffs" validate:"required,min=1,dive"`
}

func (s *server) handleTariffsList(w http.ResponseWriter, r *http.Request) {
	bands, err := s.catalog.Tariffs(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bands)
}

func (s *server) handleTariffsBatch(w http.ResponseWriter, r *http.Request) {
	var body tariffBatchRequest
	if err := s.decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.catalog.UpdateTariffs(r.Context(), body.Tariffs); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": len(body.Tariffs)})
}

func (s *server) handleDiesList(w http.ResponseWriter, r *http.Request) {
	dies, err := s.catalog.Store().Dies(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dies)
}

func (s *server) handleProductionCatalogs(w http.ResponseWriter, r *http.Request) {
	cats, err := s.catalog.Store().ProductionCatalogs(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}
