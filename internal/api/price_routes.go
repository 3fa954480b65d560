package api

import (
	"errors"
	"net/http"

	"github.com/fedorten/resursGraf/internal/models"
	"github.com/fedorten/resursGraf/internal/prices"
)

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("resource")

	q, err := s.prices.Latest(r.Context(), key)
	switch {
	case errors.Is(err, prices.ErrUnknownResource):
		writeError(w, http.StatusNotFound, "Resource not found")
		return
	case errors.Is(err, prices.ErrNoData):
		writeError(w, http.StatusNotFound, "No data")
		return
	case err != nil:
		s.log.WithField("resource", key).Errorf("latest price: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch price")
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// handleHistory serves both /api/history/{resource} and
// /api/history/{resource}/{period}; a missing period means all.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("resource")
	period := r.PathValue("period")
	if period == "" {
		period = models.PeriodAll
	}

	points, err := s.prices.HistoryForPeriod(r.Context(), key, period)
	switch {
	case errors.Is(err, prices.ErrUnknownResource):
		writeError(w, http.StatusNotFound, "Resource not found")
		return
	case err != nil:
		s.log.WithField("resource", key).Errorf("history: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch history")
		return
	}
	if points == nil {
		points = []models.PricePoint{}
	}
	writeJSON(w, http.StatusOK, points)
}
