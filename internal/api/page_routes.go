package api

import (
	"net/http"

	"github.com/fedorten/resursGraf/internal/web"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, web.PageIndex, web.IndexData{Resources: s.catalog.All()})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	res, ok := s.catalog.Get(r.PathValue("resource"))
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	s.render(w, http.StatusOK, web.PageChart, web.ChartData{
		Resource:  res,
		Resources: s.catalog.All(),
		Periods:   web.Periods(),
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusNotFound, web.PageNotFound, nil)
}

func (s *Server) render(w http.ResponseWriter, status int, page string, data any) {
	if err := s.pages.Render(w, status, page, data); err != nil {
		s.log.WithField("page", page).Errorf("render: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
