package httpapi

import (
	"net/http"

	"safeshe-backend-go/internal/models"
	"safeshe-backend-go/internal/store"
)

type LatestResponse struct {
	Latest store.Document `json:"latest"`
}

func (s *Server) LocationUpdate(w http.ResponseWriter, r *http.Request) {
	var point models.Trackpoint
	if err := decodeJSON(r, &point); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	id, err := s.Tracker.Submit(r.Context(), point)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"trackpoint_id": id})
}

func (s *Server) LocationLast(w http.ResponseWriter, r *http.Request) {
	latest, err := s.Tracker.Latest(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, LatestResponse{Latest: latest})
}
