package httpapi

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"safeshe-backend-go/internal/models"
	"safeshe-backend-go/internal/services"
	"safeshe-backend-go/internal/store"
)

type ItemsResponse struct {
	Items []store.Document `json:"items"`
}

type AlertsResponse struct {
	Items []models.AreaAlert `json:"items"`
}

func (s *Server) CreateGuardian(w http.ResponseWriter, r *http.Request) {
	var req models.Guardian
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	id, err := s.Guardians.Create(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"guardian_id": id})
}

func (s *Server) ListGuardians(w http.ResponseWriter, r *http.Request) {
	items, err := s.Guardians.List(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, ItemsResponse{Items: items})
}

func (s *Server) CreateIncident(w http.ResponseWriter, r *http.Request) {
	var req models.Incident
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	id, err := s.Incidents.Create(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"incident_id": id})
}

func (s *Server) ListIncidents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := parseInt(query.Get("limit"), services.DefaultIncidentLimit)
	items, err := s.Incidents.List(r.Context(), query.Get("user_id"), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, ItemsResponse{Items: items})
}

func (s *Server) NearbyAlerts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	lat, latErr := parseFloat(query.Get("lat"))
	lng, lngErr := parseFloat(query.Get("lng"))
	if latErr != nil || lngErr != nil {
		WriteError(w, http.StatusBadRequest, "lat and lng are required numbers")
		return
	}
	items, err := services.NearbyAlerts(lat, lng)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, AlertsResponse{Items: items})
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	if value < 1 {
		return fallback
	}
	return value
}

func parseFloat(raw string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, strconv.ErrRange
	}
	return value, nil
}
