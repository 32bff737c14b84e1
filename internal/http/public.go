package httpapi

import (
	"net/http"

	"safeshe-backend-go/internal/models"
	"safeshe-backend-go/internal/services"
)

type SchemaModel struct {
	Name string `json:"name"`
}

type SchemaResponse struct {
	Models []SchemaModel `json:"models"`
}

func (s *Server) Root(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"name": "SafeShe API", "status": "ok"})
}

func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, s.Health.Check(r.Context()))
}

func (s *Server) Schema(w http.ResponseWriter, r *http.Request) {
	items := make([]SchemaModel, 0, len(models.Collections))
	for _, name := range models.Collections {
		items = append(items, SchemaModel{Name: name})
	}
	WriteJSON(w, http.StatusOK, SchemaResponse{Models: items})
}

type ProvidersResponse struct {
	Providers []string `json:"providers"`
}

func (s *Server) AuthProviders(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, ProvidersResponse{Providers: services.Providers})
}

func (s *Server) MockLogin(w http.ResponseWriter, r *http.Request) {
	var req services.MockLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	session, err := s.Auth.MockLogin(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, session)
}
