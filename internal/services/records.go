package services

import (
	"context"
	"strings"

	"safeshe-backend-go/internal/models"
	"safeshe-backend-go/internal/store"
)

const (
	DefaultIncidentLimit = 50
	MaxIncidentLimit     = 500
)

type GuardianService struct {
	store store.Store
}

func NewGuardianService(s store.Store) *GuardianService {
	return &GuardianService{store: s}
}

func (g *GuardianService) Create(ctx context.Context, guardian models.Guardian) (string, error) {
	guardian.UserID = strings.TrimSpace(guardian.UserID)
	guardian.Name = strings.TrimSpace(guardian.Name)
	if err := validateInput(guardian); err != nil {
		return "", err
	}
	doc, err := store.ToDocument(guardian)
	if err != nil {
		return "", WrapError(err, "encode guardian")
	}
	id, err := g.store.Insert(ctx, models.CollectionGuardian, doc)
	if err != nil {
		return "", WrapError(err, "store guardian")
	}
	return id, nil
}

func (g *GuardianService) List(ctx context.Context, userID string) ([]store.Document, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrBadRequest("user_id is required")
	}
	items, err := g.store.Query(ctx, models.CollectionGuardian, store.Filter{"user_id": userID}, 0)
	if err != nil {
		return nil, WrapError(err, "query guardians")
	}
	return items, nil
}

type IncidentService struct {
	store store.Store
}

func NewIncidentService(s store.Store) *IncidentService {
	return &IncidentService{store: s}
}

func (i *IncidentService) Create(ctx context.Context, incident models.Incident) (string, error) {
	incident.UserID = strings.TrimSpace(incident.UserID)
	incident.Type = strings.TrimSpace(incident.Type)
	if incident.MediaURLs == nil {
		incident.MediaURLs = []string{}
	}
	if err := validateInput(incident); err != nil {
		return "", err
	}
	doc, err := store.ToDocument(incident)
	if err != nil {
		return "", WrapError(err, "encode incident")
	}
	id, err := i.store.Insert(ctx, models.CollectionIncident, doc)
	if err != nil {
		return "", WrapError(err, "store incident")
	}
	return id, nil
}

// List returns incidents newest first, optionally for one user. A limit
// <= 0 falls back to DefaultIncidentLimit.
func (i *IncidentService) List(ctx context.Context, userID string, limit int) ([]store.Document, error) {
	if limit <= 0 {
		limit = DefaultIncidentLimit
	}
	if limit > MaxIncidentLimit {
		limit = MaxIncidentLimit
	}
	var filter store.Filter
	if userID = strings.TrimSpace(userID); userID != "" {
		filter = store.Filter{"user_id": userID}
	}
	items, err := i.store.Query(ctx, models.CollectionIncident, filter, limit)
	if err != nil {
		return nil, WrapError(err, "query incidents")
	}
	return items, nil
}
