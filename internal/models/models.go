package models

import "time"

// Collection names used by the document store.
const (
	CollectionUser       = "user"
	CollectionGuardian   = "guardian"
	CollectionTrackpoint = "trackpoint"
	CollectionIncident   = "incident"
	CollectionAreaAlert  = "areaalert"
)

var Collections = []string{
	CollectionUser,
	CollectionGuardian,
	CollectionTrackpoint,
	CollectionIncident,
	CollectionAreaAlert,
}

type User struct {
	Name       *string `json:"name,omitempty"`
	Email      *string `json:"email,omitempty" validate:"omitempty,email"`
	Provider   *string `json:"provider,omitempty"`
	ProviderID *string `json:"provider_id,omitempty"`
	PhotoURL   *string `json:"photo_url,omitempty" validate:"omitempty,url"`
	IsActive   bool    `json:"is_active"`
}

type Guardian struct {
	UserID       string  `json:"user_id" validate:"required"`
	Name         string  `json:"name" validate:"required"`
	Phone        *string `json:"phone,omitempty"`
	Email        *string `json:"email,omitempty" validate:"omitempty,email"`
	Relationship *string `json:"relationship,omitempty"`
}

// Trackpoint is a single GPS sample. ServerTS is assigned by the tracker
// and is ignored on input.
type Trackpoint struct {
	UserID   string     `json:"user_id" validate:"required"`
	Lat      *float64   `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng      *float64   `json:"lng" validate:"required,gte=-180,lte=180"`
	Accuracy *float64   `json:"accuracy,omitempty" validate:"omitempty,gte=0"`
	Speed    *float64   `json:"speed,omitempty" validate:"omitempty,gte=0"`
	Heading  *float64   `json:"heading,omitempty" validate:"omitempty,gte=0,lte=360"`
	Battery  *float64   `json:"battery,omitempty" validate:"omitempty,gte=0,lte=100"`
	TS       *Timestamp `json:"ts,omitempty"`
	ServerTS *time.Time `json:"server_ts,omitempty" validate:"-"`
}

type Incident struct {
	UserID      string   `json:"user_id" validate:"required"`
	Type        string   `json:"type" validate:"required"`
	Description *string  `json:"description,omitempty"`
	Lat         *float64 `json:"lat,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Lng         *float64 `json:"lng,omitempty" validate:"omitempty,gte=-180,lte=180"`
	MediaURLs   []string `json:"media_urls" validate:"dive,url"`
	Severity    *int     `json:"severity,omitempty" validate:"omitempty,gte=1,lte=5"`
}

const (
	AlertLevelInfo    = "info"
	AlertLevelCaution = "caution"
	AlertLevelDanger  = "danger"
)

type AreaAlert struct {
	Title   string  `json:"title" validate:"required"`
	Message string  `json:"message" validate:"required"`
	Lat     float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng     float64 `json:"lng" validate:"gte=-180,lte=180"`
	RadiusM int     `json:"radius_m" validate:"gte=50,lte=20000"`
	Level   string  `json:"level" validate:"oneof=info caution danger"`
}

func Float(v float64) *float64 { return &v }

func String(v string) *string { return &v }
