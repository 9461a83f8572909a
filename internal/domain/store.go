package domain

import (
	"errors"
	"time"
)

var (
	ErrStoreNotFound = errors.New("store not found")
	ErrNotOwner      = errors.New("you must own a store in order to edit it")
)

const PointType = "Point"

// Location is a GeoJSON-style point. Coordinates are [lng, lat].
type Location struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
	Address     string    `json:"address"`
}

func (l Location) Lng() float64 {
	if len(l.Coordinates) != 2 {
		return 0
	}
	return l.Coordinates[0]
}

func (l Location) Lat() float64 {
	if len(l.Coordinates) != 2 {
		return 0
	}
	return l.Coordinates[1]
}

type Store struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	Created     time.Time `json:"created"`
	Location    Location  `json:"location"`
	Photo       *string   `json:"photo"`
	AuthorID    string    `json:"author_id"`

	// Populated only by lookups that ask for them.
	Author  *User     `json:"author,omitempty"`
	Reviews []*Review `json:"reviews,omitempty"`
}

// TagCount is one row of the tag cloud.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// RankedStore is a store with its aggregate review rating.
type RankedStore struct {
	Store         *Store  `json:"store"`
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int     `json:"review_count"`
}

// ConfirmOwner returns ErrNotOwner unless userID authored the store.
func ConfirmOwner(s *Store, userID string) error {
	if s == nil || userID == "" || s.AuthorID != userID {
		return ErrNotOwner
	}
	return nil
}
