package domain

import "time"

type Review struct {
	ID       string    `json:"id"`
	Created  time.Time `json:"created"`
	AuthorID string    `json:"author_id"`
	StoreID  string    `json:"store_id"`
	Text     string    `json:"text"`
	Rating   int       `json:"rating"`

	Author *User `json:"author,omitempty"`
}
