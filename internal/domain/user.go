package domain

import "time"

// User vincula una identidad externa del transporte con un handle anónimo estable.
type User struct {
	AnonymousID  int64     `json:"anonymous_id"`
	ExternalID   string    `json:"-"`
	DisplayLabel string    `json:"display_label,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
