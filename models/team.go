package models

import "time"

type Team struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Tag       *string   `json:"tag,omitempty" db:"tag"`
	LogoURL   *string   `json:"logo_url,omitempty" db:"logo_url"`
	Wins      int       `json:"wins" db:"wins"`
	Losses    int       `json:"losses" db:"losses"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
