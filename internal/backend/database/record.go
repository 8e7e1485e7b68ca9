package database

import "time"

// Record is a stored condolence card
type Record struct {
	ID                 string     `json:"id"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	FullName           string     `json:"full_name"`
	DateOfBirth        *time.Time `json:"date_of_birth,omitempty"`
	DateOfDeath        *time.Time `json:"date_of_death,omitempty"`
	Age                *int       `json:"age,omitempty"`
	PlaceOfDeath       string     `json:"place_of_death,omitempty"`
	OriginalPhotoURL   string     `json:"original_photo_url"`
	CondolenceImageURL string     `json:"condolence_image_url"`
	CustomMessage      string     `json:"custom_message,omitempty"`
	IsPublic           bool       `json:"is_public"`
}

// NewRecord carries the fields of a record that is about to be inserted
type NewRecord struct {
	FullName           string
	DateOfBirth        *time.Time
	DateOfDeath        *time.Time
	Age                *int
	PlaceOfDeath       string
	OriginalPhotoURL   string
	CondolenceImageURL string
	CustomMessage      string
	IsPublic           bool
}

func (n NewRecord) toRecord(id string, now time.Time) *Record {
	return &Record{
		ID:                 id,
		CreatedAt:          now,
		UpdatedAt:          now,
		FullName:           n.FullName,
		DateOfBirth:        n.DateOfBirth,
		DateOfDeath:        n.DateOfDeath,
		Age:                n.Age,
		PlaceOfDeath:       n.PlaceOfDeath,
		OriginalPhotoURL:   n.OriginalPhotoURL,
		CondolenceImageURL: n.CondolenceImageURL,
		CustomMessage:      n.CustomMessage,
		IsPublic:           n.IsPublic,
	}
}
