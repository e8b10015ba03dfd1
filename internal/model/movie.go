package model

// Movie describes a single catalog entry. The identity is immutable once
// assigned; every other field may be changed through the admin catalog
// operations. JSON tags follow the wire format of the booking API so the
// same struct serves both the transport layer and the upstream client.
//
// Fields:
//  ID              – unique identifier (local counter or server-assigned).
//  Title           – display title.
//  Genre           – free-form genre label.
//  Rating          – numeric rating on a 0–10 scale.
//  DurationMinutes – running time in minutes.
//  Description     – synopsis text.
//  ReleaseDate     – release date as "YYYY-MM-DD"; optional.
//  Language        – spoken language; optional.
//  PosterURL       – poster image reference; optional.
type Movie struct {
	ID              int64   `json:"id"`
	Title           string  `json:"title"`
	Genre           string  `json:"genre,omitempty"`
	Rating          float64 `json:"rating,omitempty"`
	DurationMinutes int     `json:"durationMinutes,omitempty"`
	Description     string  `json:"description,omitempty"`
	ReleaseDate     string  `json:"releaseDate,omitempty"`
	Language        string  `json:"language,omitempty"`
	PosterURL       string  `json:"posterUrl,omitempty"`
}

// MoviePatch carries a partial movie update. Only non-nil fields overwrite
// the existing record; the ID can never be patched.
type MoviePatch struct {
	Title           *string  `json:"title,omitempty"`
	Genre           *string  `json:"genre,omitempty"`
	Rating          *float64 `json:"rating,omitempty"`
	DurationMinutes *int     `json:"durationMinutes,omitempty"`
	Description     *string  `json:"description,omitempty"`
	ReleaseDate     *string  `json:"releaseDate,omitempty"`
	Language        *string  `json:"language,omitempty"`
	PosterURL       *string  `json:"posterUrl,omitempty"`
}

// Apply merges the patch into m, field by field.
func (p MoviePatch) Apply(m *Movie) {
	if p.Title != nil {
		m.Title = *p.Title
	}
	if p.Genre != nil {
		m.Genre = *p.Genre
	}
	if p.Rating != nil {
		m.Rating = *p.Rating
	}
	if p.DurationMinutes != nil {
		m.DurationMinutes = *p.DurationMinutes
	}
	if p.Description != nil {
		m.Description = *p.Description
	}
	if p.ReleaseDate != nil {
		m.ReleaseDate = *p.ReleaseDate
	}
	if p.Language != nil {
		m.Language = *p.Language
	}
	if p.PosterURL != nil {
		m.PosterURL = *p.PosterURL
	}
}
