package models

import "time"

// CanonicalItem — нормализованная запись ленты, не зависящая от формата источника.
// PublishedAt равен nil, если дату публикации определить не удалось.
type CanonicalItem struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Link        string     `json:"link"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	Categories  []string   `json:"categories,omitempty"`
	SourceTitle string     `json:"source_title"`
	SourceLink  string     `json:"source_link"`
}

// HasDate сообщает, известна ли дата публикации.
func (c CanonicalItem) HasDate() bool {
	return c.PublishedAt != nil
}
