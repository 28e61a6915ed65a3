package models

import "time"

// SourceReport — итог обработки одного источника в рамках прогона.
type SourceReport struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Items   int    `json:"items"`
	Dropped int    `json:"dropped,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Timeline — упорядоченная выдача одного прогона агрегации.
// Каждый прогон строит новый Timeline, существующий никогда не изменяется.
type Timeline struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Items       []CanonicalItem `json:"items"`
	Sources     []SourceReport  `json:"sources"`
}

// Len возвращает количество записей.
func (t Timeline) Len() int {
	return len(t.Items)
}

// FailedSources возвращает количество источников, завершившихся ошибкой.
func (t Timeline) FailedSources() int {
	n := 0
	for _, s := range t.Sources {
		if s.Error != "" {
			n++
		}
	}
	return n
}
