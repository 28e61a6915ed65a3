package models

import (
	"time"

	"github.com/mmcdole/gofeed"
)

// FeedSource описывает одну ленту из реестра источников.
// DisplayName может быть пустым.
type FeedSource struct {
	URL         string `json:"url"`
	DisplayName string `json:"name,omitempty"`
}

// ProviderItem — элемент ленты в том виде, в каком его вернул декодер.
type ProviderItem = *gofeed.Item

// RawFeedResult — результат загрузки одного источника за один прогон агрегации.
// Если Err не nil, Items всегда пуст.
type RawFeedResult struct {
	Source    FeedSource
	Index     int
	FeedTitle string
	Items     []ProviderItem
	FetchedAt time.Time
	Err       error
}

// Failed сообщает, завершилась ли загрузка источника ошибкой.
func (r RawFeedResult) Failed() bool {
	return r.Err != nil
}
