package normalizer

import (
	"net/url"
	"strings"
	"time"

	"feed_aggregator/internal/logger"
	"feed_aggregator/internal/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"
)

var itemsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "feed_items_dropped_total",
	Help: "Feed items dropped for missing id or link",
}, []string{"source"})

// Форматы дат, встречающиеся в RSS и Atom.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339Nano,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalize переводит элементы успешно загруженной ленты в CanonicalItem.
// Элементы без id или link отбрасываются и возвращаются как ItemShapeError,
// остальные элементы ленты обрабатываются как обычно.
func Normalize(result models.RawFeedResult) ([]models.CanonicalItem, []*models.ItemShapeError) {
	if result.Failed() {
		return nil, nil
	}

	log := logger.Log.WithField("url", result.Source.URL)
	sourceTitle := SourceTitle(result.Source, result.FeedTitle)

	items := make([]models.CanonicalItem, 0, len(result.Items))
	var dropped []*models.ItemShapeError

	for i, it := range result.Items {
		if it == nil {
			continue
		}
		id := strings.TrimSpace(it.GUID)
		link := itemLink(it.Link, it.Links)

		var missing string
		switch {
		case id == "":
			missing = "id"
		case link == "":
			missing = "link"
		}
		if missing != "" {
			shapeErr := &models.ItemShapeError{Source: result.Source.URL, Index: i, Field: missing}
			dropped = append(dropped, shapeErr)
			itemsDropped.WithLabelValues(result.Source.URL).Inc()
			log.WithField("title", it.Title).Warnf("Dropping item: %v", shapeErr)
			continue
		}

		items = append(items, models.CanonicalItem{
			ID:          id,
			Title:       strings.TrimSpace(it.Title),
			Link:        link,
			PublishedAt: publishedAt(it.PublishedParsed, it.Published, it.UpdatedParsed, it.Updated),
			Summary:     summary(it.Description, it.Content),
			Categories:  categories(it.Categories),
			SourceTitle: sourceTitle,
			SourceLink:  result.Source.URL,
		})
	}

	return items, dropped
}

// SourceTitle выбирает имя источника: из реестра, затем заголовок ленты, затем хост.
func SourceTitle(src models.FeedSource, feedTitle string) string {
	if name := strings.TrimSpace(src.DisplayName); name != "" {
		return name
	}
	if title := strings.TrimSpace(feedTitle); title != "" {
		return title
	}
	if u, err := url.Parse(src.URL); err == nil && u.Host != "" {
		return strings.TrimPrefix(u.Host, "www.")
	}
	return src.URL
}

func itemLink(link string, links []string) string {
	if l := strings.TrimSpace(link); l != "" {
		return l
	}
	for _, l := range links {
		if l = strings.TrimSpace(l); l != "" {
			return l
		}
	}
	return ""
}

func publishedAt(published *time.Time, publishedRaw string, updated *time.Time, updatedRaw string) *time.Time {
	if t := usable(published); t != nil {
		return t
	}
	if t := ParseDate(publishedRaw); t != nil {
		return t
	}
	if t := usable(updated); t != nil {
		return t
	}
	return ParseDate(updatedRaw)
}

func usable(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

// ParseDate пробует известные форматы; nil означает, что дата неизвестна.
func ParseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return usable(&t)
		}
	}
	return nil
}

// summary извлекает текст из HTML описания (или содержимого) и схлопывает пробелы.
func summary(description, content string) string {
	src := description
	if strings.TrimSpace(src) == "" {
		src = content
	}
	if strings.TrimSpace(src) == "" {
		return ""
	}

	text := src
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(src)); err == nil {
		text = doc.Text()
	}
	return strings.Join(strings.Fields(text), " ")
}

func categories(raw []string) []string {
	cleaned := lo.FilterMap(raw, func(c string, _ int) (string, bool) {
		c = strings.TrimSpace(c)
		return c, c != ""
	})
	if len(cleaned) == 0 {
		return nil
	}
	return lo.Uniq(cleaned)
}
