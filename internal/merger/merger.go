package merger

import (
	"slices"
	"strings"

	"feed_aggregator/internal/models"

	"github.com/samber/lo"
)

type entry struct {
	item   models.CanonicalItem
	source int
	pos    int
}

// Merge объединяет последовательности, переданные в порядке регистрации источников,
// и сортирует по убыванию даты публикации. Записи без даты идут в конце.
// При равных (или отсутствующих) датах порядок задают номер источника и позиция в ленте,
// поэтому результат не зависит от того, в каком порядке завершились загрузки.
func Merge(sets [][]models.CanonicalItem) []models.CanonicalItem {
	total := 0
	for _, set := range sets {
		total += len(set)
	}

	entries := make([]entry, 0, total)
	for s, set := range sets {
		for p, item := range set {
			entries = append(entries, entry{item: item, source: s, pos: p})
		}
	}

	slices.SortStableFunc(entries, compare)

	return lo.Map(entries, func(e entry, _ int) models.CanonicalItem {
		return e.item
	})
}

func compare(a, b entry) int {
	ad, bd := a.item.PublishedAt, b.item.PublishedAt
	switch {
	case ad != nil && bd == nil:
		return -1
	case ad == nil && bd != nil:
		return 1
	case ad != nil && bd != nil:
		if c := bd.Compare(*ad); c != 0 {
			return c
		}
	}
	if a.source != b.source {
		return a.source - b.source
	}
	return a.pos - b.pos
}

// IdentityKey — ключ сходства записей из разных источников: нормализованная ссылка и заголовок.
func IdentityKey(item models.CanonicalItem) string {
	link := strings.ToLower(strings.TrimSpace(item.Link))
	link = strings.TrimPrefix(link, "https://")
	link = strings.TrimPrefix(link, "http://")
	link = strings.TrimPrefix(link, "www.")
	if i := strings.IndexAny(link, "?#"); i >= 0 {
		link = link[:i]
	}
	link = strings.TrimSuffix(link, "/")

	title := strings.Join(strings.Fields(strings.ToLower(item.Title)), " ")
	return link + "|" + title
}

// Dedupe оставляет первую запись для каждого IdentityKey, сохраняя порядок.
// По умолчанию не применяется: одна история из нескольких лент показывается несколько раз.
func Dedupe(items []models.CanonicalItem) []models.CanonicalItem {
	return lo.UniqBy(items, IdentityKey)
}
