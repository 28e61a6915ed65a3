// Package insight подбирает к записям ленты карточки «связанной аналитики».
// Аннотации не меняют ни порядок записей, ни сами записи.
package insight

import (
	"strings"

	"feed_aggregator/internal/config"
	"feed_aggregator/internal/models"

	"github.com/samber/lo"
)

const defaultLabel = "Related to your preferences"

// Annotation — карточка, показываемая рядом с записью.
type Annotation struct {
	Title    string   `json:"title"`
	Label    string   `json:"label"`
	Entities []string `json:"entities,omitempty"`
	Score    int      `json:"score"`
}

// Annotator возвращает не более одной аннотации на запись.
type Annotator interface {
	Annotate(item models.CanonicalItem) *Annotation
}

// AnnotatedItem — запись ленты и её аннотация, если она есть.
type AnnotatedItem struct {
	models.CanonicalItem
	Insight *Annotation `json:"insight,omitempty"`
}

type rule struct {
	title    string
	label    string
	keywords []string
	entities []string
}

// KeywordAnnotator оценивает каждую карточку из конфигурации по числу ключевых слов,
// найденных в заголовке, описании и категориях записи. Побеждает наибольший счёт,
// при равенстве — карточка, указанная раньше; без совпадений аннотации нет.
type KeywordAnnotator struct {
	rules []rule
}

func NewKeywordAnnotator(insights []config.Insight) *KeywordAnnotator {
	rules := make([]rule, 0, len(insights))
	for _, in := range insights {
		keywords := lo.Uniq(lo.FilterMap(in.Keywords, func(k string, _ int) (string, bool) {
			k = strings.ToLower(strings.TrimSpace(k))
			return k, k != ""
		}))
		if len(keywords) == 0 {
			continue
		}
		label := in.Label
		if label == "" {
			label = defaultLabel
		}
		rules = append(rules, rule{
			title:    in.Title,
			label:    label,
			keywords: keywords,
			entities: in.Entities,
		})
	}
	return &KeywordAnnotator{rules: rules}
}

func (k *KeywordAnnotator) Annotate(item models.CanonicalItem) *Annotation {
	if len(k.rules) == 0 {
		return nil
	}
	text := strings.ToLower(strings.Join(append([]string{item.Title, item.Summary}, item.Categories...), " "))

	best, bestScore := -1, 0
	for i, r := range k.rules {
		score := lo.CountBy(r.keywords, func(kw string) bool {
			return strings.Contains(text, kw)
		})
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return nil
	}

	r := k.rules[best]
	return &Annotation{
		Title:    r.title,
		Label:    r.label,
		Entities: append([]string(nil), r.entities...),
		Score:    bestScore,
	}
}

// Attach аннотирует каждую запись ленты, сохраняя порядок.
// С nil-аннотатором все записи остаются без карточек.
func Attach(timeline models.Timeline, a Annotator) []AnnotatedItem {
	out := make([]AnnotatedItem, len(timeline.Items))
	for i, item := range timeline.Items {
		out[i].CanonicalItem = item
		if a != nil {
			out[i].Insight = a.Annotate(item)
		}
	}
	return out
}
