package registry

import (
	"fmt"
	"strings"

	"feed_aggregator/internal/config"
	"feed_aggregator/internal/models"

	"github.com/samber/lo"
)

// Registry — неизменяемый упорядоченный список источников.
// Порядок регистрации используется при разрешении равенства дат в ленте.
type Registry struct {
	sources []models.FeedSource
}

// New проверяет URL источников и фиксирует их порядок.
// Повторно указанный URL пропускается: остаётся первая регистрация,
// иначе лента загружалась бы дважды, а её записи дублировались.
func New(sources ...models.FeedSource) (*Registry, error) {
	for _, s := range sources {
		if err := config.ValidateURL(s.URL); err != nil {
			return nil, fmt.Errorf("register source: %w", err)
		}
	}
	list := lo.UniqBy(sources, func(s models.FeedSource) string {
		return strings.TrimSpace(s.URL)
	})
	return &Registry{sources: list}, nil
}

// FromConfig строит реестр из секции sources конфигурации.
func FromConfig(cfg *config.Config) (*Registry, error) {
	return New(ConfigSources(cfg)...)
}

// ConfigSources переводит секцию sources в FeedSource, сохраняя порядок.
func ConfigSources(cfg *config.Config) []models.FeedSource {
	sources := make([]models.FeedSource, 0, len(cfg.Sources))
	for _, s := range cfg.Sources {
		sources = append(sources, models.FeedSource{URL: s.URL, DisplayName: s.Name})
	}
	return sources
}

// Sources возвращает копию списка в порядке регистрации.
func (r *Registry) Sources() []models.FeedSource {
	out := make([]models.FeedSource, len(r.sources))
	copy(out, r.sources)
	return out
}

func (r *Registry) Len() int {
	return len(r.sources)
}
