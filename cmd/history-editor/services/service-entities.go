package services

import (
	"context"
)

// ListEntities returns every entity id known to the recorder. The listing is
// cached for a short interval; it backs UI pickers and does not need to be
// perfectly fresh, unlike the per-request entity resolution, which never
// caches.
func (s *Service) ListEntities(ctx context.Context) (entities []string, err error) {
	defer func() { observe("list_entities", err) }()

	if cached, found := s.entityList.Get(entityListCacheKey); found {
		return cached.([]string), nil
	}

	err = s.gate.Run(ctx, func() error {
		var gateErr error
		entities, gateErr = s.repo.ListEntities(ctx)
		return gateErr
	})
	if err != nil {
		return nil, err
	}

	s.entityList.SetDefault(entityListCacheKey, entities)
	return entities, nil
}
