package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"review_monitor/internal/classify"
	"review_monitor/internal/domain"
	"review_monitor/internal/extract"
)

var errUnchanged = errors.New("table unchanged")

type RepairService struct {
	norm  *extract.Normalizer
	cls   *classify.Classifier
	store ReviewStore
	cache domain.Cache
}

func NewRepairService(n *extract.Normalizer, c *classify.Classifier, st ReviewStore, cache domain.Cache) *RepairService {
	return &RepairService{norm: n, cls: c, store: st, cache: cache}
}

// Run rewrites the table with malformed rows fixed. Nothing is saved when
// the pass finds nothing to change.
func (s *RepairService) Run(ctx context.Context) (extract.RepairReport, error) {
	var rep extract.RepairReport
	err := s.store.Mutate(ctx, func(all []domain.Review) ([]domain.Review, error) {
		fixed, r := s.norm.Repair(all, s.cls.IsValidCategory)
		rep = r
		if !r.Changed() {
			return nil, errUnchanged
		}
		return fixed, nil
	})
	if err != nil && !errors.Is(err, errUnchanged) {
		return rep, fmt.Errorf("repair: %w", err)
	}
	if rep.Changed() {
		invalidateViews(ctx, s.cache)
	}
	log.Info().
		Int("rows", rep.Rows).
		Int("ratings_rescaled", rep.RatingsRescaled).
		Int("ratings_dropped", rep.RatingsDropped).
		Int("ratings_extracted", rep.RatingsExtracted).
		Int("dates_extracted", rep.DatesExtracted).
		Int("dates_unresolved", rep.DatesUnresolved).
		Int("hashes_assigned", rep.HashesAssigned).
		Int("categories_replaced", rep.CategoriesReplaced).
		Msg("repair finished")
	return rep, nil
}
