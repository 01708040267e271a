package services

import (
	"context"
	"sort"
	"time"

	"edition-publisher/models"
	"edition-publisher/repositories"
)

// Series answers questions about the editions of one document. Every call reads storage
// again; two calls may observe different states.
type Series struct {
	editions repositories.EditionRepository
}

func NewSeries(editions repositories.EditionRepository) *Series {
	return &Series{editions: editions}
}

// All returns the editions of a document ordered by version number ascending.
func (s *Series) All(ctx context.Context, documentID string) ([]models.Edition, error) {
	return s.editions.ListSeries(ctx, documentID)
}

func (s *Series) OrderedByVersionDesc(ctx context.Context, documentID string) ([]models.Edition, error) {
	all, err := s.All(ctx, documentID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].VersionNumber > all[j].VersionNumber })
	return all, nil
}

func (s *Series) filter(ctx context.Context, documentID string, keep func(models.Edition) bool) ([]models.Edition, error) {
	all, err := s.All(ctx, documentID)
	if err != nil {
		return nil, err
	}
	var out []models.Edition
	for _, e := range all {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

// SiblingsOf returns the other editions of e's series.
func (s *Series) SiblingsOf(ctx context.Context, e *models.Edition) ([]models.Edition, error) {
	return s.filter(ctx, e.DocumentID, func(o models.Edition) bool { return o.VersionNumber != e.VersionNumber })
}

func (s *Series) PreviousSiblings(ctx context.Context, e *models.Edition) ([]models.Edition, error) {
	return s.filter(ctx, e.DocumentID, func(o models.Edition) bool { return o.VersionNumber < e.VersionNumber })
}

func (s *Series) SubsequentSiblings(ctx context.Context, e *models.Edition) ([]models.Edition, error) {
	return s.filter(ctx, e.DocumentID, func(o models.Edition) bool { return o.VersionNumber > e.VersionNumber })
}

// InProgressSiblings returns later editions that are still being worked on.
func (s *Series) InProgressSiblings(ctx context.Context, e *models.Edition) ([]models.Edition, error) {
	return s.filter(ctx, e.DocumentID, func(o models.Edition) bool {
		return o.VersionNumber > e.VersionNumber && o.InProgress()
	})
}

// LatestPublished is the highest published version, the one readers should see. Nil when
// nothing is published.
func (s *Series) LatestPublished(ctx context.Context, documentID string) (*models.Edition, error) {
	published, err := s.publishedDesc(ctx, documentID)
	if err != nil || len(published) == 0 {
		return nil, err
	}
	return &published[0], nil
}

func (s *Series) publishedDesc(ctx context.Context, documentID string) ([]models.Edition, error) {
	all, err := s.OrderedByVersionDesc(ctx, documentID)
	if err != nil {
		return nil, err
	}
	var out []models.Edition
	for _, e := range all {
		if e.IsPublished() {
			out = append(out, e)
		}
	}
	return out, nil
}

// FirstPublishedOrArchived is the lowest version that ever left the workflow.
func (s *Series) FirstPublishedOrArchived(ctx context.Context, documentID string) (*models.Edition, error) {
	all, err := s.All(ctx, documentID)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].State.Terminal() {
			return &all[i], nil
		}
	}
	return nil, nil
}

func (s *Series) LatestEdition(ctx context.Context, documentID string) (*models.Edition, error) {
	all, err := s.All(ctx, documentID)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return &all[len(all)-1], nil
}

func (s *Series) NextVersionNumber(ctx context.Context, documentID string) (int, error) {
	max, err := s.editions.MaxVersion(ctx, documentID)
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

// CanCreateNewEdition reports whether e may be cloned: no later edition is in progress and
// e is not waiting for a future publication time.
func (s *Series) CanCreateNewEdition(ctx context.Context, e *models.Edition, now time.Time) (bool, error) {
	if e.ScheduledForFuture(now) {
		return false, nil
	}
	inProgress, err := s.InProgressSiblings(ctx, e)
	if err != nil {
		return false, err
	}
	return len(inProgress) == 0, nil
}
