package services

import (
	"context"

	"edition-publisher/models"
	"edition-publisher/workflow"
)

type PublicationService interface {
	Publish(ctx context.Context, id uint, actor models.Actor) (*models.Edition, error)
	EmergencyPublish(ctx context.Context, id uint, actor models.Actor) (*models.Edition, error)
	PublishDue(ctx context.Context) ([]models.Edition, error)
	Metadata(ctx context.Context, documentID string) (*models.PublicationMetadata, error)
}

type publicationService struct {
	*engine
	tags TagService
}

func (s *publicationService) Publish(ctx context.Context, id uint, actor models.Actor) (*models.Edition, error) {
	return s.transition(ctx, id, workflow.ActionPublish, nil, actor)
}

func (s *publicationService) EmergencyPublish(ctx context.Context, id uint, actor models.Actor) (*models.Edition, error) {
	return s.transition(ctx, id, workflow.ActionEmergencyPublish, nil, actor)
}

// PublishDue publishes, as the system actor, every scheduled edition whose time has come.
// Editions that fail are logged and skipped.
func (s *publicationService) PublishDue(ctx context.Context) ([]models.Edition, error) {
	due, err := s.repos.Editions.ListDueScheduled(ctx, s.now())
	if err != nil {
		return nil, err
	}

	var published []models.Edition
	for _, e := range due {
		if err := ctx.Err(); err != nil {
			return published, err
		}
		out, err := s.transition(ctx, e.ID, workflow.ActionPublish, nil, models.SystemActor)
		if err != nil {
			s.log.Error().
				Err(err).
				Str("component", "publication").
				Str("document_id", e.DocumentID).
				Int("version", e.VersionNumber).
				Msg("scheduled publish failed")
			continue
		}
		published = append(published, *out)
	}
	return published, nil
}

// afterPublish archives every lower published version of the series and recounts tag
// usage. The publish itself is already stored; failures here leave two published versions
// until the next publish, and readers take the highest one.
func (s *publicationService) afterPublish(ctx context.Context, e *models.Edition) {
	previous, err := s.series.PreviousSiblings(ctx, e)
	if err != nil {
		s.log.Error().Err(err).Str("component", "publication").Str("document_id", e.DocumentID).Msg("supersession lookup failed")
		return
	}

	superseded := 0
	for i := range previous {
		old := &previous[i]
		if !old.IsPublished() {
			continue
		}
		old.State = models.StateArchived
		old.Archiver = models.SystemActor.Ref()
		if err := s.repos.Editions.ForceState(ctx, old); err != nil {
			s.log.Error().
				Err(err).
				Str("component", "publication").
				Str("document_id", old.DocumentID).
				Int("version", old.VersionNumber).
				Msg("could not archive superseded edition")
			continue
		}
		superseded++
	}

	if superseded > 0 {
		s.metrics.Superseded(superseded)
		s.log.Info().
			Str("component", "publication").
			Str("document_id", e.DocumentID).
			Int("version", e.VersionNumber).
			Int("superseded", superseded).
			Msg("previous editions archived")
	}

	if err := s.tags.RecountUsage(ctx); err != nil {
		s.log.Warn().Err(err).Str("component", "publication").Msg("tag usage recount failed")
	}
}

// Metadata derives the series-level publication values: the published edition, the latest
// published major update with its change note, and the public update time.
func (s *publicationService) Metadata(ctx context.Context, documentID string) (*models.PublicationMetadata, error) {
	editions, err := s.series.OrderedByVersionDesc(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if len(editions) == 0 {
		return nil, &models.ErrorNotFound{Resource: "document", ID: documentID}
	}

	meta := &models.PublicationMetadata{DocumentID: documentID}
	for i := range editions {
		e := &editions[i]
		if !e.IsPublished() {
			continue
		}
		if meta.PublishedEdition == nil {
			meta.PublishedEdition = e
		}
		if e.MajorChange {
			meta.LatestMajorUpdate = e
			break
		}
	}

	if meta.LatestMajorUpdate != nil {
		updated := meta.LatestMajorUpdate.UpdatedAt
		meta.ChangeNote = meta.LatestMajorUpdate.ChangeNote
		meta.PublicUpdatedAt = &updated
		return meta, nil
	}

	first, err := s.series.FirstPublishedOrArchived(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if first != nil {
		updated := first.UpdatedAt
		meta.PublicUpdatedAt = &updated
	}
	return meta, nil
}
