package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"edition-publisher/formats"
	"edition-publisher/models"
	"edition-publisher/repositories"
	"edition-publisher/workflow"
)

type EditionService interface {
	RegisterDocument(ctx context.Context, artefact *models.Artefact, format models.Format, linedUp bool, actor models.Actor) (*models.Edition, error)
	GetEdition(ctx context.Context, id uint) (*models.Edition, error)
	GetEditions(ctx context.Context, params models.EditionListParams) ([]models.Edition, int64, error)
	GetSeries(ctx context.Context, documentID string) ([]models.Edition, error)
	UpdateEdition(ctx context.Context, id uint, req models.UpdateEditionRequest, actor models.Actor) (*models.Edition, error)
	Transition(ctx context.Context, id uint, req models.TransitionRequest, actor models.Actor) (*models.Edition, error)
	AvailableActions(ctx context.Context, id uint, actor models.Actor) ([]workflow.Action, error)
	DeleteEdition(ctx context.Context, id uint, actor models.Actor) (bool, error)
	UpdateFromArtefact(ctx context.Context, artefactID string) ([]models.Edition, error)
	FindAndIdentify(ctx context.Context, slug, edition string) (*models.Edition, error)
	IndexableContent(ctx context.Context, id uint) (string, error)
}

type editionService struct {
	*engine
}

// RegisterDocument returns the latest edition of the artefact's series, creating
// version 1 from the artefact metadata when the series is empty.
func (s *editionService) RegisterDocument(ctx context.Context, artefact *models.Artefact, format models.Format, linedUp bool, actor models.Actor) (*models.Edition, error) {
	spec, err := formats.Lookup(format)
	if err != nil {
		verr := models.NewErrorValidation()
		verr.Add("format", "is not included in the list")
		return nil, verr
	}

	unlock := s.locks.Lock(documentKey(artefact.ID))
	defer unlock()

	var result *models.Edition
	err = s.retryOnConflict(ctx, "register", func() error {
		latest, err := s.series.LatestEdition(ctx, artefact.ID)
		if err != nil {
			return err
		}
		if latest != nil {
			result = latest
			return nil
		}
		if artefact.IsArchived() {
			return &models.ErrorArchivedDocument{DocumentID: artefact.ID}
		}

		state := models.StateDraft
		if linedUp {
			state = models.StateLinedUp
		}
		e := &models.Edition{
			DocumentID:          artefact.ID,
			VersionNumber:       1,
			Format:              format,
			State:               state,
			Title:               artefact.Name,
			Slug:                artefact.Slug,
			Section:             artefact.Section,
			Department:          artefact.Department,
			BusinessProposition: artefact.BusinessProposition,
			Creator:             actor.Ref(),
		}
		if spec.Setup != nil {
			spec.Setup(e)
		}
		if err := s.validator.Validate(e, artefact.Kind, nil); err != nil {
			return err
		}
		if err := s.repos.Editions.Create(ctx, e); err != nil {
			return err
		}
		s.metrics.Created()
		s.log.Info().
			Str("component", "editions").
			Str("document_id", e.DocumentID).
			Str("format", string(e.Format)).
			Str("actor", actor.Ref()).
			Msg("first edition created")
		result = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *editionService) GetEdition(ctx context.Context, id uint) (*models.Edition, error) {
	return s.repos.Editions.GetByID(ctx, id)
}

func (s *editionService) GetEditions(ctx context.Context, params models.EditionListParams) ([]models.Edition, int64, error) {
	return s.repos.Editions.GetList(ctx, params)
}

func (s *editionService) GetSeries(ctx context.Context, documentID string) ([]models.Edition, error) {
	editions, err := s.series.OrderedByVersionDesc(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if len(editions) == 0 {
		return nil, &models.ErrorNotFound{Resource: "document", ID: documentID}
	}
	return editions, nil
}

// UpdateEdition applies a content edit. Published and archived editions are immutable.
func (s *editionService) UpdateEdition(ctx context.Context, id uint, req models.UpdateEditionRequest, actor models.Actor) (*models.Edition, error) {
	unlock := s.locks.Lock(editionKey(id))
	defer unlock()

	var result *models.Edition
	attempt := func() error {
		e, err := s.repos.Editions.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if req.LockVersion != nil && *req.LockVersion != e.LockVersion {
			return &models.ErrorConflict{Message: "edition has been changed since it was read"}
		}
		switch e.State {
		case models.StatePublished:
			return &models.ErrorGuardViolation{Rule: "published editions cannot be edited"}
		case models.StateArchived:
			return &models.ErrorGuardViolation{Rule: "archived editions cannot be edited"}
		}

		artefact, err := s.artefactFor(ctx, e.DocumentID)
		if err != nil {
			return err
		}
		before := e.Snapshot()
		if err := s.applyEdit(ctx, e, req); err != nil {
			return err
		}
		if err := s.save(ctx, e, before, artefact); err != nil {
			return err
		}
		s.log.Debug().
			Str("component", "editions").
			Str("document_id", e.DocumentID).
			Int("version", e.VersionNumber).
			Str("actor", actor.Ref()).
			Msg("edition updated")
		result = e
		return nil
	}

	var err error
	if req.LockVersion != nil {
		// a pinned version cannot become current again on re-read
		err = attempt()
		var conflict *models.ErrorConflict
		if errors.As(err, &conflict) {
			s.metrics.Conflict("update")
		}
	} else {
		err = s.retryOnConflict(ctx, "update", attempt)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *editionService) applyEdit(ctx context.Context, e *models.Edition, req models.UpdateEditionRequest) error {
	if req.Title != nil {
		e.Title = *req.Title
	}
	if req.Overview != nil {
		e.Overview = *req.Overview
	}
	if req.AlternativeTitle != nil {
		e.AlternativeTitle = *req.AlternativeTitle
	}
	if req.Slug != nil {
		e.Slug = *req.Slug
	}
	if req.Section != nil {
		e.Section = *req.Section
	}
	if req.Department != nil {
		e.Department = *req.Department
	}
	if req.MajorChange != nil {
		e.MajorChange = *req.MajorChange
	}
	if req.ChangeNote != nil {
		e.ChangeNote = *req.ChangeNote
	}
	if len(req.Details) > 0 {
		details := models.CopyDetails(e.Details)
		if details == nil {
			details = map[string]interface{}{}
		}
		for k, v := range req.Details {
			if v == nil {
				delete(details, k)
				continue
			}
			details[k] = v
		}
		e.Details = details
	}
	if req.Parts != nil {
		parts := make([]models.Part, 0, len(*req.Parts))
		for i, p := range *req.Parts {
			parts = append(parts, models.Part{Order: i + 1, Title: p.Title, Body: p.Body, Slug: p.Slug})
		}
		e.Parts = parts
	}
	if req.Tags != nil {
		tags, err := resolveTags(ctx, s.repos.Tags, *req.Tags)
		if err != nil {
			return err
		}
		e.Tags = tags
	}
	return nil
}

func (s *editionService) Transition(ctx context.Context, id uint, req models.TransitionRequest, actor models.Actor) (*models.Edition, error) {
	return s.transition(ctx, id, workflow.Action(req.Action), req.PublishAt, actor)
}

// AvailableActions lists the actions whose state and role preconditions hold for actor.
func (s *editionService) AvailableActions(ctx context.Context, id uint, actor models.Actor) ([]workflow.Action, error) {
	e, err := s.repos.Editions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.machine.Available(e, actor), nil
}

// DeleteEdition removes an unpublished edition. When it was the last edition of its series
// the artefact is destroyed in the same transaction; the returned bool reports that.
func (s *editionService) DeleteEdition(ctx context.Context, id uint, actor models.Actor) (bool, error) {
	unlock := s.locks.Lock(editionKey(id))
	defer unlock()

	e, err := s.repos.Editions.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if e.IsPublished() || e.IsArchived() {
		return false, &models.ErrorGuardViolation{Rule: "published and archived editions cannot be deleted"}
	}

	unlockDoc := s.locks.Lock(documentKey(e.DocumentID))
	defer unlockDoc()

	destroyed := false
	err = s.transactor.InTransaction(ctx, func(repos *repositories.Repositories) error {
		artefact, err := repos.Artefacts.FindForUpdate(ctx, e.DocumentID)
		var notFound *models.ErrorNotFound
		if err != nil && !errors.As(err, &notFound) {
			return err
		}
		if err := repos.Editions.Delete(ctx, e.ID); err != nil {
			return err
		}
		remaining, err := repos.Editions.CountSeries(ctx, e.DocumentID)
		if err != nil {
			return err
		}
		if remaining == 0 && artefact != nil {
			if err := repos.Artefacts.Destroy(ctx, artefact.ID); err != nil {
				return err
			}
			destroyed = true
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	event := s.log.Info().
		Str("component", "editions").
		Str("document_id", e.DocumentID).
		Int("version", e.VersionNumber).
		Str("actor", actor.Ref())
	if destroyed {
		s.metrics.CascadeDelete()
		event.Bool("artefact_destroyed", true).Msg("last edition deleted, artefact destroyed")
	} else {
		event.Msg("edition deleted")
	}
	return destroyed, nil
}

// UpdateFromArtefact copies artefact metadata onto the in-progress editions of its series.
func (s *editionService) UpdateFromArtefact(ctx context.Context, artefactID string) ([]models.Edition, error) {
	artefact, err := s.artefacts.Find(ctx, artefactID)
	if err != nil {
		return nil, err
	}
	if artefact.IsArchived() {
		return nil, nil
	}

	series, err := s.series.All(ctx, artefactID)
	if err != nil {
		return nil, err
	}

	var updated []models.Edition
	for _, candidate := range series {
		if !candidate.InProgress() {
			continue
		}
		e, err := s.syncFromArtefact(ctx, candidate.ID, artefact)
		if err != nil {
			return updated, err
		}
		if e != nil {
			updated = append(updated, *e)
		}
	}
	return updated, nil
}

func (s *editionService) syncFromArtefact(ctx context.Context, id uint, artefact *models.Artefact) (*models.Edition, error) {
	unlock := s.locks.Lock(editionKey(id))
	defer unlock()

	var result *models.Edition
	err := s.retryOnConflict(ctx, "sync", func() error {
		e, err := s.repos.Editions.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !e.InProgress() {
			return nil
		}
		before := e.Snapshot()
		e.Title = artefact.Name
		e.Slug = artefact.Slug
		e.Section = artefact.Section
		e.Department = artefact.Department
		e.BusinessProposition = artefact.BusinessProposition
		if err := s.save(ctx, e, before, artefact); err != nil {
			return err
		}
		result = e
		return nil
	})
	return result, err
}

// FindAndIdentify resolves a slug to an edition. edition is "latest" for the newest
// version, a version number, or empty for the newest published version.
func (s *editionService) FindAndIdentify(ctx context.Context, slug, edition string) (*models.Edition, error) {
	editions, err := s.repos.Editions.ListBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if len(editions) == 0 {
		return nil, &models.ErrorNotFound{Resource: "edition", ID: slug}
	}

	edition = strings.TrimSpace(edition)
	switch edition {
	case "latest":
		return &editions[0], nil
	case "":
		published, err := s.series.LatestPublished(ctx, editions[0].DocumentID)
		if err != nil {
			return nil, err
		}
		if published == nil {
			return nil, &models.ErrorNotFound{Resource: "edition", ID: slug}
		}
		return published, nil
	}

	version, err := strconv.Atoi(edition)
	if err != nil || version < 1 {
		return nil, &models.ErrorNotFound{Resource: "edition", ID: slug + "/" + edition}
	}
	return s.repos.Editions.GetByVersion(ctx, editions[0].DocumentID, version)
}

func (s *editionService) IndexableContent(ctx context.Context, id uint) (string, error) {
	e, err := s.repos.Editions.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return formats.IndexableContent(e), nil
}
