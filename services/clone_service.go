package services

import (
	"context"

	"edition-publisher/formats"
	"edition-publisher/models"
)

type CloneService interface {
	BuildClone(ctx context.Context, source *models.Edition, target models.Format) (*models.Edition, error)
	CreateClone(ctx context.Context, sourceID uint, target models.Format, actor models.Actor) (*models.Edition, error)
}

type cloneService struct {
	*engine
}

// BuildClone returns an unsaved next version of source. An empty target keeps the
// source format. Format-specific fields are copied only when the format is unchanged;
// otherwise a registered migration, if any, carries the content over.
func (s *cloneService) BuildClone(ctx context.Context, source *models.Edition, target models.Format) (*models.Edition, error) {
	if !source.IsPublished() {
		return nil, &models.ErrorGuardViolation{Rule: "cannot clone unpublished edition"}
	}

	if target == "" {
		target = source.Format
	}
	targetSpec, err := formats.Lookup(target)
	if err != nil {
		verr := models.NewErrorValidation()
		verr.Add("format", "is not included in the list")
		return nil, verr
	}
	ok, err := s.series.CanCreateNewEdition(ctx, source, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &models.ErrorGuardViolation{Rule: "in-progress edition already exists"}
	}

	version, err := s.series.NextVersionNumber(ctx, source.DocumentID)
	if err != nil {
		return nil, err
	}

	clone := &models.Edition{
		DocumentID:          source.DocumentID,
		VersionNumber:       version,
		Format:              target,
		State:               models.StateDraft,
		Title:               source.Title,
		Overview:            source.Overview,
		AlternativeTitle:    source.AlternativeTitle,
		Slug:                source.Slug,
		Section:             source.Section,
		Department:          source.Department,
		BusinessProposition: source.BusinessProposition,
		Tags:                append([]models.Tag(nil), source.Tags...),
	}

	if target == source.Format {
		for _, field := range targetSpec.CloneFields {
			if v, ok := source.Details[field]; ok {
				clone.SetDetail(field, v)
			}
		}
		clone.Details = models.CopyDetails(clone.Details)
		if targetSpec.Parted {
			for _, p := range formats.SortedParts(source.Parts) {
				clone.Parts = append(clone.Parts, models.Part{Order: p.Order, Title: p.Title, Body: p.Body, Slug: p.Slug})
			}
		}
	} else if migrate, ok := formats.MigrationFor(source.Format, target); ok {
		migrate(source, clone)
	}

	if targetSpec.Setup != nil {
		targetSpec.Setup(clone)
	}
	return clone, nil
}

// CreateClone builds and stores the next version of the edition sourceID. A lost race on
// the version number is retried once with a fresh read.
func (s *cloneService) CreateClone(ctx context.Context, sourceID uint, target models.Format, actor models.Actor) (*models.Edition, error) {
	source, err := s.repos.Editions.GetByID(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(documentKey(source.DocumentID))
	defer unlock()

	var result *models.Edition
	err = s.retryOnConflict(ctx, "clone", func() error {
		source, err := s.repos.Editions.GetByID(ctx, sourceID)
		if err != nil {
			return err
		}
		artefact, err := s.artefactFor(ctx, source.DocumentID)
		if err != nil {
			return err
		}
		if artefact != nil && artefact.IsArchived() {
			return &models.ErrorArchivedDocument{DocumentID: source.DocumentID}
		}

		clone, err := s.BuildClone(ctx, source, target)
		if err != nil {
			return err
		}
		clone.Creator = actor.Ref()
		clone.Assignee = actor.Ref()

		kind := ""
		if artefact != nil {
			kind = artefact.Kind
		}
		if err := s.validator.Validate(clone, kind, nil); err != nil {
			return err
		}
		if err := s.repos.Editions.Create(ctx, clone); err != nil {
			return err
		}
		result = clone
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Clone(string(source.Format), string(result.Format))
	s.log.Info().
		Str("component", "clone").
		Str("document_id", result.DocumentID).
		Int("from_version", source.VersionNumber).
		Int("to_version", result.VersionNumber).
		Str("from_format", string(source.Format)).
		Str("to_format", string(result.Format)).
		Str("actor", actor.Ref()).
		Msg("edition cloned")
	return result, nil
}
