package services

import (
	"context"

	"edition-publisher/formats"
	"edition-publisher/models"
	"edition-publisher/repositories"
	"edition-publisher/validators"
)

// ArtefactService registers document metadata. It stands in for the external metadata
// service and keeps the first edition in step with it.
type ArtefactService interface {
	CreateArtefact(ctx context.Context, req models.CreateArtefactRequest, actor models.Actor) (*models.Artefact, *models.Edition, error)
	GetArtefact(ctx context.Context, id string) (*models.Artefact, error)
	GetArtefacts(ctx context.Context, kind string) ([]models.Artefact, error)
	UpdateArtefact(ctx context.Context, id string, req models.UpdateArtefactRequest) (*models.Artefact, error)
}

type artefactService struct {
	artefacts repositories.ArtefactStore
	editions  *editionService
}

func (s *artefactService) CreateArtefact(ctx context.Context, req models.CreateArtefactRequest, actor models.Actor) (*models.Artefact, *models.Edition, error) {
	verr := models.NewErrorValidation()
	if res := validators.ValidateSlug(req.Kind, req.Slug); !res.Valid {
		for _, r := range res.Reasons {
			verr.Add("slug", r)
		}
	}
	if _, err := formats.Lookup(req.Format); err != nil {
		verr.Add("format", "is not included in the list")
	}
	if err := verr.OrNil(); err != nil {
		return nil, nil, err
	}

	artefact := &models.Artefact{
		Slug:                req.Slug,
		Name:                req.Name,
		Kind:                req.Kind,
		Department:          req.Department,
		BusinessUnit:        req.BusinessUnit,
		Section:             req.Section,
		BusinessProposition: req.BusinessProposition,
	}
	if err := s.artefacts.Create(ctx, artefact); err != nil {
		return nil, nil, err
	}

	edition, err := s.editions.RegisterDocument(ctx, artefact, req.Format, req.LinedUp, actor)
	if err != nil {
		if derr := s.artefacts.Destroy(ctx, artefact.ID); derr != nil {
			s.editions.log.Error().Err(derr).Str("artefact_id", artefact.ID).Msg("could not remove artefact after failed registration")
		}
		return nil, nil, err
	}
	return artefact, edition, nil
}

func (s *artefactService) GetArtefact(ctx context.Context, id string) (*models.Artefact, error) {
	return s.artefacts.Find(ctx, id)
}

func (s *artefactService) GetArtefacts(ctx context.Context, kind string) ([]models.Artefact, error) {
	return s.artefacts.List(ctx, kind)
}

// UpdateArtefact changes document metadata and syncs it onto in-progress editions.
func (s *artefactService) UpdateArtefact(ctx context.Context, id string, req models.UpdateArtefactRequest) (*models.Artefact, error) {
	artefact, err := s.artefacts.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		artefact.Name = *req.Name
	}
	if req.Slug != nil {
		if res := validators.ValidateSlug(artefact.Kind, *req.Slug); !res.Valid {
			verr := models.NewErrorValidation()
			for _, r := range res.Reasons {
				verr.Add("slug", r)
			}
			return nil, verr
		}
		artefact.Slug = *req.Slug
	}
	if req.Department != nil {
		artefact.Department = *req.Department
	}
	if req.BusinessUnit != nil {
		artefact.BusinessUnit = *req.BusinessUnit
	}
	if req.Section != nil {
		artefact.Section = *req.Section
	}
	if req.BusinessProposition != nil {
		artefact.BusinessProposition = *req.BusinessProposition
	}
	if req.State != nil {
		artefact.State = *req.State
	}

	if err := s.artefacts.Update(ctx, artefact); err != nil {
		return nil, err
	}
	if _, err := s.editions.UpdateFromArtefact(ctx, artefact.ID); err != nil {
		return nil, err
	}
	return artefact, nil
}
