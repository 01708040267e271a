package services

import (
	"context"
	"errors"
	"strings"

	"edition-publisher/models"
	"edition-publisher/repositories"
)

type TagService interface {
	CreateTag(ctx context.Context, req models.CreateTagRequest) (*models.Tag, error)
	GetTags(ctx context.Context, tagType models.TagType) ([]models.Tag, error)
	GetTag(ctx context.Context, id uint) (*models.Tag, error)
	RecountUsage(ctx context.Context) error
}

type tagService struct {
	tagRepo     repositories.TagRepository
	editionRepo repositories.EditionRepository
}

func NewTagService(tagRepo repositories.TagRepository, editionRepo repositories.EditionRepository) TagService {
	return &tagService{
		tagRepo:     tagRepo,
		editionRepo: editionRepo,
	}
}

func (s *tagService) CreateTag(ctx context.Context, req models.CreateTagRequest) (*models.Tag, error) {
	_, err := s.tagRepo.GetByName(ctx, req.Name)
	if err == nil {
		return nil, &models.ErrorConflict{Message: "tag already exists"}
	}
	var notFound *models.ErrorNotFound
	if !errors.As(err, &notFound) {
		return nil, err
	}

	tagType := req.Type
	if tagType == "" {
		tagType = models.TagTypeTopic
	}
	tag := &models.Tag{
		Name:  req.Name,
		Type:  tagType,
		Title: req.Title,
	}
	if err := s.tagRepo.Create(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

func (s *tagService) GetTags(ctx context.Context, tagType models.TagType) ([]models.Tag, error) {
	return s.tagRepo.GetAll(ctx, tagType)
}

func (s *tagService) GetTag(ctx context.Context, id uint) (*models.Tag, error) {
	return s.tagRepo.GetByID(ctx, id)
}

// RecountUsage sets every tag's usage count to the number of published editions carrying it.
func (s *tagService) RecountUsage(ctx context.Context) error {
	counts, err := s.editionRepo.CountPublishedByTag(ctx)
	if err != nil {
		return err
	}
	allTags, err := s.tagRepo.GetAll(ctx, "")
	if err != nil {
		return err
	}

	changed := allTags[:0]
	for _, tag := range allTags {
		if tag.UsageCount != counts[tag.ID] {
			tag.UsageCount = counts[tag.ID]
			changed = append(changed, tag)
		}
	}
	return s.tagRepo.BulkUpdate(ctx, changed)
}

// resolveTags maps tag names onto stored tags, creating topic tags for unknown names.
func resolveTags(ctx context.Context, tagRepo repositories.TagRepository, names []string) ([]models.Tag, error) {
	tags := []models.Tag{}
	seen := map[string]bool{}

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		tag, err := tagRepo.GetByName(ctx, name)
		var notFound *models.ErrorNotFound
		switch {
		case err == nil:
			tags = append(tags, *tag)
		case errors.As(err, &notFound):
			newTag := &models.Tag{Name: name, Type: models.TagTypeTopic}
			if err := tagRepo.Create(ctx, newTag); err != nil {
				return nil, err
			}
			tags = append(tags, *newTag)
		default:
			return nil, err
		}
	}
	return tags, nil
}
