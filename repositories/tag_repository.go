package repositories

import (
	"context"

	"edition-publisher/models"

	"gorm.io/gorm"
)

type TagRepository interface {
	Create(ctx context.Context, tag *models.Tag) error
	GetByName(ctx context.Context, name string) (*models.Tag, error)
	GetByNames(ctx context.Context, names []string) ([]models.Tag, error)
	GetByID(ctx context.Context, id uint) (*models.Tag, error)
	GetAll(ctx context.Context, tagType models.TagType) ([]models.Tag, error)
	BulkUpdate(ctx context.Context, tags []models.Tag) error
}

type tagRepository struct {
	db *gorm.DB
}

func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

func (r *tagRepository) Create(ctx context.Context, tag *models.Tag) error {
	return translate(r.db.WithContext(ctx).Create(tag).Error, "tag", tag.Name)
}

func (r *tagRepository) GetByName(ctx context.Context, name string) (*models.Tag, error) {
	var tag models.Tag
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&tag).Error
	if err != nil {
		return nil, translate(err, "tag", name)
	}
	return &tag, nil
}

func (r *tagRepository) GetByNames(ctx context.Context, names []string) ([]models.Tag, error) {
	var tags []models.Tag
	if len(names) == 0 {
		return tags, nil
	}
	err := r.db.WithContext(ctx).Where("name IN ?", names).Find(&tags).Error
	return tags, err
}

func (r *tagRepository) GetByID(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	err := r.db.WithContext(ctx).First(&tag, id).Error
	if err != nil {
		return nil, translate(err, "tag", id)
	}
	return &tag, nil
}

func (r *tagRepository) GetAll(ctx context.Context, tagType models.TagType) ([]models.Tag, error) {
	var tags []models.Tag
	query := r.db.WithContext(ctx).Order("usage_count desc").Order("name asc")
	if tagType != "" {
		query = query.Where("type = ?", tagType)
	}
	err := query.Find(&tags).Error
	return tags, err
}

func (r *tagRepository) BulkUpdate(ctx context.Context, tags []models.Tag) error {
	if len(tags) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Save(&tags).Error
}
