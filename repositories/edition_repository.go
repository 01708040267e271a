package repositories

import (
	"context"
	"fmt"
	"time"

	"edition-publisher/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EditionRepository interface {
	Create(ctx context.Context, edition *models.Edition) error
	GetByID(ctx context.Context, id uint) (*models.Edition, error)
	GetByVersion(ctx context.Context, documentID string, version int) (*models.Edition, error)
	ListSeries(ctx context.Context, documentID string) ([]models.Edition, error)
	ListBySlug(ctx context.Context, slug string) ([]models.Edition, error)
	GetList(ctx context.Context, params models.EditionListParams) ([]models.Edition, int64, error)
	ListDueScheduled(ctx context.Context, now time.Time) ([]models.Edition, error)
	MaxVersion(ctx context.Context, documentID string) (int, error)
	Update(ctx context.Context, edition *models.Edition) error
	ForceState(ctx context.Context, edition *models.Edition) error
	Delete(ctx context.Context, id uint) error
	CountSeries(ctx context.Context, documentID string) (int64, error)
	CountPublishedByTag(ctx context.Context) (map[uint]int, error)
}

type editionRepository struct {
	db *gorm.DB
}

func NewEditionRepository(db *gorm.DB) EditionRepository {
	return &editionRepository{db: db}
}

var editionSortColumns = map[string]bool{
	"updated_at": true, "created_at": true, "version_number": true, "title": true, "slug": true, "state": true,
}

func (r *editionRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Parts", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order asc") }).
		Preload("Tags")
}

// Create inserts the edition with its parts and tag links. A lost race on the
// (document_id, version_number) index is reported as ErrorConflict.
func (r *editionRepository) Create(ctx context.Context, edition *models.Edition) error {
	err := r.db.WithContext(ctx).Omit("Tags.*").Create(edition).Error
	if err != nil {
		return translate(err, "edition version", edition.VersionNumber)
	}
	return nil
}

func (r *editionRepository) GetByID(ctx context.Context, id uint) (*models.Edition, error) {
	var edition models.Edition
	err := r.preloaded(ctx).First(&edition, id).Error
	if err != nil {
		return nil, translate(err, "edition", id)
	}
	return &edition, nil
}

func (r *editionRepository) GetByVersion(ctx context.Context, documentID string, version int) (*models.Edition, error) {
	var edition models.Edition
	err := r.preloaded(ctx).
		Where("document_id = ? AND version_number = ?", documentID, version).
		First(&edition).Error
	if err != nil {
		return nil, translate(err, "edition", fmt.Sprintf("%s/%d", documentID, version))
	}
	return &edition, nil
}

// ListSeries returns every edition of a document ordered by version number.
func (r *editionRepository) ListSeries(ctx context.Context, documentID string) ([]models.Edition, error) {
	var editions []models.Edition
	err := r.preloaded(ctx).
		Where("document_id = ?", documentID).
		Order("version_number asc").
		Find(&editions).Error
	return editions, err
}

func (r *editionRepository) ListBySlug(ctx context.Context, slug string) ([]models.Edition, error) {
	var editions []models.Edition
	err := r.preloaded(ctx).
		Where("slug = ?", slug).
		Order("version_number desc").
		Find(&editions).Error
	return editions, err
}

func (r *editionRepository) GetList(ctx context.Context, params models.EditionListParams) ([]models.Edition, int64, error) {
	var editions []models.Edition
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Edition{})

	if params.State != "" {
		query = query.Where("state = ?", params.State)
	}
	if params.Format != "" {
		query = query.Where("format = ?", params.Format)
	}
	if params.DocumentID != "" {
		query = query.Where("document_id = ?", params.DocumentID)
	}
	if params.Slug != "" {
		query = query.Where("slug = ?", params.Slug)
	}
	if params.Assignee != "" {
		query = query.Where("assignee = ?", params.Assignee)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := params.SortBy
	if !editionSortColumns[sortBy] {
		sortBy = "updated_at"
	}
	sortOrder := "desc"
	if params.SortOrder == "asc" {
		sortOrder = "asc"
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 || params.Limit > 100 {
		params.Limit = 10
	}

	err := query.
		Preload("Tags").
		Order(fmt.Sprintf("%s %s", sortBy, sortOrder)).
		Order("id asc").
		Offset((params.Page - 1) * params.Limit).
		Limit(params.Limit).
		Find(&editions).Error

	return editions, total, err
}

// ListDueScheduled returns editions scheduled for publishing at or before now.
func (r *editionRepository) ListDueScheduled(ctx context.Context, now time.Time) ([]models.Edition, error) {
	var editions []models.Edition
	err := r.db.WithContext(ctx).
		Where("state = ? AND publish_at <= ?", models.StateScheduledForPublishing, now).
		Order("publish_at asc").
		Find(&editions).Error
	return editions, err
}

func (r *editionRepository) MaxVersion(ctx context.Context, documentID string) (int, error) {
	var max int
	err := r.db.WithContext(ctx).Model(&models.Edition{}).
		Where("document_id = ?", documentID).
		Select("COALESCE(MAX(version_number), 0)").
		Scan(&max).Error
	return max, err
}

// Update stores every column of the edition and replaces its parts and tag links.
// The row is only written when its lock_version still matches the one the edition was
// read with; otherwise ErrorConflict is returned and nothing changes.
func (r *editionRepository) Update(ctx context.Context, edition *models.Edition) error {
	readVersion := edition.LockVersion

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		edition.LockVersion = readVersion + 1
		result := tx.Model(edition).
			Where("lock_version = ?", readVersion).
			Select("*").
			Omit(clause.Associations, "id", "created_at").
			Updates(edition)
		if result.Error != nil {
			return translate(result.Error, "edition", edition.ID)
		}
		if result.RowsAffected == 0 {
			return &models.ErrorConflict{Message: fmt.Sprintf("edition %d was changed by someone else", edition.ID)}
		}

		if err := tx.Where("edition_id = ?", edition.ID).Delete(&models.Part{}).Error; err != nil {
			return err
		}
		if len(edition.Parts) > 0 {
			for i := range edition.Parts {
				edition.Parts[i].ID = 0
				edition.Parts[i].EditionID = edition.ID
			}
			if err := tx.Create(&edition.Parts).Error; err != nil {
				return err
			}
		}

		if len(edition.Tags) == 0 {
			return tx.Model(edition).Association("Tags").Clear()
		}
		return tx.Model(edition).Association("Tags").Replace(edition.Tags)
	})
	if err != nil {
		edition.LockVersion = readVersion
	}
	return err
}

// ForceState writes the workflow columns of an edition without the lock check.
// It is used for supersession, where the engine rather than an editor moves the edition,
// so updated_at keeps the time of the last editorial save.
func (r *editionRepository) ForceState(ctx context.Context, edition *models.Edition) error {
	err := r.db.WithContext(ctx).Model(&models.Edition{}).
		Where("id = ?", edition.ID).
		UpdateColumns(map[string]interface{}{
			"state":        edition.State,
			"archiver":     edition.Archiver,
			"lock_version": gorm.Expr("lock_version + 1"),
		}).Error
	return translate(err, "edition", edition.ID)
}

// Delete removes an edition, its parts and tag links.
func (r *editionRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("edition_id = ?", id).Delete(&models.Part{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM edition_tags WHERE edition_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Edition{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return &models.ErrorNotFound{Resource: "edition", ID: id}
		}
		return nil
	})
}

func (r *editionRepository) CountSeries(ctx context.Context, documentID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Edition{}).Where("document_id = ?", documentID).Count(&count).Error
	return count, err
}

// CountPublishedByTag counts published editions per tag id.
func (r *editionRepository) CountPublishedByTag(ctx context.Context) (map[uint]int, error) {
	var results []struct {
		TagID uint
		Count int
	}

	query := `
		SELECT
			et.tag_id,
			COUNT(*) as count
		FROM edition_tags et
		JOIN editions e ON et.edition_id = e.id
		WHERE e.state = ?
		GROUP BY et.tag_id
	`

	if err := r.db.WithContext(ctx).Raw(query, models.StatePublished).Scan(&results).Error; err != nil {
		return nil, err
	}

	counts := make(map[uint]int, len(results))
	for _, result := range results {
		counts[result.TagID] = result.Count
	}
	return counts, nil
}
