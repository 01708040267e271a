package repositories

import (
	"context"

	"edition-publisher/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ArtefactStore is the document metadata service the edition engine depends on.
type ArtefactStore interface {
	Find(ctx context.Context, id string) (*models.Artefact, error)
	Destroy(ctx context.Context, id string) error
	Create(ctx context.Context, artefact *models.Artefact) error
	Update(ctx context.Context, artefact *models.Artefact) error
	List(ctx context.Context, kind string) ([]models.Artefact, error)
}

type ArtefactRepository interface {
	ArtefactStore
	FindBySlug(ctx context.Context, slug string) (*models.Artefact, error)
	// FindForUpdate reads the artefact holding a row lock until the surrounding
	// transaction ends. Drivers without row locks read it plainly.
	FindForUpdate(ctx context.Context, id string) (*models.Artefact, error)
}

type artefactRepository struct {
	db *gorm.DB
}

func NewArtefactRepository(db *gorm.DB) ArtefactRepository {
	return &artefactRepository{db: db}
}

func (r *artefactRepository) Find(ctx context.Context, id string) (*models.Artefact, error) {
	var artefact models.Artefact
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&artefact).Error
	if err != nil {
		return nil, translate(err, "artefact", id)
	}
	return &artefact, nil
}

func (r *artefactRepository) FindForUpdate(ctx context.Context, id string) (*models.Artefact, error) {
	var artefact models.Artefact
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&artefact).Error
	if err != nil {
		return nil, translate(err, "artefact", id)
	}
	return &artefact, nil
}

func (r *artefactRepository) FindBySlug(ctx context.Context, slug string) (*models.Artefact, error) {
	var artefact models.Artefact
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&artefact).Error
	if err != nil {
		return nil, translate(err, "artefact", slug)
	}
	return &artefact, nil
}

// Destroy deletes the artefact. Destroying an artefact that is already gone is not an error.
func (r *artefactRepository) Destroy(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Artefact{}).Error
}

func (r *artefactRepository) Create(ctx context.Context, artefact *models.Artefact) error {
	return translate(r.db.WithContext(ctx).Create(artefact).Error, "artefact", artefact.Slug)
}

func (r *artefactRepository) Update(ctx context.Context, artefact *models.Artefact) error {
	return translate(r.db.WithContext(ctx).Save(artefact).Error, "artefact", artefact.Slug)
}

func (r *artefactRepository) List(ctx context.Context, kind string) ([]models.Artefact, error) {
	var artefacts []models.Artefact
	query := r.db.WithContext(ctx).Order("slug asc")
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	err := query.Find(&artefacts).Error
	return artefacts, err
}
