package repositories

import (
	"context"

	"gorm.io/gorm"
)

// Repositories bundles the repositories bound to one database handle.
type Repositories struct {
	Editions  EditionRepository
	Artefacts ArtefactRepository
	Tags      TagRepository
	Users     UserRepository
}

func New(db *gorm.DB) *Repositories {
	return &Repositories{
		Editions:  NewEditionRepository(db),
		Artefacts: NewArtefactRepository(db),
		Tags:      NewTagRepository(db),
		Users:     NewUserRepository(db),
	}
}

// Transactor runs a function against repositories sharing one transaction.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(repos *Repositories) error) error
}

type gormTransactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) Transactor {
	return &gormTransactor{db: db}
}

func (t *gormTransactor) InTransaction(ctx context.Context, fn func(repos *Repositories) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}
