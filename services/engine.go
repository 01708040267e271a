package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"edition-publisher/logger"
	"edition-publisher/metrics"
	"edition-publisher/models"
	"edition-publisher/repositories"
	"edition-publisher/validators"
	"edition-publisher/workflow"
)

// engine holds what the edition, clone and publication services share: storage, the
// workflow machine, per-edition locks and the guarded save path.
type engine struct {
	repos      *repositories.Repositories
	artefacts  repositories.ArtefactStore
	transactor repositories.Transactor
	series     *Series
	machine    *workflow.Machine
	validator  *validators.EditionValidator
	locks      *keyedMutex
	log        *logger.Logger
	metrics    *metrics.Metrics
	now        func() time.Time

	// onPublished runs after a publish action has been stored.
	onPublished func(ctx context.Context, e *models.Edition)
}

func editionKey(id uint) string {
	return fmt.Sprintf("edition:%d", id)
}

func documentKey(documentID string) string {
	return "document:" + documentID
}

// retryOnConflict runs fn and runs it once more when it reports ErrorConflict. fn must
// re-read whatever it writes.
func (g *engine) retryOnConflict(ctx context.Context, operation string, fn func() error) error {
	err := fn()
	var conflict *models.ErrorConflict
	if !errors.As(err, &conflict) {
		return err
	}

	g.metrics.Conflict(operation)
	g.log.Warn().Str("operation", operation).Err(err).Msg("conflict, retrying once")

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	err = fn()
	if errors.As(err, &conflict) {
		g.metrics.Conflict(operation)
	}
	return err
}

// artefactFor loads the document metadata of a series. A missing artefact is not an
// error: the edition is then validated against its format's kind.
func (g *engine) artefactFor(ctx context.Context, documentID string) (*models.Artefact, error) {
	artefact, err := g.artefacts.Find(ctx, documentID)
	var notFound *models.ErrorNotFound
	if errors.As(err, &notFound) {
		return nil, nil
	}
	return artefact, err
}

// checkArchivedArtefact rejects the save of an edition whose artefact is archived, unless
// the only change is moving the edition to archived.
func checkArchivedArtefact(artefact *models.Artefact, e *models.Edition, before map[string]interface{}) error {
	if artefact == nil || !artefact.IsArchived() {
		return nil
	}
	if e.State == models.StateArchived {
		allowed := map[string]bool{"state": true, "archiver": true}
		onlyArchiving := true
		for _, field := range validators.ChangedFields(before, e.Snapshot()) {
			if !allowed[field] {
				onlyArchiving = false
				break
			}
		}
		if onlyArchiving {
			return nil
		}
	}
	return &models.ErrorArchivedDocument{DocumentID: e.DocumentID}
}

// save runs the save-time checks and writes e with the optimistic lock.
func (g *engine) save(ctx context.Context, e *models.Edition, before map[string]interface{}, artefact *models.Artefact) error {
	if err := checkArchivedArtefact(artefact, e, before); err != nil {
		return err
	}
	kind := ""
	if artefact != nil {
		kind = artefact.Kind
	}
	if err := g.validator.Validate(e, kind, before); err != nil {
		return err
	}
	return g.repos.Editions.Update(ctx, e)
}

// transition fires action on the edition and stores the result. The edition is reloaded
// on every attempt.
func (g *engine) transition(ctx context.Context, id uint, action workflow.Action, publishAt *time.Time, actor models.Actor) (*models.Edition, error) {
	unlock := g.locks.Lock(editionKey(id))
	defer unlock()

	var result *models.Edition
	err := g.retryOnConflict(ctx, "transition", func() error {
		e, err := g.repos.Editions.GetByID(ctx, id)
		if err != nil {
			return err
		}
		artefact, err := g.artefactFor(ctx, e.DocumentID)
		if err != nil {
			return err
		}

		before := e.Snapshot()
		from := e.State
		env := workflow.Env{
			Edition:          e,
			Actor:            actor,
			Series:           g.series,
			DocumentArchived: artefact != nil && artefact.IsArchived(),
			PublishAt:        publishAt,
			Now:              g.now(),
		}

		err = g.machine.Fire(ctx, action, env)
		if err == nil {
			err = g.save(ctx, e, before, artefact)
		}

		g.log.LogTransition(e.DocumentID, e.VersionNumber, string(action), string(from), string(e.State), actor.Ref(), err)
		g.metrics.Transition(string(action), err)
		if err != nil {
			return err
		}
		result = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.IsPublished() && g.onPublished != nil {
		g.onPublished(ctx, result)
	}
	return result, nil
}
