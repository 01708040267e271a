package services

import (
	"time"

	"edition-publisher/logger"
	"edition-publisher/metrics"
	"edition-publisher/repositories"
	"edition-publisher/validators"
	"edition-publisher/workflow"
)

// Deps are the collaborators of the service layer. Zero optional fields get defaults.
type Deps struct {
	Repos      *repositories.Repositories
	Transactor repositories.Transactor
	// Artefacts defaults to Repos.Artefacts.
	Artefacts repositories.ArtefactStore
	Machine   *workflow.Machine
	Validator *validators.EditionValidator
	Logger    *logger.Logger
	Metrics   *metrics.Metrics
	Clock     func() time.Time
}

type Services struct {
	Auth        AuthService
	Tags        TagService
	Artefacts   ArtefactService
	Editions    EditionService
	Clones      CloneService
	Publication PublicationService
}

func New(d Deps) *Services {
	if d.Artefacts == nil {
		d.Artefacts = d.Repos.Artefacts
	}
	if d.Machine == nil {
		d.Machine = workflow.NewDefault()
	}
	if d.Validator == nil {
		d.Validator = validators.NewEditionValidator()
	}
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}

	g := &engine{
		repos:      d.Repos,
		artefacts:  d.Artefacts,
		transactor: d.Transactor,
		series:     NewSeries(d.Repos.Editions),
		machine:    d.Machine,
		validator:  d.Validator,
		locks:      newKeyedMutex(),
		log:        d.Logger,
		metrics:    d.Metrics,
		now:        d.Clock,
	}

	tags := NewTagService(d.Repos.Tags, d.Repos.Editions)
	publication := &publicationService{engine: g, tags: tags}
	g.onPublished = publication.afterPublish
	editions := &editionService{engine: g}

	return &Services{
		Auth:        NewAuthService(d.Repos.Users),
		Tags:        tags,
		Artefacts:   &artefactService{artefacts: d.Artefacts, editions: editions},
		Editions:    editions,
		Clones:      &cloneService{engine: g},
		Publication: publication,
	}
}
