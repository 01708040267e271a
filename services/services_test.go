package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"edition-publisher/config"
	"edition-publisher/logger"
	"edition-publisher/metrics"
	"edition-publisher/models"
	"edition-publisher/repositories"
	"edition-publisher/workflow"
)

type ServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	repos   *repositories.Repositories
	svc     *Services
	metrics *metrics.Metrics
	ctx     context.Context
	now     time.Time
	writer  models.Actor
	editor  models.Actor
	admin   models.Actor
}

func (suite *ServiceTestSuite) SetupTest() {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(suite.T().Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Discard,
	})
	suite.Require().NoError(err)
	suite.Require().NoError(config.Migrate(db))

	suite.db = db
	suite.repos = repositories.New(db)
	suite.ctx = context.Background()
	suite.now = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	suite.writer = models.Actor{ID: 1, Name: "wendy", Role: models.RoleWriter}
	suite.editor = models.Actor{ID: 2, Name: "ed", Role: models.RoleEditor}
	suite.admin = models.Actor{ID: 3, Name: "ada", Role: models.RoleAdmin}

	suite.metrics = metrics.NewMetrics(prometheus.NewRegistry())
	suite.svc = suite.newServices(suite.repos)
}

func (suite *ServiceTestSuite) newServices(repos *repositories.Repositories) *Services {
	return New(Deps{
		Repos:      repos,
		Transactor: repositories.NewTransactor(suite.db),
		Metrics:    suite.metrics,
		Clock:      func() time.Time { return suite.now },
	})
}

func (suite *ServiceTestSuite) TearDownTest() {
	if sqlDB, err := suite.db.DB(); err == nil {
		sqlDB.Close()
	}
}

func (suite *ServiceTestSuite) createDocument(kind string, format models.Format, slug string) (*models.Artefact, *models.Edition) {
	artefact, edition, err := suite.svc.Artefacts.CreateArtefact(suite.ctx, models.CreateArtefactRequest{
		Slug:   slug,
		Name:   "Document " + slug,
		Kind:   kind,
		Format: format,
	}, suite.writer)
	suite.Require().NoError(err)
	return artefact, edition
}

func (suite *ServiceTestSuite) fire(id uint, action workflow.Action, actor models.Actor) *models.Edition {
	e, err := suite.svc.Editions.Transition(suite.ctx, id, models.TransitionRequest{Action: string(action)}, actor)
	suite.Require().NoError(err, action)
	return e
}

func (suite *ServiceTestSuite) publish(id uint) *models.Edition {
	suite.fire(id, workflow.ActionRequestReview, suite.writer)
	suite.fire(id, workflow.ActionApproveReview, suite.editor)
	e, err := suite.svc.Publication.Publish(suite.ctx, id, suite.editor)
	suite.Require().NoError(err)
	return e
}

func (suite *ServiceTestSuite) update(id uint, req models.UpdateEditionRequest) (*models.Edition, error) {
	return suite.svc.Editions.UpdateEdition(suite.ctx, id, req, suite.writer)
}

func (suite *ServiceTestSuite) reload(id uint) *models.Edition {
	e, err := suite.svc.Editions.GetEdition(suite.ctx, id)
	suite.Require().NoError(err)
	return e
}

func (suite *ServiceTestSuite) seriesCount(documentID string) int64 {
	count, err := suite.repos.Editions.CountSeries(suite.ctx, documentID)
	suite.Require().NoError(err)
	return count
}

func strPtr(s string) *string { return &s }

func (suite *ServiceTestSuite) TestRegisterDocumentIsIdempotent() {
	artefact, first := suite.createDocument("answer", models.FormatAnswer, "pay-council-tax")
	suite.Equal(1, first.VersionNumber)
	suite.Equal(models.StateDraft, first.State)
	suite.Equal("Document pay-council-tax", first.Title)
	suite.Equal("wendy", first.Creator)

	again, err := suite.svc.Editions.RegisterDocument(suite.ctx, artefact, models.FormatAnswer, false, suite.writer)
	suite.Require().NoError(err)
	suite.Equal(first.ID, again.ID)
	suite.Equal(int64(1), suite.seriesCount(artefact.ID))
}

func (suite *ServiceTestSuite) TestRegisterDocumentLinedUp() {
	_, e, err := suite.svc.Artefacts.CreateArtefact(suite.ctx, models.CreateArtefactRequest{
		Slug: "lined", Name: "Lined", Kind: "answer", Format: models.FormatAnswer, LinedUp: true,
	}, suite.writer)
	suite.Require().NoError(err)
	suite.Equal(models.StateLinedUp, e.State)

	started := suite.fire(e.ID, workflow.ActionStartWork, suite.writer)
	suite.Equal(models.StateDraft, started.State)
}

func (suite *ServiceTestSuite) TestCreateArtefactRejectsBadSlug() {
	_, _, err := suite.svc.Artefacts.CreateArtefact(suite.ctx, models.CreateArtefactRequest{
		Slug: "it's-a-nice-day", Name: "Nice", Kind: "answer", Format: models.FormatAnswer,
	}, suite.writer)

	var verr *models.ErrorValidation
	suite.Require().True(errors.As(err, &verr))
	suite.Contains(verr.Fields, "slug")

	artefacts, err := suite.svc.Artefacts.GetArtefacts(suite.ctx, "")
	suite.Require().NoError(err)
	suite.Empty(artefacts)
}

func (suite *ServiceTestSuite) TestProgrammeSeedsDefaultParts() {
	_, e := suite.createDocument("programme", models.FormatProgramme, "child-benefit")
	suite.Len(suite.reload(e.ID).Parts, 5)
}

func (suite *ServiceTestSuite) TestTravelAdviceRegistration() {
	_, e := suite.createDocument("travel-advice", models.FormatTravelAdvice, "foreign-travel-advice/aruba")
	suite.Equal("aruba", suite.reload(e.ID).Detail("country_slug"))
}

func (suite *ServiceTestSuite) TestCloneOfUnpublishedEditionFails() {
	artefact, e := suite.createDocument("answer", models.FormatAnswer, "draft-only")

	_, err := suite.svc.Clones.CreateClone(suite.ctx, e.ID, "", suite.writer)

	var guard *models.ErrorGuardViolation
	suite.Require().True(errors.As(err, &guard))
	suite.Equal("cannot clone unpublished edition", guard.Rule)
	suite.Equal(int64(1), suite.seriesCount(artefact.ID))
}

func (suite *ServiceTestSuite) TestCloneOfUnpublishedEditionFailsBeforeFormatCheck() {
	_, e := suite.createDocument("answer", models.FormatAnswer, "draft-bogus-target")

	_, err := suite.svc.Clones.CreateClone(suite.ctx, e.ID, models.Format("bogus"), suite.writer)

	var guard *models.ErrorGuardViolation
	suite.Require().True(errors.As(err, &guard), "got %v", err)
	suite.Equal("cannot clone unpublished edition", guard.Rule)
}

func (suite *ServiceTestSuite) TestCloneRetriesLostVersionRace() {
	_, v1 := suite.createDocument("answer", models.FormatAnswer, "clone-race")
	suite.publish(v1.ID)

	flaky := &flakyEditions{EditionRepository: suite.repos.Editions, failures: 1}
	svc := suite.newServices(&repositories.Repositories{
		Editions:  flaky,
		Artefacts: suite.repos.Artefacts,
		Tags:      suite.repos.Tags,
		Users:     suite.repos.Users,
	})

	clone, err := svc.Clones.CreateClone(suite.ctx, v1.ID, "", suite.writer)
	suite.Require().NoError(err)
	suite.Equal(2, clone.VersionNumber)
	suite.Equal(2, flaky.creates)
	suite.Equal(float64(1), testutil.ToFloat64(suite.metrics.ConflictsTotal.WithLabelValues("clone")))
}

func (suite *ServiceTestSuite) TestCloneRetryObservesCompetingEdition() {
	artefact, v1 := suite.createDocument("answer", models.FormatAnswer, "clone-competitor")
	suite.publish(v1.ID)

	racing := &racingEditions{EditionRepository: suite.repos.Editions}
	svc := suite.newServices(&repositories.Repositories{
		Editions:  racing,
		Artefacts: suite.repos.Artefacts,
		Tags:      suite.repos.Tags,
		Users:     suite.repos.Users,
	})

	_, err := svc.Clones.CreateClone(suite.ctx, v1.ID, "", suite.writer)

	var guard *models.ErrorGuardViolation
	suite.Require().True(errors.As(err, &guard), "got %v", err)
	suite.Equal("in-progress edition already exists", guard.Rule)
	suite.Equal(int64(2), suite.seriesCount(artefact.ID))
}

func (suite *ServiceTestSuite) TestCloneIncrementsVersionAndKeepsOneInProgress() {
	artefact, e := suite.createDocument("answer", models.FormatAnswer, "one-in-progress")
	suite.publish(e.ID)

	clone, err := suite.svc.Clones.CreateClone(suite.ctx, e.ID, "", suite.writer)
	suite.Require().NoError(err)
	suite.Equal(2, clone.VersionNumber)
	suite.Equal(models.StateDraft, clone.State)
	suite.Equal("wendy", clone.Creator)
	suite.Empty(clone.Publisher)

	_, err = suite.svc.Clones.CreateClone(suite.ctx, e.ID, "", suite.writer)
	var guard *models.ErrorGuardViolation
	suite.Require().True(errors.As(err, &guard))
	suite.Equal("in-progress edition already exists", guard.Rule)
	suite.Equal(int64(2), suite.seriesCount(artefact.ID))
}

func (suite *ServiceTestSuite) TestCloneSameFormatCopiesPayload() {
	_, e := suite.createDocument("guide", models.FormatGuide, "guide-clone")
	_, err := suite.update(e.ID, models.UpdateEditionRequest{
		Details: map[string]interface{}{"video_url": "https://example.com/v"},
		Parts: &[]models.PartRequest{
			{Title: "Intro", Slug: "intro", Body: "Hello"},
			{Title: "Detail", Slug: "detail", Body: "More"},
		},
		Tags: &[]string{"benefits"},
	})
	suite.Require().NoError(err)
	suite.publish(e.ID)

	clone, err := suite.svc.Clones.CreateClone(suite.ctx, e.ID, "", suite.writer)
	suite.Require().NoError(err)

	stored := suite.reload(clone.ID)
	suite.Equal("https://example.com/v", stored.Detail("video_url"))
	suite.Require().Len(stored.Parts, 2)
	suite.Equal("intro", stored.Parts[0].Slug)
	suite.NotEqual(suite.reload(e.ID).Parts[0].ID, stored.Parts[0].ID)
	suite.Require().Len(stored.Tags, 1)
	suite.Equal("benefits", stored.Tags[0].Name)
}

func (suite *ServiceTestSuite) TestCloneTransactionToAnswerCopiesBaseFieldsOnly() {
	_, e := suite.createDocument("transaction", models.FormatTransaction, "renew-licence")
	_, err := suite.update(e.ID, models.UpdateEditionRequest{
		Overview: strPtr("Renew online"),
		Details:  map[string]interface{}{"introduction": "Intro", "link": "https://example.com"},
	})
	suite.Require().NoError(err)
	suite.publish(e.ID)

	clone, err := suite.svc.Clones.CreateClone(suite.ctx, e.ID, models.FormatAnswer, suite.writer)
	suite.Require().NoError(err)

	stored := suite.reload(clone.ID)
	suite.Equal(models.FormatAnswer, stored.Format)
	suite.Equal("Renew online", stored.Overview)
	suite.Empty(stored.Detail("body"))
	suite.Empty(stored.Detail("introduction"))
}

func (suite *ServiceTestSuite) TestCloneGuideToAnswerMigratesParts() {
	_, e := suite.createDocument("guide", models.FormatGuide, "guide-to-answer")
	_, err := suite.update(e.ID, models.UpdateEditionRequest{
		Parts: &[]models.PartRequest{
			{Title: "PART !", Slug: "part-one", Body: "This is some version text."},
			{Title: "PART !!", Slug: "part-two", Body: "This is some more version text."},
		},
	})
	suite.Require().NoError(err)
	suite.publish(e.ID)

	clone, err := suite.svc.Clones.CreateClone(suite.ctx, e.ID, models.FormatAnswer, suite.writer)
	suite.Require().NoError(err)

	suite.Equal("# PART !\n\nThis is some version text.\n\n# PART !!\n\nThis is some more version text.", suite.reload(clone.ID).Detail("body"))
}

func (suite *ServiceTestSuite) TestCloneAnswerToGuideBuildsOnePart() {
	_, e := suite.createDocument("answer", models.FormatAnswer, "answer-to-guide")
	_, err := suite.update(e.ID, models.UpdateEditionRequest{Details: map[string]interface{}{"body": "Whole answer"}})
	suite.Require().NoError(err)
	suite.publish(e.ID)

	clone, err := suite.svc.Clones.CreateClone(suite.ctx, e.ID, models.FormatGuide, suite.writer)
	suite.Require().NoError(err)

	parts := suite.reload(clone.ID).Parts
	suite.Require().Len(parts, 1)
	suite.Equal("Part One", parts[0].Title)
	suite.Equal("part-one", parts[0].Slug)
	suite.Equal("Whole answer", parts[0].Body)
}

func (suite *ServiceTestSuite) TestPublishArchivesPreviousPublishedSiblings() {
	artefact, v1 := suite.createDocument("answer", models.FormatAnswer, "supersede")
	suite.publish(v1.ID)

	v2, err := suite.svc.Clones.CreateClone(suite.ctx, v1.ID, "", suite.writer)
	suite.Require().NoError(err)
	published := suite.publish(v2.ID)
	suite.Equal(models.StatePublished, published.State)

	old := suite.reload(v1.ID)
	suite.Equal(models.StateArchived, old.State)
	suite.Equal("system", old.Archiver)

	latest, err := suite.svc.Editions.(*editionService).series.LatestPublished(suite.ctx, artefact.ID)
	suite.Require().NoError(err)
	suite.Equal(v2.ID, latest.ID)
}

func (suite *ServiceTestSuite) TestPublishLeavesHigherVersionsAlone() {
	artefact, v1 := suite.createDocument("answer", models.FormatAnswer, "higher-versions")
	suite.publish(v1.ID)
	v2, err := suite.svc.Clones.CreateClone(suite.ctx, v1.ID, "", suite.writer)
	suite.Require().NoError(err)

	v3 := &models.Edition{
		DocumentID:    artefact.ID,
		VersionNumber: 3,
		Format:        models.FormatAnswer,
		State:         models.StateDraft,
		Title:         "Later draft",
		Slug:          artefact.Slug,
	}
	suite.Require().NoError(suite.repos.Editions.Create(suite.ctx, v3))

	published, err := suite.svc.Publication.EmergencyPublish(suite.ctx, v2.ID, suite.admin)
	suite.Require().NoError(err)
	suite.Equal(models.StatePublished, published.State)

	suite.Equal(models.StateArchived, suite.reload(v1.ID).State)
	later := suite.reload(v3.ID)
	suite.Equal(models.StateDraft, later.State)
	suite.Equal(v3.LockVersion, later.LockVersion)
}

func (suite *ServiceTestSuite) TestPublishBelowPublishedVersionIsRefused() {
	artefact, v1 := suite.createDocument("answer", models.FormatAnswer, "lower-version")
	suite.publish(v1.ID)
	v2, err := suite.svc.Clones.CreateClone(suite.ctx, v1.ID, "", suite.writer)
	suite.Require().NoError(err)

	v3 := &models.Edition{
		DocumentID:    artefact.ID,
		VersionNumber: 3,
		Format:        models.FormatAnswer,
		State:         models.StatePublished,
		Title:         "Newer release",
		Slug:          artefact.Slug,
	}
	suite.Require().NoError(suite.repos.Editions.Create(suite.ctx, v3))

	_, err = suite.svc.Publication.EmergencyPublish(suite.ctx, v2.ID, suite.admin)

	var guard *models.ErrorGuardViolation
	suite.Require().True(errors.As(err, &guard), "got %v", err)
	suite.Equal("a newer edition is already published", guard.Rule)
	suite.Equal(models.StateDraft, suite.reload(v2.ID).State)
	suite.Equal(models.StatePublished, suite.reload(v3.ID).State)
	suite.Equal(models.StatePublished, suite.reload(v1.ID).State)
}

func (suite *ServiceTestSuite) TestSeriesSiblingsAndOrdering() {
	artefact, v1 := suite.createDocument("answer", models.FormatAnswer, "series-order")
	suite.publish(v1.ID)
	v2, err := suite.svc.Clones.CreateClone(suite.ctx, v1.ID, "", suite.writer)
	suite.Require().NoError(err)
	suite.publish(v2.ID)
	v3, err := suite.svc.Clones.CreateClone(suite.ctx, v2.ID, "", suite.writer)
	suite.Require().NoError(err)

	series := NewSeries(suite.repos.Editions)

	ordered, err := series.OrderedByVersionDesc(suite.ctx, artefact.ID)
	suite.Require().NoError(err)
	suite.Require().Len(ordered, 3)
	suite.Equal([]int{3, 2, 1}, []int{ordered[0].VersionNumber, ordered[1].VersionNumber, ordered[2].VersionNumber})

	siblings, err := series.SiblingsOf(suite.ctx, suite.reload(v2.ID))
	suite.Require().NoError(err)
	suite.Require().Len(siblings, 2)
	ids := []uint{siblings[0].ID, siblings[1].ID}
	suite.ElementsMatch([]uint{v1.ID, v3.ID}, ids)

	empty, err := series.OrderedByVersionDesc(suite.ctx, "no-such-document")
	suite.Require().NoError(err)
	suite.Empty(empty)
}

func (suite *ServiceTestSuite) TestFailedPublishArchivesNothing() {
	_, v1 := suite.createDocument("answer", models.FormatAnswer, "failed-publish")
	suite.publish(v1.ID)
	v2, err := suite.svc.Clones.CreateClone(suite.ctx, v1.ID, "", suite.writer)
	suite.Require().NoError(err)

	_, err = suite.svc.Publication.Publish(suite.ctx, v2.ID, suite.editor)

	var guard *models.ErrorGuardViolation
	suite.Require().True(errors.As(err, &guard))
	suite.Equal(models.StatePublished, suite.reload(v1.ID).State)
	suite.Equal(models.StateDraft, suite.reload(v2.ID).State)
}

func (suite *ServiceTestSuite) TestEmergencyPublishSkipsReview() {
	_, e := suite.createDocument("answer", models.FormatAnswer, "emergency")

	_, err := suite.svc.Publication.EmergencyPublish(suite.ctx, e.ID, suite.editor)
	var forbidden *models.ErrorForbidden
	suite.Require().True(errors.As(err, &forbidden))

	published, err := suite.svc.Publication.EmergencyPublish(suite.ctx, e.ID, suite.admin)
	suite.Require().NoError(err)
	suite.Equal(models.StatePublished, published.State)
	suite.Equal("ada", published.Publisher)
}

func (suite *ServiceTestSuite) TestArchivedArtefactBlocksEditsExceptArchive() {
	artefact, e := suite.createDocument("answer", models.FormatAnswer, "archived-doc")

	archived := models.ArtefactArchived
	_, err := suite.svc.Artefacts.UpdateArtefact(suite.ctx, artefact.ID, models.UpdateArtefactRequest{State: &archived})
	suite.Require().NoError(err)

	_, err = suite.update(e.ID, models.UpdateEditionRequest{Title: strPtr("New title")})
	var archivedErr *models.ErrorArchivedDocument
	suite.Require().True(errors.As(err, &archivedErr))

	_, err = suite.svc.Editions.Transition(suite.ctx, e.ID, models.TransitionRequest{Action: string(workflow.ActionRequestReview)}, suite.writer)
	suite.Require().True(errors.As(err, &archivedErr))

	out := suite.fire(e.ID, workflow.ActionArchive, suite.editor)
	suite.Equal(models.StateArchived, out.State)
	suite.Equal("Document archived-doc", suite.reload(e.ID).Title)
}

func (suite *ServiceTestSuite) TestPublishedEditionIsImmutable() {
	_, e := suite.createDocument("answer", models.FormatAnswer, "immutable")
	suite.publish(e.ID)

	_, err := suite.update(e.ID, models.UpdateEditionRequest{Title: strPtr("Changed")})

	var guard *models.ErrorGuardViolation
	suite.Require().True(errors.As(err, &guard))
	suite.Equal("Document immutable", suite.reload(e.ID).Title)
}

func (suite *ServiceTestSuite) TestUpdateRejectsUnsafeRichText() {
	_, e := suite.createDocument("answer", models.FormatAnswer, "unsafe")

	_, err := suite.update(e.ID, models.UpdateEditionRequest{
		Details: map[string]interface{}{"body": "<script>alert('x')</script>"},
	})

	var verr *models.ErrorValidation
	suite.Require().True(errors.As(err, &verr))
	suite.Contains(verr.Fields, "details.body")
	suite.Empty(suite.reload(e.ID).Detail("body"))
}

func (suite *ServiceTestSuite) TestUpdateWithStaleLockVersionConflicts() {
	_, e := suite.createDocument("answer", models.FormatAnswer, "stale")

	updated, err := suite.update(e.ID, models.UpdateEditionRequest{Title: strPtr("First")})
	suite.Require().NoError(err)
	suite.Equal(1, updated.LockVersion)

	stale := 0
	_, err = suite.update(e.ID, models.UpdateEditionRequest{Title: strPtr("Second"), LockVersion: &stale})
	var conflict *models.ErrorConflict
	suite.Require().True(errors.As(err, &conflict))
	suite.Equal("First", suite.reload(e.ID).Title)
	suite.Equal(float64(1), testutil.ToFloat64(suite.metrics.ConflictsTotal.WithLabelValues("update")))
}

func (suite *ServiceTestSuite) TestDeleteLastEditionDestroysArtefact() {
	artefact, e := suite.createDocument("answer", models.FormatAnswer, "delete-last")

	destroyed, err := suite.svc.Editions.DeleteEdition(suite.ctx, e.ID, suite.editor)
	suite.Require().NoError(err)
	suite.True(destroyed)

	_, err = suite.svc.Artefacts.GetArtefact(suite.ctx, artefact.ID)
	var notFound *models.ErrorNotFound
	suite.True(errors.As(err, &notFound))
}

func (suite *ServiceTestSuite) TestDeleteWithSiblingsKeepsArtefact() {
	artefact, v1 := suite.createDocument("answer", models.FormatAnswer, "delete-sibling")
	suite.publish(v1.ID)
	v2, err := suite.svc.Clones.CreateClone(suite.ctx, v1.ID, "", suite.writer)
	suite.Require().NoError(err)

	destroyed, err := suite.svc.Editions.DeleteEdition(suite.ctx, v2.ID, suite.editor)
	suite.Require().NoError(err)
	suite.False(destroyed)

	_, err = suite.svc.Artefacts.GetArtefact(suite.ctx, artefact.ID)
	suite.NoError(err)

	_, err = suite.svc.Editions.DeleteEdition(suite.ctx, v1.ID, suite.editor)
	var guard *models.ErrorGuardViolation
	suite.True(errors.As(err, &guard))
}

func (suite *ServiceTestSuite) TestUpdateFromArtefactOnlyTouchesInProgress() {
	artefact, v1 := suite.createDocument("answer", models.FormatAnswer, "renamed")
	suite.publish(v1.ID)
	v2, err := suite.svc.Clones.CreateClone(suite.ctx, v1.ID, "", suite.writer)
	suite.Require().NoError(err)

	_, err = suite.svc.Artefacts.UpdateArtefact(suite.ctx, artefact.ID, models.UpdateArtefactRequest{
		Name:    strPtr("Renamed document"),
		Section: strPtr("tax"),
	})
	suite.Require().NoError(err)

	suite.Equal("Renamed document", suite.reload(v2.ID).Title)
	suite.Equal("tax", suite.reload(v2.ID).Section)
	suite.Equal("Document renamed", suite.reload(v1.ID).Title)
}

func (suite *ServiceTestSuite) TestFindAndIdentify() {
	_, v1 := suite.createDocument("answer", models.FormatAnswer, "identify")
	suite.publish(v1.ID)
	v2, err := suite.svc.Clones.CreateClone(suite.ctx, v1.ID, "", suite.writer)
	suite.Require().NoError(err)

	found, err := suite.svc.Editions.FindAndIdentify(suite.ctx, "identify", "")
	suite.Require().NoError(err)
	suite.Equal(v1.ID, found.ID)

	found, err = suite.svc.Editions.FindAndIdentify(suite.ctx, "identify", "latest")
	suite.Require().NoError(err)
	suite.Equal(v2.ID, found.ID)

	found, err = suite.svc.Editions.FindAndIdentify(suite.ctx, "identify", "1")
	suite.Require().NoError(err)
	suite.Equal(v1.ID, found.ID)

	_, err = suite.svc.Editions.FindAndIdentify(suite.ctx, "identify", "7")
	var notFound *models.ErrorNotFound
	suite.True(errors.As(err, &notFound))

	_, err = suite.svc.Editions.FindAndIdentify(suite.ctx, "identify", "first")
	suite.True(errors.As(err, &notFound))

	suite.createDocument("answer", models.FormatAnswer, "identify-draft")
	_, err = suite.svc.Editions.FindAndIdentify(suite.ctx, "identify-draft", "")
	suite.True(errors.As(err, &notFound))
}

func (suite *ServiceTestSuite) TestMetadataIgnoresArchivedMajorUpdates() {
	artefact, v1 := suite.createDocument("answer", models.FormatAnswer, "metadata")
	_, err := suite.update(v1.ID, models.UpdateEditionRequest{
		MajorChange: boolPtr(true),
		ChangeNote:  strPtr("First version"),
	})
	suite.Require().NoError(err)
	suite.publish(v1.ID)

	suite.now = suite.now.Add(24 * time.Hour)
	v2, err := suite.svc.Clones.CreateClone(suite.ctx, v1.ID, "", suite.writer)
	suite.Require().NoError(err)
	_, err = suite.update(v2.ID, models.UpdateEditionRequest{MajorChange: boolPtr(false), ChangeNote: strPtr("Typo")})
	suite.Require().NoError(err)
	suite.publish(v2.ID)

	meta, err := suite.svc.Publication.Metadata(suite.ctx, artefact.ID)
	suite.Require().NoError(err)
	suite.Equal(v2.ID, meta.PublishedEdition.ID)
	suite.Nil(meta.LatestMajorUpdate)
	suite.Empty(meta.ChangeNote)

	first := suite.reload(v1.ID)
	suite.Equal(models.StateArchived, first.State)
	suite.Require().NotNil(meta.PublicUpdatedAt)
	suite.True(meta.PublicUpdatedAt.Equal(first.UpdatedAt))
}

func (suite *ServiceTestSuite) TestMetadataUsesPublishedMajorUpdate() {
	artefact, v1 := suite.createDocument("answer", models.FormatAnswer, "metadata-major")
	suite.publish(v1.ID)

	v2, err := suite.svc.Clones.CreateClone(suite.ctx, v1.ID, "", suite.writer)
	suite.Require().NoError(err)
	_, err = suite.update(v2.ID, models.UpdateEditionRequest{
		MajorChange: boolPtr(true),
		ChangeNote:  strPtr("New eligibility rules"),
	})
	suite.Require().NoError(err)
	suite.publish(v2.ID)

	meta, err := suite.svc.Publication.Metadata(suite.ctx, artefact.ID)
	suite.Require().NoError(err)
	suite.Equal(v2.ID, meta.PublishedEdition.ID)
	suite.Require().NotNil(meta.LatestMajorUpdate)
	suite.Equal(v2.ID, meta.LatestMajorUpdate.ID)
	suite.Equal("New eligibility rules", meta.ChangeNote)
	suite.Require().NotNil(meta.PublicUpdatedAt)
	suite.True(meta.PublicUpdatedAt.Equal(suite.reload(v2.ID).UpdatedAt))
}

func (suite *ServiceTestSuite) TestScheduledPublishing() {
	_, v1 := suite.createDocument("answer", models.FormatAnswer, "scheduled")
	suite.publish(v1.ID)
	v2, err := suite.svc.Clones.CreateClone(suite.ctx, v1.ID, "", suite.writer)
	suite.Require().NoError(err)
	suite.fire(v2.ID, workflow.ActionRequestReview, suite.writer)
	suite.fire(v2.ID, workflow.ActionApproveReview, suite.editor)

	at := suite.now.Add(time.Hour)
	_, err = suite.svc.Editions.Transition(suite.ctx, v2.ID, models.TransitionRequest{
		Action: string(workflow.ActionScheduleForPublishing), PublishAt: &at,
	}, suite.editor)
	suite.Require().NoError(err)

	published, err := suite.svc.Publication.PublishDue(suite.ctx)
	suite.Require().NoError(err)
	suite.Empty(published)

	suite.now = suite.now.Add(2 * time.Hour)
	published, err = suite.svc.Publication.PublishDue(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().Len(published, 1)
	suite.Equal(v2.ID, published[0].ID)
	suite.Equal("system", published[0].Publisher)
	suite.Equal(models.StateArchived, suite.reload(v1.ID).State)
}

func (suite *ServiceTestSuite) TestTagUsageRecountedOnPublish() {
	_, e := suite.createDocument("answer", models.FormatAnswer, "tagged")
	_, err := suite.update(e.ID, models.UpdateEditionRequest{Tags: &[]string{"tax", "council", "tax"}})
	suite.Require().NoError(err)

	tags, err := suite.svc.Tags.GetTags(suite.ctx, "")
	suite.Require().NoError(err)
	suite.Len(tags, 2)
	for _, tag := range tags {
		suite.Zero(tag.UsageCount)
	}

	suite.publish(e.ID)

	tags, err = suite.svc.Tags.GetTags(suite.ctx, models.TagTypeTopic)
	suite.Require().NoError(err)
	for _, tag := range tags {
		suite.Equal(1, tag.UsageCount, tag.Name)
	}
}

func (suite *ServiceTestSuite) TestIndexableContent() {
	_, e := suite.createDocument("travel-advice", models.FormatTravelAdvice, "foreign-travel-advice/narnia")
	_, err := suite.update(e.ID, models.UpdateEditionRequest{
		Details: map[string]interface{}{"summary": "## The Summary"},
		Parts: &[]models.PartRequest{
			{Title: "Part One", Slug: "part-one", Body: "Some text"},
			{Title: "More info", Slug: "more-info", Body: "Some more information"},
		},
	})
	suite.Require().NoError(err)

	text, err := suite.svc.Editions.IndexableContent(suite.ctx, e.ID)
	suite.Require().NoError(err)
	suite.Equal("The Summary Part One Some text More info Some more information", text)
}

func (suite *ServiceTestSuite) TestAvailableActions() {
	_, e := suite.createDocument("answer", models.FormatAnswer, "actions")

	actions, err := suite.svc.Editions.AvailableActions(suite.ctx, e.ID, suite.writer)
	suite.Require().NoError(err)
	suite.Equal([]workflow.Action{workflow.ActionRequestReview}, actions)
}

func (suite *ServiceTestSuite) TestAuthRegisterAndLogin() {
	res, err := suite.svc.Auth.Register(suite.ctx, models.RegisterRequest{
		Username: "wendy", Email: "wendy@example.com", Password: "secret1",
	})
	suite.Require().NoError(err)
	suite.NotEmpty(res.Token)
	suite.Equal(models.RoleWriter, res.User.Role)
	suite.NotEqual("secret1", res.User.Password)

	_, err = suite.svc.Auth.Register(suite.ctx, models.RegisterRequest{
		Username: "wendy2", Email: "wendy@example.com", Password: "secret1",
	})
	var conflict *models.ErrorConflict
	suite.True(errors.As(err, &conflict))

	login, err := suite.svc.Auth.Login(suite.ctx, models.LoginRequest{Email: "wendy@example.com", Password: "secret1"})
	suite.Require().NoError(err)
	suite.Equal(res.User.ID, login.User.ID)

	_, err = suite.svc.Auth.Login(suite.ctx, models.LoginRequest{Email: "wendy@example.com", Password: "wrong"})
	var unauthorized *models.ErrorUnauthorized
	suite.True(errors.As(err, &unauthorized))

	_, err = suite.svc.Auth.Login(suite.ctx, models.LoginRequest{Email: "nobody@example.com", Password: "secret1"})
	suite.True(errors.As(err, &unauthorized))
}

func (suite *ServiceTestSuite) TestCreateTagRejectsDuplicates() {
	tag, err := suite.svc.Tags.CreateTag(suite.ctx, models.CreateTagRequest{Name: "housing"})
	suite.Require().NoError(err)
	suite.Equal(models.TagTypeTopic, tag.Type)

	_, err = suite.svc.Tags.CreateTag(suite.ctx, models.CreateTagRequest{Name: "housing", Type: models.TagTypeSection})
	var conflict *models.ErrorConflict
	suite.True(errors.As(err, &conflict))
}

func boolPtr(b bool) *bool { return &b }

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func TestKeyedMutexSerialisesPerKey(t *testing.T) {
	k := newKeyedMutex()
	var mu sync.Mutex
	inside := 0
	maxInside := 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("doc")
			mu.Lock()
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInside)
	assert.Zero(t, k.size())
}

func TestRetryOnConflict(t *testing.T) {
	g := &engine{log: logger.Nop(), metrics: metrics.NewMetrics(prometheus.NewRegistry())}

	calls := 0
	err := g.retryOnConflict(context.Background(), "test", func() error {
		calls++
		if calls == 1 {
			return &models.ErrorConflict{Message: "lost"}
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	err = g.retryOnConflict(context.Background(), "test", func() error {
		calls++
		return &models.ErrorConflict{Message: "lost"}
	})
	var conflict *models.ErrorConflict
	assert.True(t, errors.As(err, &conflict))
	assert.Equal(t, 2, calls)

	calls = 0
	err = g.retryOnConflict(context.Background(), "test", func() error {
		calls++
		return errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, calls)
}

// flakyEditions reports a version conflict on the first failures creates.
type flakyEditions struct {
	repositories.EditionRepository
	failures int
	creates  int
}

func (f *flakyEditions) Create(ctx context.Context, e *models.Edition) error {
	f.creates++
	if f.creates <= f.failures {
		return &models.ErrorConflict{Message: "version number taken"}
	}
	return f.EditionRepository.Create(ctx, e)
}

// racingEditions stores a competing draft with the same version just before the first create.
type racingEditions struct {
	repositories.EditionRepository
	raced bool
}

func (r *racingEditions) Create(ctx context.Context, e *models.Edition) error {
	if !r.raced {
		r.raced = true
		competitor := &models.Edition{
			DocumentID:    e.DocumentID,
			VersionNumber: e.VersionNumber,
			Format:        e.Format,
			State:         models.StateDraft,
			Title:         "Competing draft",
			Slug:          e.Slug,
		}
		if err := r.EditionRepository.Create(ctx, competitor); err != nil {
			return err
		}
	}
	return r.EditionRepository.Create(ctx, e)
}
