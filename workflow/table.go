package workflow

import (
	"context"

	"edition-publisher/models"
)

var (
	writers = []models.UserRole{models.RoleWriter, models.RoleEditor, models.RoleAdmin}
	editors = []models.UserRole{models.RoleEditor, models.RoleAdmin}
	admins  = []models.UserRole{models.RoleAdmin}
)

// DefaultTable is the editorial workflow.
func DefaultTable() []Transition {
	return []Transition{
		{
			Action: ActionStartWork,
			From:   []models.State{models.StateLinedUp},
			To:     models.StateDraft,
			Roles:  writers,
			Stamp:  func(env Env) { env.Edition.Assignee = env.Actor.Ref() },
		},
		{
			Action: ActionRequestReview,
			From:   []models.State{models.StateDraft, models.StateAmendsNeeded},
			To:     models.StateInReview,
			Roles:  writers,
			Stamp: func(env Env) {
				now := env.Now
				env.Edition.Assignee = env.Actor.Ref()
				env.Edition.Reviewer = ""
				env.Edition.ReviewRequestedAt = &now
			},
		},
		{
			Action: ActionApproveReview,
			From:   []models.State{models.StateInReview},
			To:     models.StateReady,
			Roles:  editors,
			Guards: []Guard{notOwnReview},
			Stamp:  stampReviewer,
		},
		{
			Action: ActionRequestAmendments,
			From:   []models.State{models.StateInReview, models.StateFactCheckReceived, models.StateReady},
			To:     models.StateAmendsNeeded,
			Roles:  editors,
			Guards: []Guard{notOwnReview},
			Stamp: func(env Env) {
				env.Edition.Reviewer = env.Actor.Ref()
				env.Edition.RejectedCount++
			},
		},
		{
			Action: ActionSendFactCheck,
			From:   []models.State{models.StateReady},
			To:     models.StateFactCheck,
			Roles:  editors,
		},
		{
			Action: ActionReceiveFactCheck,
			From:   []models.State{models.StateFactCheck},
			To:     models.StateFactCheckReceived,
			Roles:  editors,
		},
		{
			Action: ActionApproveFactCheck,
			From:   []models.State{models.StateFactCheckReceived},
			To:     models.StateReady,
			Roles:  editors,
			Stamp:  stampReviewer,
		},
		{
			Action: ActionSkipFactCheck,
			From:   []models.State{models.StateFactCheck},
			To:     models.StateReady,
			Roles:  editors,
		},
		{
			Action: ActionScheduleForPublishing,
			From:   []models.State{models.StateReady},
			To:     models.StateScheduledForPublishing,
			Roles:  editors,
			Guards: []Guard{publishAtInFuture, noNewerPublishedSibling},
			Stamp: func(env Env) {
				at := *env.PublishAt
				env.Edition.PublishAt = &at
				env.Edition.Publisher = env.Actor.Ref()
			},
		},
		{
			Action: ActionCancelScheduledPublishing,
			From:   []models.State{models.StateScheduledForPublishing},
			To:     models.StateReady,
			Roles:  editors,
			Stamp:  func(env Env) { env.Edition.PublishAt = nil },
		},
		{
			Action: ActionPublish,
			From:   []models.State{models.StateReady, models.StateScheduledForPublishing},
			To:     models.StatePublished,
			Roles:  editors,
			Guards: []Guard{noNewerPublishedSibling},
			Stamp:  stampPublisher,
		},
		{
			Action: ActionEmergencyPublish,
			From: []models.State{
				models.StateDraft, models.StateAmendsNeeded, models.StateInReview,
				models.StateFactCheck, models.StateFactCheckReceived, models.StateReady,
			},
			To:     models.StatePublished,
			Roles:  admins,
			Guards: []Guard{noNewerPublishedSibling},
			Stamp:  stampPublisher,
		},
		{
			Action: ActionArchive,
			From: []models.State{
				models.StateLinedUp, models.StateDraft, models.StateInReview, models.StateAmendsNeeded,
				models.StateFactCheck, models.StateFactCheckReceived, models.StateReady,
				models.StateScheduledForPublishing, models.StatePublished,
			},
			To:    models.StateArchived,
			Roles: editors,
			Stamp: func(env Env) { env.Edition.Archiver = env.Actor.Ref() },
		},
	}
}

// NewDefault returns a machine over DefaultTable.
func NewDefault() *Machine {
	return New(DefaultTable())
}

func stampReviewer(env Env) {
	env.Edition.Reviewer = env.Actor.Ref()
}

func stampPublisher(env Env) {
	now := env.Now
	env.Edition.Publisher = env.Actor.Ref()
	env.Edition.PublishedAt = &now
}

func notOwnReview(_ context.Context, env Env) error {
	if env.Edition.State == models.StateInReview && env.Edition.Assignee != "" && env.Edition.Assignee == env.Actor.Ref() {
		return &models.ErrorGuardViolation{Rule: "cannot review own work"}
	}
	return nil
}

func publishAtInFuture(_ context.Context, env Env) error {
	if env.PublishAt == nil || !env.PublishAt.After(env.Now) {
		return &models.ErrorGuardViolation{Rule: "publish_at must be in the future"}
	}
	return nil
}

// noNewerPublishedSibling refuses to publish over a higher version that is already published,
// since supersession only archives lower versions.
func noNewerPublishedSibling(ctx context.Context, env Env) error {
	if env.Series == nil {
		return nil
	}
	later, err := env.Series.SubsequentSiblings(ctx, env.Edition)
	if err != nil {
		return err
	}
	for _, s := range later {
		if s.State == models.StatePublished {
			return &models.ErrorGuardViolation{Rule: "a newer edition is already published"}
		}
	}
	return nil
}
