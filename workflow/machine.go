// Package workflow is the edition state machine. Transitions are data: each entry of the
// table names its source states, target state, permitted roles, guards and the editorial
// metadata it stamps.
package workflow

import (
	"context"
	"fmt"
	"time"

	"edition-publisher/models"
)

type Action string

const (
	ActionStartWork                 Action = "start_work"
	ActionRequestReview             Action = "request_review"
	ActionApproveReview             Action = "approve_review"
	ActionRequestAmendments         Action = "request_amendments"
	ActionSendFactCheck             Action = "send_fact_check"
	ActionReceiveFactCheck          Action = "receive_fact_check"
	ActionApproveFactCheck          Action = "approve_fact_check"
	ActionSkipFactCheck             Action = "skip_fact_check"
	ActionScheduleForPublishing     Action = "schedule_for_publishing"
	ActionCancelScheduledPublishing Action = "cancel_scheduled_publishing"
	ActionPublish                   Action = "publish"
	ActionEmergencyPublish          Action = "emergency_publish"
	ActionArchive                   Action = "archive"
)

// SeriesView is the part of the series accessor that guards consult.
type SeriesView interface {
	SubsequentSiblings(ctx context.Context, e *models.Edition) ([]models.Edition, error)
}

// Env is everything a transition may look at.
type Env struct {
	Edition          *models.Edition
	Actor            models.Actor
	Series           SeriesView
	DocumentArchived bool
	PublishAt        *time.Time
	Now              time.Time
}

type Guard func(ctx context.Context, env Env) error

type Stamp func(env Env)

type Transition struct {
	Action Action
	From   []models.State
	To     models.State
	Roles  []models.UserRole
	Guards []Guard
	Stamp  Stamp
}

func (t *Transition) allowsFrom(s models.State) bool {
	for _, f := range t.From {
		if f == s {
			return true
		}
	}
	return false
}

func (t *Transition) allowsRole(r models.UserRole) bool {
	for _, allowed := range t.Roles {
		if allowed == r {
			return true
		}
	}
	return false
}

type Machine struct {
	transitions map[Action]*Transition
	order       []Action
}

// New builds a machine from a transition table. Later entries replace earlier ones with
// the same action.
func New(table []Transition) *Machine {
	m := &Machine{transitions: map[Action]*Transition{}}
	for i := range table {
		t := table[i]
		if _, seen := m.transitions[t.Action]; !seen {
			m.order = append(m.order, t.Action)
		}
		m.transitions[t.Action] = &t
	}
	return m
}

func (m *Machine) Transition(a Action) (*Transition, bool) {
	t, ok := m.transitions[a]
	return t, ok
}

// Actions lists the known actions in table order.
func (m *Machine) Actions() []Action {
	return append([]Action(nil), m.order...)
}

// Check runs every precondition of action without changing the edition.
func (m *Machine) Check(ctx context.Context, action Action, env Env) (*Transition, error) {
	t, ok := m.transitions[action]
	if !ok {
		return nil, &models.ErrorGuardViolation{Rule: fmt.Sprintf("unknown workflow action %q", action)}
	}
	e := env.Edition

	if env.DocumentArchived && action != ActionArchive {
		return nil, &models.ErrorArchivedDocument{DocumentID: e.DocumentID}
	}
	if !t.allowsFrom(e.State) {
		return nil, &models.ErrorGuardViolation{Rule: fmt.Sprintf("cannot %s an edition in state %s", action, e.State)}
	}
	if !t.allowsRole(env.Actor.Role) {
		return nil, &models.ErrorForbidden{Action: string(action), Role: env.Actor.Role}
	}
	for _, g := range t.Guards {
		if err := g(ctx, env); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Fire checks and applies action to env.Edition. On error the edition is untouched.
func (m *Machine) Fire(ctx context.Context, action Action, env Env) error {
	t, err := m.Check(ctx, action, env)
	if err != nil {
		return err
	}
	if env.Now.IsZero() {
		env.Now = time.Now()
	}
	if t.Stamp != nil {
		t.Stamp(env)
	}
	env.Edition.State = t.To
	return nil
}

// Available returns the actions whose state and role preconditions hold. Guards that need
// storage are not evaluated.
func (m *Machine) Available(e *models.Edition, actor models.Actor) []Action {
	var out []Action
	for _, a := range m.order {
		t := m.transitions[a]
		if t.allowsFrom(e.State) && t.allowsRole(actor.Role) {
			out = append(out, a)
		}
	}
	return out
}

// SetRoles replaces the permitted roles of each listed action.
func (m *Machine) SetRoles(roles map[Action][]models.UserRole) error {
	for a, rs := range roles {
		t, ok := m.transitions[a]
		if !ok {
			return fmt.Errorf("unknown workflow action %q", a)
		}
		t.Roles = append([]models.UserRole(nil), rs...)
	}
	return nil
}
