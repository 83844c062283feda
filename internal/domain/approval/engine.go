package approval

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"leaveflow/internal/domain/directory"
	"leaveflow/internal/platform/apperror"
	"leaveflow/internal/platform/logger"
)

// Directory is the slice of the user directory routing needs.
type Directory interface {
	Get(id string) (directory.User, error)
	FirstByRole(exclude string, roles ...directory.Role) (directory.User, bool)
}

// Delegations resolves who currently holds a user's authority.
type Delegations interface {
	ResolveActiveDelegate(userID string, now time.Time) (string, bool)
}

// EffectiveActor separates the person deciding from the authority they use.
type EffectiveActor struct {
	RealID     string `json:"realId"`
	ActingAsID string `json:"actingAsId"`
}

// Delegated reports whether RealID acts on someone else's authority.
func (a EffectiveActor) Delegated() bool {
	return a.RealID != a.ActingAsID
}

var executives = []directory.Role{directory.RoleMD, directory.RoleDirector}

type Engine struct {
	users       Directory
	delegations Delegations
	logger      *zap.Logger
}

func NewEngine(users Directory, delegations Delegations, l *zap.Logger) *Engine {
	return &Engine{
		users:       users,
		delegations: delegations,
		logger:      logger.Named(l, "approval.engine"),
	}
}

// ResolveActingIdentity returns the actor acting as currentApproverID when the
// current approver has an active delegation to actorID at now, and as
// themselves otherwise.
func (e *Engine) ResolveActingIdentity(actorID, currentApproverID string, now time.Time) EffectiveActor {
	actor := EffectiveActor{RealID: actorID, ActingAsID: actorID}
	if currentApproverID == "" || currentApproverID == actorID || e.delegations == nil {
		return actor
	}
	if delegate, ok := e.delegations.ResolveActiveDelegate(currentApproverID, now); ok && delegate == actorID {
		actor.ActingAsID = currentApproverID
	}
	return actor
}

// IsFinalAuthority decides whether a decision taken with actingFor's authority
// closes the chain.
func IsFinalAuthority(actingFor directory.ApprovalAuthority, explicitFinal bool) (bool, error) {
	if actingFor.IsFinal() {
		return true, nil
	}
	if !explicitFinal {
		return false, nil
	}
	if !actingFor.CanFinalize() {
		return false, ErrFinalNotPermitted
	}
	return true, nil
}

// InitialApprover picks the first approver of a new request.
func (e *Engine) InitialApprover(requester directory.User) (string, error) {
	var candidate directory.User
	switch {
	case len(requester.SequentialApprovers) > 0:
		u, err := e.lookup(requester.SequentialApprovers[0])
		if err != nil {
			return "", err
		}
		candidate = u
	default:
		u, ok := e.users.FirstByRole(requester.ID, directory.RoleHR)
		if !ok && requester.Role.InterceptsExecutiveRouting() {
			u, ok = e.users.FirstByRole(requester.ID, executives...)
		}
		if !ok {
			return "", e.deadEnd(requester.ID, requester.ID)
		}
		candidate = u
	}
	return e.intercept(requester, requester.Role, candidate)
}

// NextApprover resolves who acts after actingForID on requester's request.
func (e *Engine) NextApprover(requester directory.User, actingForID string) (string, error) {
	actingFor, err := e.lookup(actingForID)
	if err != nil {
		return "", err
	}

	var candidate directory.User
	idx := requester.ApproverIndex(actingForID)
	if idx >= 0 && idx < len(requester.SequentialApprovers)-1 {
		candidate, err = e.lookup(requester.SequentialApprovers[idx+1])
		if err != nil {
			return "", err
		}
	} else {
		u, ok := e.fallback(requester, actingFor.Role)
		if !ok {
			return "", e.deadEnd(requester.ID, actingForID)
		}
		candidate = u
	}
	return e.intercept(requester, actingFor.Role, candidate)
}

// fallback is HR, or the executive when the one routing already intercepts
// executive traffic.
func (e *Engine) fallback(requester directory.User, from directory.Role) (directory.User, bool) {
	if from.InterceptsExecutiveRouting() {
		return e.users.FirstByRole(requester.ID, executives...)
	}
	return e.users.FirstByRole(requester.ID, directory.RoleHR)
}

func (e *Engine) intercept(requester directory.User, from directory.Role, candidate directory.User) (string, error) {
	if !candidate.Role.IsExecutive() || from.InterceptsExecutiveRouting() {
		return candidate.ID, nil
	}
	hr, ok := e.users.FirstByRole(requester.ID, directory.RoleHR)
	if !ok {
		e.logger.Warn("executive routing without HR",
			zap.String("requester_id", requester.ID),
			zap.String("executive_id", candidate.ID),
		)
		return "", apperror.Wrapf(ErrNoApprover, "no HR user to route %s through before %s", requester.ID, candidate.ID)
	}
	e.logger.Debug("executive routing intercepted",
		zap.String("requester_id", requester.ID),
		zap.String("executive_id", candidate.ID),
		zap.String("hr_id", hr.ID),
	)
	return hr.ID, nil
}

func (e *Engine) lookup(id string) (directory.User, error) {
	u, err := e.users.Get(id)
	if err != nil {
		if errors.Is(err, directory.ErrUserNotFound) {
			e.logger.Warn("approver missing from directory", zap.String("user_id", id))
			return directory.User{}, apperror.Wrapf(ErrNoApprover, "unknown approver %s", id)
		}
		return directory.User{}, err
	}
	return u, nil
}

func (e *Engine) deadEnd(requesterID, actingForID string) error {
	e.logger.Warn("approval routing dead end",
		zap.String("requester_id", requesterID),
		zap.String("acting_for_id", actingForID),
	)
	return apperror.Wrapf(ErrNoApprover, "nothing follows %s for requester %s", actingForID, requesterID)
}
