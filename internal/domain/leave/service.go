package leave

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"leaveflow/internal/domain/approval"
	"leaveflow/internal/domain/balance"
	"leaveflow/internal/domain/directory"
	"leaveflow/internal/events"
	"leaveflow/internal/platform/apperror"
	"leaveflow/internal/platform/jobs"
	"leaveflow/internal/platform/logger"
	"leaveflow/internal/platform/metrics"
)

type Users interface {
	Get(id string) (directory.User, error)
}

type WorkingDayCounter interface {
	WorkingDays(start, end time.Time) (float64, error)
}

type Ledger interface {
	Deduct(userID string, leaveType balance.LeaveType, nature balance.Nature, quantity float64) (balance.Charge, error)
	Restore(userID string, charge balance.Charge) error
}

type Delegations interface {
	DelegatorsOf(delegateID string, now time.Time) []string
}

type Router interface {
	ResolveActingIdentity(actorID, currentApproverID string, now time.Time) approval.EffectiveActor
	InitialApprover(requester directory.User) (string, error)
	NextApprover(requester directory.User, actingForID string) (string, error)
}

type Notifier interface {
	Create(ctx context.Context, userID, ntype, title, body string) error
}

// Dispatcher runs side effects after a transition has committed.
type Dispatcher interface {
	Enqueue(jobType, key string, run func(context.Context) error)
}

type Options struct {
	Store       StoreAPI
	Users       Users
	Calendar    WorkingDayCounter
	Ledger      Ledger
	Delegations Delegations
	Router      Router
	Publisher   events.Publisher
	Notifier    Notifier
	Jobs        Dispatcher
	Metrics     *metrics.Collector
	Now         func() time.Time
	Logger      *zap.Logger
}

// Service owns every leave request transition. mu makes each transition
// atomic across the request, the ledger and routing reads.
type Service struct {
	mu sync.Mutex

	store       StoreAPI
	users       Users
	calendar    WorkingDayCounter
	ledger      Ledger
	delegations Delegations
	router      Router
	publisher   events.Publisher
	notifier    Notifier
	jobs        Dispatcher
	metrics     *metrics.Collector
	now         func() time.Time
	logger      *zap.Logger
}

func NewService(opts Options) *Service {
	s := &Service{
		store:       opts.Store,
		users:       opts.Users,
		calendar:    opts.Calendar,
		ledger:      opts.Ledger,
		delegations: opts.Delegations,
		router:      opts.Router,
		publisher:   opts.Publisher,
		notifier:    opts.Notifier,
		jobs:        opts.Jobs,
		metrics:     opts.Metrics,
		now:         opts.Now,
		logger:      logger.Named(opts.Logger, "leave.service"),
	}
	if s.store == nil {
		s.store = NewStore()
	}
	if s.publisher == nil {
		s.publisher = events.NoopPublisher{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

type notice struct {
	userID string
	ntype  string
	title  string
	body   string
}

// effects are published once the transition has been stored.
type effects struct {
	event   events.LeaveEvent
	notices []notice
}

type transitionFunc func(ctx context.Context, now time.Time) (LeaveRequest, *effects, error)

func (s *Service) transition(ctx context.Context, action string, fn transitionFunc) (LeaveRequest, error) {
	s.mu.Lock()
	req, fx, err := fn(ctx, s.now())
	s.mu.Unlock()

	if err != nil {
		s.metrics.Refused(action, apperror.CodeOf(err))
		s.logger.Warn("leave transition refused",
			zap.String("action", action),
			zap.String("code", apperror.CodeOf(err)),
			zap.Error(err),
		)
		return LeaveRequest{}, err
	}
	s.metrics.Transition(action, string(req.Status))
	s.logger.Info("leave transition",
		zap.String("action", action),
		zap.String("leave_id", req.ID),
		zap.String("status", string(req.Status)),
		zap.String("current_approver_id", req.CurrentApproverID),
		zap.Int64("version", req.Version),
	)
	if fx != nil {
		s.dispatch(ctx, fx)
	}
	return req, nil
}

func (s *Service) dispatch(ctx context.Context, fx *effects) {
	event := fx.event
	publish := func(ctx context.Context) error {
		return s.publisher.PublishLeaveEvent(ctx, event)
	}
	s.run(ctx, jobs.JobPublishEvent, event.LeaveID, publish)

	if s.notifier == nil {
		return
	}
	for _, n := range fx.notices {
		s.run(ctx, jobs.JobNotify, n.userID, func(ctx context.Context) error {
			return s.notifier.Create(ctx, n.userID, n.ntype, n.title, n.body)
		})
	}
}

func (s *Service) run(ctx context.Context, jobType, key string, fn func(context.Context) error) {
	if s.jobs != nil {
		s.jobs.Enqueue(jobType, key, fn)
		return
	}
	if err := fn(ctx); err != nil {
		s.logger.Warn("post-commit side effect failed",
			zap.String("job_type", jobType),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

func (s *Service) load(ctx context.Context, id string, expectedVersion int64) (LeaveRequest, error) {
	req, err := s.store.Get(ctx, id)
	if err != nil {
		return LeaveRequest{}, err
	}
	if expectedVersion != 0 && expectedVersion != req.Version {
		return LeaveRequest{}, apperror.Wrapf(ErrVersionConflict, "expected version %d, current %d", expectedVersion, req.Version)
	}
	return req, nil
}

// save bumps the version and writes next back.
func (s *Service) save(ctx context.Context, next *LeaveRequest, now time.Time) error {
	next.Version++
	next.UpdatedAt = now
	if err := s.store.Update(ctx, *next); err != nil {
		s.logger.Error("leave request write failed", zap.String("leave_id", next.ID), zap.Error(err))
		return err
	}
	return nil
}

// hold makes sure the ledger carries the request's charge. A short request
// is re-resolved against the current casual quota, so its nature and unpaid
// hours follow the new charge.
func (s *Service) hold(req *LeaveRequest) error {
	if req.charge != nil {
		return nil
	}
	charge, err := s.ledger.Deduct(req.UserID, req.Type, req.Nature, req.DaysCalculated)
	if err != nil {
		return err
	}
	req.charge = &charge
	req.Nature = charge.Nature
	if req.Type == balance.TypeShort {
		req.UnpaidLeaveDays = charge.UnpaidHours
	}
	return nil
}

// release gives the request's charge back to the ledger, if it holds one.
func (s *Service) release(req *LeaveRequest) error {
	if req.charge == nil {
		return nil
	}
	if err := s.ledger.Restore(req.UserID, *req.charge); err != nil {
		return err
	}
	req.charge = nil
	return nil
}

func (s *Service) event(eventType string, req LeaveRequest, actor approval.EffectiveActor, now time.Time) events.LeaveEvent {
	evt := events.LeaveEvent{
		EventType:         eventType,
		LeaveID:           req.ID,
		UserID:            req.UserID,
		ActorID:           actor.RealID,
		Status:            string(req.Status),
		CurrentApproverID: req.CurrentApproverID,
		OccurredAt:        now,
	}
	if actor.Delegated() {
		evt.ActingAsID = actor.ActingAsID
	}
	return evt
}

func self(id string) approval.EffectiveActor {
	return approval.EffectiveActor{RealID: id, ActingAsID: id}
}
