package approval

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"leaveflow/internal/domain/delegation"
	"leaveflow/internal/domain/directory"
	"leaveflow/internal/platform/apperror"
)

var testNow = time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)

type fixture struct {
	dir    *directory.Directory
	reg    *delegation.Registry
	engine *Engine
}

func newFixture(t *testing.T, users ...directory.User) fixture {
	t.Helper()
	dir := directory.New(zap.NewNop())
	for _, u := range users {
		_, err := dir.Add(u)
		require.NoError(t, err)
	}
	reg := delegation.NewRegistry(dir, func() time.Time { return testNow }, zap.NewNop())
	return fixture{dir: dir, reg: reg, engine: NewEngine(dir, reg, zap.NewNop())}
}

func org() []directory.User {
	return []directory.User{
		{ID: "emp", Role: directory.RoleEmployee, SequentialApprovers: []string{"lead", "mgr"}},
		{ID: "lead", Role: directory.RoleTeamLead},
		{ID: "mgr", Role: directory.RoleManager},
		{ID: "hr", Role: directory.RoleHR},
		{ID: "md", Role: directory.RoleMD},
		{ID: "dir", Role: directory.RoleDirector},
		{ID: "solo", Role: directory.RoleEmployee},
	}
}

func TestSequentialRouting(t *testing.T) {
	f := newFixture(t, org()...)
	emp, err := f.dir.Get("emp")
	require.NoError(t, err)

	first, err := f.engine.InitialApprover(emp)
	require.NoError(t, err)
	assert.Equal(t, "lead", first)

	next, err := f.engine.NextApprover(emp, "lead")
	require.NoError(t, err)
	assert.Equal(t, "mgr", next)

	next, err = f.engine.NextApprover(emp, "mgr")
	require.NoError(t, err)
	assert.Equal(t, "hr", next)

	next, err = f.engine.NextApprover(emp, "hr")
	require.NoError(t, err)
	assert.Equal(t, "md", next)
}

func TestDefaultPathStartsAtHR(t *testing.T) {
	f := newFixture(t, org()...)
	solo, err := f.dir.Get("solo")
	require.NoError(t, err)

	first, err := f.engine.InitialApprover(solo)
	require.NoError(t, err)
	assert.Equal(t, "hr", first)
}

func TestInterceptionRedirectsExecutivesToHR(t *testing.T) {
	users := org()
	users[0].SequentialApprovers = []string{"mgr", "md"}
	f := newFixture(t, users...)
	emp, err := f.dir.Get("emp")
	require.NoError(t, err)

	next, err := f.engine.NextApprover(emp, "mgr")
	require.NoError(t, err)
	assert.Equal(t, "hr", next)

	users[0].SequentialApprovers = []string{"md"}
	f = newFixture(t, users...)
	emp, err = f.dir.Get("emp")
	require.NoError(t, err)
	first, err := f.engine.InitialApprover(emp)
	require.NoError(t, err)
	assert.Equal(t, "hr", first)
}

func TestNeverReachesExecutiveWithoutHR(t *testing.T) {
	f := newFixture(t, org()...)
	for _, requesterID := range []string{"emp", "solo", "lead", "mgr"} {
		requester, err := f.dir.Get(requesterID)
		require.NoError(t, err)
		for _, actor := range []string{"lead", "mgr", "solo", "emp"} {
			if actor == requesterID {
				continue
			}
			next, err := f.engine.NextApprover(requester, actor)
			require.NoError(t, err)
			u, err := f.dir.Get(next)
			require.NoError(t, err)
			assert.False(t, u.Role.IsExecutive(), "requester %s actor %s routed to %s", requesterID, actor, next)
		}
	}
}

func TestHRRequesterGoesToExecutive(t *testing.T) {
	f := newFixture(t,
		directory.User{ID: "hr", Role: directory.RoleHR},
		directory.User{ID: "dir", Role: directory.RoleDirector},
	)
	hr, err := f.dir.Get("hr")
	require.NoError(t, err)

	first, err := f.engine.InitialApprover(hr)
	require.NoError(t, err)
	assert.Equal(t, "dir", first)
}

func TestRoutingDeadEndIsConfigurationError(t *testing.T) {
	f := newFixture(t,
		directory.User{ID: "emp", Role: directory.RoleEmployee},
		directory.User{ID: "mgr", Role: directory.RoleManager},
	)
	emp, err := f.dir.Get("emp")
	require.NoError(t, err)

	_, err = f.engine.InitialApprover(emp)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoApprover))
	assert.Equal(t, apperror.CodeConfiguration, apperror.CodeOf(err))

	_, err = f.engine.NextApprover(emp, "ghost")
	assert.True(t, errors.Is(err, ErrNoApprover))
}

func TestExecutiveWithoutHRIsConfigurationError(t *testing.T) {
	f := newFixture(t,
		directory.User{ID: "emp", Role: directory.RoleEmployee, SequentialApprovers: []string{"md"}},
		directory.User{ID: "md", Role: directory.RoleMD},
	)
	emp, err := f.dir.Get("emp")
	require.NoError(t, err)

	_, err = f.engine.InitialApprover(emp)
	assert.True(t, errors.Is(err, ErrNoApprover))
}

func TestResolveActingIdentity(t *testing.T) {
	f := newFixture(t, org()...)
	_, err := f.reg.Add("mgr", "lead", testNow.Add(-time.Hour), testNow.Add(time.Hour))
	require.NoError(t, err)

	actor := f.engine.ResolveActingIdentity("lead", "mgr", testNow)
	assert.Equal(t, EffectiveActor{RealID: "lead", ActingAsID: "mgr"}, actor)
	assert.True(t, actor.Delegated())

	actor = f.engine.ResolveActingIdentity("lead", "mgr", testNow.Add(2*time.Hour))
	assert.Equal(t, "lead", actor.ActingAsID)
	assert.False(t, actor.Delegated())

	actor = f.engine.ResolveActingIdentity("hr", "mgr", testNow)
	assert.Equal(t, "hr", actor.ActingAsID)
}

func TestIsFinalAuthority(t *testing.T) {
	final, err := IsFinalAuthority(directory.RoleMD, false)
	require.NoError(t, err)
	assert.True(t, final)

	final, err = IsFinalAuthority(directory.RoleHR, false)
	require.NoError(t, err)
	assert.False(t, final)

	final, err = IsFinalAuthority(directory.RoleHR, true)
	require.NoError(t, err)
	assert.True(t, final)

	_, err = IsFinalAuthority(directory.RoleManager, true)
	assert.True(t, errors.Is(err, ErrFinalNotPermitted))
}
