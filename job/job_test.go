package job

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yuukich1/3x-ui-bot/database/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	users []model.User
	err   error
}

func (f *fakeUsers) FindWithoutLink() ([]model.User, error) {
	return f.users, f.err
}

type fakeReconciler struct {
	mu      sync.Mutex
	results map[string]bool
	errs    map[string]error
	calls   []string
}

func (f *fakeReconciler) Reconcile(ctx context.Context, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, username)
	return f.results[username], f.errs[username]
}

type fakeNotifier struct {
	running bool
	msgs    []string
}

func (f *fakeNotifier) SendMsgToTgbotAdmins(ctx context.Context, msg string) {
	f.msgs = append(f.msgs, msg)
}

func (f *fakeNotifier) IsRunning() bool { return f.running }

func TestReconcileRunOnce(t *testing.T) {
	users := &fakeUsers{users: []model.User{{Username: "alice"}, {Username: "bob"}, {Username: "carol"}}}
	rec := &fakeReconciler{
		results: map[string]bool{"alice": true},
		errs:    map[string]error{"bob": errors.New("transport")},
	}
	j := NewReconcileLinksJob(users, rec, nil)

	saved, failed := j.RunOnce(context.Background())
	assert.Equal(t, 1, saved)
	assert.Equal(t, 1, failed)
	assert.Equal(t, []string{"alice", "bob", "carol"}, rec.calls)
}

func TestReconcileListError(t *testing.T) {
	rec := &fakeReconciler{}
	j := NewReconcileLinksJob(&fakeUsers{err: errors.New("db")}, rec, nil)

	saved, failed := j.RunOnce(context.Background())
	assert.Zero(t, saved)
	assert.Zero(t, failed)
	assert.Empty(t, rec.calls)
}

func TestReconcileStopsOnCancelledContext(t *testing.T) {
	rec := &fakeReconciler{}
	j := NewReconcileLinksJob(&fakeUsers{users: []model.User{{Username: "alice"}}}, rec, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	j.RunOnce(ctx)
	assert.Empty(t, rec.calls)
}

func TestReconcileRunNotifiesAdmins(t *testing.T) {
	rec := &fakeReconciler{results: map[string]bool{"alice": true, "bob": true}}
	n := &fakeNotifier{running: true}
	j := NewReconcileLinksJob(&fakeUsers{users: []model.User{{Username: "alice"}, {Username: "bob"}}}, rec, n)

	j.Run()
	require.Len(t, n.msgs, 1)
	assert.Contains(t, n.msgs[0], "2")

	n.running = false
	n.msgs = nil
	j.Run()
	assert.Empty(t, n.msgs)
}

func TestReconcileRunNothingToDo(t *testing.T) {
	n := &fakeNotifier{running: true}
	j := NewReconcileLinksJob(&fakeUsers{}, &fakeReconciler{}, n)
	j.Run()
	assert.Empty(t, n.msgs)
}

type fakeCleaner struct {
	idle time.Duration
}

func (f *fakeCleaner) Cleanup(idle time.Duration) int {
	f.idle = idle
	return 3
}

func TestLimiterCleanupJob(t *testing.T) {
	c := &fakeCleaner{}
	NewLimiterCleanupJob(c, time.Hour).Run()
	assert.Equal(t, time.Hour, c.idle)
}

type countJob struct {
	n atomic.Int32
}

func (c *countJob) Run() { c.n.Add(1) }

func TestManagerRunsRegisteredJobs(t *testing.T) {
	m := NewManager()
	c := &countJob{}
	require.NoError(t, m.Register("count", "@every 1s", c))
	assert.Equal(t, []string{"count"}, m.Names())

	m.Start()
	assert.Eventually(t, func() bool { return c.n.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	m.Stop()
}

func TestManagerRejectsBadSchedule(t *testing.T) {
	m := NewManager()
	err := m.Register("count", "not a schedule", &countJob{})
	assert.Error(t, err)
	assert.Empty(t, m.Names())
}

func TestManagerReplacesSameName(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register("count", "@every 1h", &countJob{}))
	require.NoError(t, m.Register("count", "@every 2h", &countJob{}))
	assert.Equal(t, []string{"count"}, m.Names())
	assert.Len(t, m.cron.Entries(), 1)
}

func TestManagerTrigger(t *testing.T) {
	m := NewManager()
	c := &countJob{}
	require.NoError(t, m.Register(ReconcileLinksName, "@every 1h", c))

	assert.True(t, m.Trigger(ReconcileLinksName))
	assert.Equal(t, int32(1), c.n.Load())
	assert.False(t, m.Trigger("missing"))

	require.NoError(t, m.Register("panic", "@every 1h", panicJob{}))
	assert.True(t, m.Trigger("panic"))
}

type panicJob struct{}

func (panicJob) Run() { panic("boom") }

func TestManagerRecoversPanics(t *testing.T) {
	m := NewManager()
	c := &countJob{}
	require.NoError(t, m.Register("panic", "@every 1s", panicJob{}))
	require.NoError(t, m.Register("count", "@every 1s", c))

	m.Start()
	assert.Eventually(t, func() bool { return c.n.Load() > 1 }, 4*time.Second, 50*time.Millisecond)
	m.Stop()
}
