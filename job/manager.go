package job

import (
	"slices"
	"sync"

	"github.com/yuukich1/3x-ui-bot/logger"

	"github.com/robfig/cron/v3"
)

const (
	ReconcileLinksName = "reconcile-links"
	LimiterCleanupName = "limiter-cleanup"
)

type entry struct {
	id   cron.EntryID
	spec string
	job  cron.Job
}

// Manager 按 cron 表达式调度后台任务，表达式支持秒字段与 @every 描述
type Manager struct {
	cron *cron.Cron

	mu   sync.Mutex
	jobs map[string]entry
}

func NewManager() *Manager {
	return &Manager{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(CronLogger{}),
			cron.WithChain(cron.Recover(CronLogger{}), cron.SkipIfStillRunning(CronLogger{})),
		),
		jobs: make(map[string]entry),
	}
}

// Register 注册任务，同名任务会替换旧的调度
func (m *Manager) Register(name, spec string, job cron.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := m.cron.AddJob(spec, job)
	if err != nil {
		logger.Errorf("Failed to register job %s (%s): %v", name, spec, err)
		return err
	}
	if old, ok := m.jobs[name]; ok {
		m.cron.Remove(old.id)
	}
	m.jobs[name] = entry{id: id, spec: spec, job: job}
	logger.Infof("Registered job: %s (%s)", name, spec)
	return nil
}

// Trigger 立即同步执行一次指定任务，任务不存在时返回 false
func (m *Manager) Trigger(name string) bool {
	m.mu.Lock()
	e, ok := m.jobs[name]
	m.mu.Unlock()
	if !ok {
		return false
	}
	logger.Infof("Triggering job: %s", name)
	cron.NewChain(cron.Recover(CronLogger{})).Then(e.job).Run()
	return true
}

func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.jobs))
	for name := range m.jobs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (m *Manager) Start() {
	logger.Info("Starting background jobs:", m.Names())
	m.cron.Start()
}

// Stop 停止调度并等待正在执行的任务结束
func (m *Manager) Stop() {
	logger.Info("Stopping background jobs...")
	<-m.cron.Stop().Done()
	logger.Info("All background jobs stopped")
}
