package bootstrap

import (
	"context"

	"github.com/yuukich1/3x-ui-bot/config"
	"github.com/yuukich1/3x-ui-bot/job"
	"github.com/yuukich1/3x-ui-bot/logger"
)

// Runtime 封装应用运行时状态
type Runtime struct {
	App        *App
	Lifecycle  *LifecycleManager
	JobManager *job.Manager
}

// NewRuntime 创建运行时实例
func NewRuntime(app *App) *Runtime {
	return &Runtime{
		App:        app,
		Lifecycle:  NewLifecycleManager(),
		JobManager: job.NewManager(),
	}
}

// Start 注册并启动 Bot、订阅服务与后台任务
func (r *Runtime) Start(ctx context.Context) error {
	if config.GetTelegramConfig().Token != "" {
		r.Lifecycle.Register(NewComponent("telegram",
			func(ctx context.Context) error { return r.App.TgBot.Start(ctx) },
			func(ctx context.Context) error {
				r.App.TgBot.Stop()
				return nil
			},
		))
	} else {
		logger.Warning("Telegram token is empty, bot disabled")
	}

	r.Lifecycle.Register(NewComponent("sub",
		func(ctx context.Context) error { return r.App.SubServer.Start() },
		func(ctx context.Context) error { return r.App.SubServer.Stop() },
	))

	if err := RegisterJobs(r.JobManager, r.App); err != nil {
		return err
	}
	r.Lifecycle.Register(NewComponent("jobs",
		func(ctx context.Context) error {
			r.JobManager.Start()
			return nil
		},
		func(ctx context.Context) error {
			r.JobManager.Stop()
			return nil
		},
	))

	return r.Lifecycle.StartAll(ctx)
}

// TriggerReconcile 立即执行一次链接对账
func (r *Runtime) TriggerReconcile() {
	if !r.JobManager.Trigger(job.ReconcileLinksName) {
		logger.Warning("Link reconcile job is not registered")
	}
}

// StopAll 停止所有服务
func (r *Runtime) StopAll(ctx context.Context) {
	r.Lifecycle.StopAll(ctx)
}
