package bootstrap

import (
	"github.com/yuukich1/3x-ui-bot/config"
	"github.com/yuukich1/3x-ui-bot/job"
)

// RegisterJobs 注册链接对账与限速清理任务
func RegisterJobs(jobs *job.Manager, app *App) error {
	reconcileJob := job.NewReconcileLinksJob(app.UserRepo, app.Vless, app.TgBot)
	if err := jobs.Register(job.ReconcileLinksName, config.GetReconcileSpec(), reconcileJob); err != nil {
		return err
	}

	cleanupJob := job.NewLimiterCleanupJob(app.TgBot.Limiter(), config.LimiterIdleTTL)
	return jobs.Register(job.LimiterCleanupName, config.GetLimiterCleanupSpec(), cleanupJob)
}
