package job

import (
	"context"
	"fmt"

	"github.com/yuukich1/3x-ui-bot/config"
	"github.com/yuukich1/3x-ui-bot/database/model"
	"github.com/yuukich1/3x-ui-bot/logger"
)

// UserLister 列出本地尚未保存链接的用户
type UserLister interface {
	FindWithoutLink() ([]model.User, error)
}

// Reconciler 把面板上已存在的链接写回本地
type Reconciler interface {
	Reconcile(ctx context.Context, username string) (bool, error)
}

// AdminNotifier 向管理员发送通知
type AdminNotifier interface {
	SendMsgToTgbotAdmins(ctx context.Context, msg string)
	IsRunning() bool
}

// ReconcileLinksJob 周期性补齐本地缺失的链接
type ReconcileLinksJob struct {
	users      UserLister
	reconciler Reconciler
	notifier   AdminNotifier
}

func NewReconcileLinksJob(users UserLister, reconciler Reconciler, notifier AdminNotifier) *ReconcileLinksJob {
	return &ReconcileLinksJob{
		users:      users,
		reconciler: reconciler,
		notifier:   notifier,
	}
}

func (j *ReconcileLinksJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), config.ReconcileTimeout)
	defer cancel()

	saved, failed := j.RunOnce(ctx)
	if saved == 0 && failed == 0 {
		return
	}
	logger.Infof("链接对账完成: 写入 %d, 失败 %d", saved, failed)
	if saved > 0 && j.notifier != nil && j.notifier.IsRunning() {
		j.notifier.SendMsgToTgbotAdmins(ctx, fmt.Sprintf("🔄 Восстановлено ссылок: %d", saved))
	}
}

// RunOnce 执行一次对账，返回写入与失败的数量
func (j *ReconcileLinksJob) RunOnce(ctx context.Context) (saved, failed int) {
	users, err := j.users.FindWithoutLink()
	if err != nil {
		logger.Warning("读取待对账用户失败:", err)
		return 0, 0
	}
	for _, u := range users {
		if ctx.Err() != nil {
			logger.Warning("链接对账超时，剩余用户下次处理")
			return saved, failed
		}
		ok, err := j.reconciler.Reconcile(ctx, u.Username)
		if err != nil {
			logger.Warningf("对账 %s 失败: %v", u.Username, err)
			failed++
			continue
		}
		if ok {
			saved++
		}
	}
	return saved, failed
}
