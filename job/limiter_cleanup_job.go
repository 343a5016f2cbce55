package job

import (
	"time"

	"github.com/yuukich1/3x-ui-bot/logger"
)

type LimiterCleaner interface {
	Cleanup(idle time.Duration) int
}

// LimiterCleanupJob 清理长时间不活跃的限速条目
type LimiterCleanupJob struct {
	limiter LimiterCleaner
	idle    time.Duration
}

func NewLimiterCleanupJob(limiter LimiterCleaner, idle time.Duration) *LimiterCleanupJob {
	return &LimiterCleanupJob{limiter: limiter, idle: idle}
}

func (j *LimiterCleanupJob) Run() {
	if n := j.limiter.Cleanup(j.idle); n > 0 {
		logger.Debugf("清理限速条目 %d 个", n)
	}
}
