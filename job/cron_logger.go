package job

import (
	"github.com/yuukich1/3x-ui-bot/logger"
)

type CronLogger struct{}

func (l CronLogger) Info(msg string, keysAndValues ...any) {
	logger.Debugf("[Cron] %s %v", msg, keysAndValues)
}

func (l CronLogger) Error(err error, msg string, keysAndValues ...any) {
	logger.Errorf("[PANIC RECOVER] [Cron] %s: %v %v", msg, err, keysAndValues)
}
