package bootstrap

import (
	"testing"

	"github.com/yuukich1/3x-ui-bot/config"
	"github.com/yuukich1/3x-ui-bot/job"
	"github.com/yuukich1/3x-ui-bot/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterJobs(t *testing.T) {
	app := &App{
		TgBot: service.NewTgBot(config.TelegramConfig{}, nil, nil, nil),
	}
	jobs := job.NewManager()

	require.NoError(t, RegisterJobs(jobs, app))
	assert.Equal(t, []string{job.LimiterCleanupName, job.ReconcileLinksName}, jobs.Names())
	assert.True(t, jobs.Trigger(job.LimiterCleanupName))
}
