//go:build wireinject
// +build wireinject

package bootstrap

import (
	"github.com/yuukich1/3x-ui-bot/config"
	"github.com/yuukich1/3x-ui-bot/database"
	"github.com/yuukich1/3x-ui-bot/database/repository"
	"github.com/yuukich1/3x-ui-bot/panel"
	"github.com/yuukich1/3x-ui-bot/service"
	"github.com/yuukich1/3x-ui-bot/sub"

	"github.com/google/wire"
)

func InitializeApp() (*App, error) {
	wire.Build(
		config.GetPanelConfig,
		config.GetTelegramConfig,
		config.GetSubConfig,
		database.GetDBProvider,
		panel.NewClient,
		repository.RepositorySet,
		service.ServiceSet,
		sub.NewServer,
		wire.Bind(new(sub.LinkProvider), new(*service.VlessService)),
		NewApp,
	)
	return nil, nil
}
