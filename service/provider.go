package service

import (
	"github.com/yuukich1/3x-ui-bot/database/repository"
	"github.com/yuukich1/3x-ui-bot/panel"

	"github.com/google/wire"
)

// ServiceSet 包含所有服务及其相关的 Provider
var ServiceSet = wire.NewSet(
	NewVlessService,
	NewTgBot,
	// 接口绑定
	wire.Bind(new(PanelAPI), new(*panel.Client)),
	wire.Bind(new(PanelStats), new(*panel.Client)),
	wire.Bind(new(LinkStore), new(repository.UserRepository)),
	wire.Bind(new(UserRegistry), new(repository.UserRepository)),
	wire.Bind(new(LinkProvisioner), new(*VlessService)),
)
