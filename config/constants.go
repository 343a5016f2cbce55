package config

import "time"

// =================================================================
// Telegram Bot 相关常量
// =================================================================

const (
	// TelegramMessageDelay 分页发送 Telegram 消息的间隔
	TelegramMessageDelay = 500 * time.Millisecond

	// TelegramMessageLimit 单条消息的最大长度，超出后分页
	TelegramMessageLimit = 2000

	// TelegramPollTimeout 长轮询超时（秒）
	TelegramPollTimeout = 10
)

// =================================================================
// 面板相关常量
// =================================================================

const (
	// SubIDLength 新建客户端 subId 长度，与面板前端保持一致
	SubIDLength = 16

	// ReconcileTimeout 单次对账任务的超时时间
	ReconcileTimeout = 2 * time.Minute

	// LimiterIdleTTL 限速条目的最长空闲时间
	LimiterIdleTTL = time.Hour
)
