//go:build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/yuukich1/3x-ui-bot/bootstrap"
)

// setupSignalHandler 注册信号监听（Unix版包含 SIGUSR2）
func setupSignalHandler(sigCh chan os.Signal) {
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGINT, syscall.SIGUSR2)
}

// handleCustomSignal 处理平台特定的信号，SIGUSR2 立即执行一次链接对账
// 返回 true 表示信号已被处理，无需进一步操作
func handleCustomSignal(sig os.Signal, runtime *bootstrap.Runtime) bool {
	if sig == syscall.SIGUSR2 {
		go runtime.TriggerReconcile()
		return true
	}
	return false
}
