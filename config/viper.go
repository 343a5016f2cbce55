package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "XUIBOT"

// initStaticConfig 初始化 Viper 配置管理
func initStaticConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("toml")
	viper.AddConfigPath("/etc/3x-ui-bot")
	viper.AddConfigPath(".")
	viper.AddConfigPath(getBaseDir())

	bindEnv()
	setStaticDefaults()

	// 配置文件是可选的，不存在时使用默认值和环境变量
	_ = viper.ReadInConfig()
}

func bindEnv() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// RefreshEnvConfig 重新绑定环境变量，在加载 .env 之后调用
func RefreshEnvConfig() {
	bindEnv()
}

// setStaticDefaults 设置默认值
func setStaticDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.local_log", false)

	viper.SetDefault("paths.db_folder", ".")
	viper.SetDefault("database.name", "bot")

	viper.SetDefault("telegram.token", "")
	viper.SetDefault("telegram.proxy", "")
	viper.SetDefault("telegram.api_server", "")
	viper.SetDefault("telegram.admin_ids", "")
	viper.SetDefault("bot.create_rate", time.Minute)
	viper.SetDefault("bot.create_burst", 2)

	viper.SetDefault("panel.scheme", "http")
	viper.SetDefault("panel.host", "127.0.0.1")
	viper.SetDefault("panel.port", 8080)
	viper.SetDefault("panel.username", "admin")
	viper.SetDefault("panel.password", "admin")
	viper.SetDefault("panel.base_path", "0RhWnlULBur17Smznu")
	viper.SetDefault("panel.spx", "2F")
	viper.SetDefault("panel.inbound_id", 1)
	viper.SetDefault("panel.two_factor_secret", "")
	viper.SetDefault("panel.timeout", 10*time.Second)
	viper.SetDefault("panel.read_retries", 2)
	viper.SetDefault("panel.retry_interval", 500*time.Millisecond)

	viper.SetDefault("sub.enable", false)
	viper.SetDefault("sub.listen", "")
	viper.SetDefault("sub.port", 2096)
	viper.SetDefault("sub.path", "/sub/")
	viper.SetDefault("sub.domain", "")

	viper.SetDefault("jobs.reconcile", "@every 10m")
	viper.SetDefault("jobs.limiter_cleanup", "@every 30m")
}
