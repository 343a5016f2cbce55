package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed version
var version string

//go:embed name
var name string

type LogLevel string

const (
	Debug   LogLevel = "debug"
	Info    LogLevel = "info"
	Notice  LogLevel = "notice"
	Warning LogLevel = "warning"
	Error   LogLevel = "error"
)

func GetVersion() string {
	return strings.TrimSpace(version)
}

func GetName() string {
	return strings.TrimSpace(name)
}

func GetLogLevel() LogLevel {
	if IsDebug() {
		return Debug
	}
	logLevel := viper.GetString("app.log_level")
	if logLevel == "" {
		return Info
	}
	return LogLevel(logLevel)
}

func IsDebug() bool {
	return viper.GetBool("app.debug")
}

func IsLocalLogEnabled() bool {
	return viper.GetBool("app.local_log")
}

func getBaseDir() string {
	exePath, err := os.Executable()
	if err != nil {
		return "."
	}
	exeDir := filepath.Dir(exePath)
	exeDirLower := strings.ToLower(filepath.ToSlash(exeDir))
	if strings.Contains(exeDirLower, "/appdata/local/temp/") || strings.Contains(exeDirLower, "/go-build") {
		wd, err := os.Getwd()
		if err != nil {
			return "."
		}
		return wd
	}
	return exeDir
}

func GetDBFolderPath() string {
	path := viper.GetString("paths.db_folder")
	if path != "" {
		return path
	}
	return "."
}

func GetDBPath() string {
	dbName := viper.GetString("database.name")
	if dbName == "" {
		dbName = "bot"
	}
	return fmt.Sprintf("%s/%s.db", GetDBFolderPath(), dbName)
}

// PanelConfig 3x-ui 面板连接参数
type PanelConfig struct {
	Scheme          string
	Host            string
	Port            int
	Username        string
	Password        string
	BasePath        string
	Spx             string
	InboundID       int
	TwoFactorSecret string
	Timeout         time.Duration
	ReadRetries     int
	RetryInterval   time.Duration
}

// BaseURL 返回带秘密路径的面板地址，例如 http://127.0.0.1:8080/0RhWnlULBur17Smznu
func (c PanelConfig) BaseURL() string {
	basePath := strings.Trim(c.BasePath, "/")
	if basePath != "" {
		basePath = "/" + basePath
	}
	return fmt.Sprintf("%s://%s:%d%s", c.Scheme, c.Host, c.Port, basePath)
}

func GetPanelConfig() PanelConfig {
	return PanelConfig{
		Scheme:          viper.GetString("panel.scheme"),
		Host:            viper.GetString("panel.host"),
		Port:            viper.GetInt("panel.port"),
		Username:        viper.GetString("panel.username"),
		Password:        viper.GetString("panel.password"),
		BasePath:        viper.GetString("panel.base_path"),
		Spx:             viper.GetString("panel.spx"),
		InboundID:       viper.GetInt("panel.inbound_id"),
		TwoFactorSecret: viper.GetString("panel.two_factor_secret"),
		Timeout:         viper.GetDuration("panel.timeout"),
		ReadRetries:     viper.GetInt("panel.read_retries"),
		RetryInterval:   viper.GetDuration("panel.retry_interval"),
	}
}

// TelegramConfig Telegram Bot 参数
type TelegramConfig struct {
	Token       string
	Proxy       string
	APIServer   string
	AdminIDs    []int64
	CreateRate  time.Duration
	CreateBurst int
}

func GetTelegramConfig() TelegramConfig {
	return TelegramConfig{
		Token:       viper.GetString("telegram.token"),
		Proxy:       viper.GetString("telegram.proxy"),
		APIServer:   viper.GetString("telegram.api_server"),
		AdminIDs:    parseAdminIDs(viper.GetString("telegram.admin_ids")),
		CreateRate:  viper.GetDuration("bot.create_rate"),
		CreateBurst: viper.GetInt("bot.create_burst"),
	}
}

// SubConfig 订阅服务参数
type SubConfig struct {
	Enable bool
	Listen string
	Port   int
	Path   string
	Domain string
}

func GetSubConfig() SubConfig {
	return SubConfig{
		Enable: viper.GetBool("sub.enable"),
		Listen: viper.GetString("sub.listen"),
		Port:   viper.GetInt("sub.port"),
		Path:   viper.GetString("sub.path"),
		Domain: viper.GetString("sub.domain"),
	}
}

func GetReconcileSpec() string {
	return viper.GetString("jobs.reconcile")
}

func GetLimiterCleanupSpec() string {
	return viper.GetString("jobs.limiter_cleanup")
}

func parseAdminIDs(raw string) []int64 {
	var ids []int64
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' }) {
		var id int64
		if _, err := fmt.Sscan(part, &id); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func init() {
	initStaticConfig()
}
