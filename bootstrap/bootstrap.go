package bootstrap

import (
	"log"

	"github.com/yuukich1/3x-ui-bot/config"
	"github.com/yuukich1/3x-ui-bot/database"
	"github.com/yuukich1/3x-ui-bot/database/repository"
	"github.com/yuukich1/3x-ui-bot/logger"
	"github.com/yuukich1/3x-ui-bot/panel"
	"github.com/yuukich1/3x-ui-bot/service"
	"github.com/yuukich1/3x-ui-bot/sub"

	"github.com/joho/godotenv"
)

// App 封装应用运行时所需的所有服务实例
type App struct {
	Panel     *panel.Client
	Vless     *service.VlessService
	TgBot     *service.Tgbot
	SubServer *sub.Server

	UserRepo repository.UserRepository
}

// NewApp 创建并初始化应用实例
func NewApp(
	panelClient *panel.Client,
	vless *service.VlessService,
	tgBot *service.Tgbot,
	subServer *sub.Server,
	userRepo repository.UserRepository,
) *App {
	return &App{
		Panel:     panelClient,
		Vless:     vless,
		TgBot:     tgBot,
		SubServer: subServer,
		UserRepo:  userRepo,
	}
}

// InitDatabase 初始化数据库连接
func InitDatabase() error {
	return database.InitDB(config.GetDBPath())
}

// InitLogger 根据配置初始化日志系统
func InitLogger() {
	var level logger.Level
	switch config.GetLogLevel() {
	case config.Debug:
		level = logger.DEBUG
	case config.Info:
		level = logger.INFO
	case config.Notice:
		level = logger.NOTICE
	case config.Warning:
		level = logger.WARNING
	case config.Error:
		level = logger.ERROR
	default:
		log.Fatalf("Unknown log level: %v", config.GetLogLevel())
	}

	logger.InitLogger(level, config.IsLocalLogEnabled())
}

// LoadEnv 加载 .env 并重新绑定环境变量
func LoadEnv() {
	_ = godotenv.Load()
	config.RefreshEnvConfig()
}

// Initialize 执行完整的应用初始化流程
func Initialize() (*App, error) {
	log.Printf("Starting %v %v", config.GetName(), config.GetVersion())

	LoadEnv()
	InitLogger()

	if err := InitDatabase(); err != nil {
		return nil, err
	}

	return InitializeApp()
}
