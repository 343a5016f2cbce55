package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/yuukich1/3x-ui-bot/config"
	dbmodel "github.com/yuukich1/3x-ui-bot/database/model"
	"github.com/yuukich1/3x-ui-bot/logger"
	"github.com/yuukich1/3x-ui-bot/panel/model"
	"github.com/yuukich1/3x-ui-bot/util/common"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/skip2/go-qrcode"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpproxy"
	"go.uber.org/atomic"
)

// LinkProvisioner 机器人使用的链接查询与开通
type LinkProvisioner interface {
	GetLink(ctx context.Context, username string) (string, error)
	CreateOrFail(ctx context.Context, username, externalID string) (string, error)
}

// PanelStats 面板统计信息
type PanelStats interface {
	ListOnline(ctx context.Context) ([]string, error)
	GetClientTraffic(ctx context.Context, email string) (*model.ClientTraffic, error)
}

// UserRegistry 登记 /start 的用户
type UserRegistry interface {
	AddUser(username string, tgId int64) (*dbmodel.User, error)
}

// Messenger 向聊天发送 HTML 文本或图片
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendPhoto(ctx context.Context, chatID int64, png []byte, caption string) error
}

type telegoMessenger struct {
	bot *telego.Bot
}

func (m *telegoMessenger) SendText(ctx context.Context, chatID int64, text string) error {
	_, err := m.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text).WithParseMode(telego.ModeHTML))
	return err
}

func (m *telegoMessenger) SendPhoto(ctx context.Context, chatID int64, png []byte, caption string) error {
	params := tu.Photo(tu.ID(chatID), tu.FileFromBytes(png, "qrcode.png")).WithCaption(caption)
	_, err := m.bot.SendPhoto(ctx, params)
	return err
}

type Tgbot struct {
	cfg     config.TelegramConfig
	links   LinkProvisioner
	stats   PanelStats
	users   UserRegistry
	limiter *ChatLimiter

	bot        *telego.Bot
	botHandler *th.BotHandler
	sender     Messenger
	running    atomic.Bool
	msgDelay   time.Duration
	cancel     context.CancelFunc
}

func NewTgBot(cfg config.TelegramConfig, links LinkProvisioner, stats PanelStats, users UserRegistry) *Tgbot {
	limiter := NewChatLimiter(cfg.CreateRate, cfg.CreateBurst)
	for _, id := range cfg.AdminIDs {
		limiter.AddWhitelist(id)
	}
	return &Tgbot{
		cfg:      cfg,
		links:    links,
		stats:    stats,
		users:    users,
		limiter:  limiter,
		msgDelay: config.TelegramMessageDelay,
	}
}

func (t *Tgbot) Limiter() *ChatLimiter {
	return t.limiter
}

func (t *Tgbot) Start(ctx context.Context) error {
	token := t.cfg.Token
	if token == "" {
		return common.Wrapf("tgbot.Start", common.ErrTelegramInvalidToken, "token is missing")
	}
	if len(token) < 10 || !strings.Contains(token, ":") {
		logger.Warning("Invalid Telegram bot token format")
		return common.Wrapf("tgbot.Start", common.ErrTelegramInvalidToken, "token should look like '123456789:ABCdef...'")
	}

	bot, err := t.NewBot(token, t.cfg.Proxy, t.cfg.APIServer)
	if err != nil {
		logger.Error("Failed to initialize Telegram bot API:", err)
		return fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}

	meCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	botInfo, err := bot.GetMe(meCtx)
	if err != nil {
		logger.Error("Failed to get bot information:", err)
		return fmt.Errorf("failed to verify bot token with Telegram API: %w", err)
	}
	logger.Infof("Successfully connected to Telegram bot: @%s (ID: %d)", botInfo.Username, botInfo.ID)

	err = bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{
		Commands: []telego.BotCommand{
			{Command: "start", Description: "Начать"},
			{Command: "help", Description: "Список команд"},
			{Command: "vless", Description: "Получить свой vless"},
			{Command: "create", Description: "Создать vless ключ"},
			{Command: "usage", Description: "Мой трафик"},
			{Command: "online", Description: "Клиенты онлайн"},
		},
	})
	if err != nil {
		logger.Warning("Failed to set bot commands:", err)
	}

	t.bot = bot
	t.sender = &telegoMessenger{bot: bot}

	if !t.running.Load() {
		receiveCtx, cancel := context.WithCancel(context.Background())
		if err := t.OnReceive(receiveCtx); err != nil {
			cancel()
			return err
		}
		t.cancel = cancel
		t.running.Store(true)
		logger.Info("Telegram bot receiver started")
	}
	return nil
}

func (t *Tgbot) NewBot(token string, proxyUrl string, apiServerUrl string) (*telego.Bot, error) {
	if proxyUrl == "" && apiServerUrl == "" {
		return telego.NewBot(token)
	}

	if proxyUrl != "" {
		if !strings.HasPrefix(proxyUrl, "socks5://") {
			logger.Warning("Invalid socks5 URL, using default")
			return telego.NewBot(token)
		}

		_, err := url.Parse(proxyUrl)
		if err != nil {
			logger.Warningf("Can't parse proxy URL, using default instance for tgbot: %v", err)
			return telego.NewBot(token)
		}

		return telego.NewBot(token, telego.WithFastHTTPClient(&fasthttp.Client{
			Dial: fasthttpproxy.FasthttpSocksDialer(proxyUrl),
		}))
	}

	if !strings.HasPrefix(apiServerUrl, "http") {
		logger.Warning("Invalid http(s) URL, using default")
		return telego.NewBot(token)
	}

	_, err := url.Parse(apiServerUrl)
	if err != nil {
		logger.Warningf("Can't parse API server URL, using default instance for tgbot: %v", err)
		return telego.NewBot(token)
	}

	return telego.NewBot(token, telego.WithAPIServer(apiServerUrl))
}

func (t *Tgbot) IsRunning() bool {
	return t.running.Load()
}

func (t *Tgbot) Stop() {
	if t.botHandler != nil {
		t.botHandler.Stop()
	}
	if t.cancel != nil {
		t.cancel()
	}
	logger.Info("Stop Telegram receiver ...")
	t.running.Store(false)
}

func (t *Tgbot) OnReceive(ctx context.Context) error {
	params := telego.GetUpdatesParams{
		Timeout: config.TelegramPollTimeout,
	}

	updates, err := t.bot.UpdatesViaLongPolling(ctx, &params)
	if err != nil {
		return err
	}

	t.botHandler, err = th.NewBotHandler(t.bot, updates)
	if err != nil {
		return err
	}

	t.botHandler.HandleMessage(func(ctx *th.Context, message telego.Message) error {
		t.answerCommand(ctx, &message)
		return nil
	}, th.AnyCommand())

	go t.botHandler.Start()
	return nil
}

func (t *Tgbot) checkAdmin(tgId int64) bool {
	return slices.Contains(t.cfg.AdminIDs, tgId)
}

func (t *Tgbot) answerCommand(ctx context.Context, message *telego.Message) {
	command, _, commandArgs := tu.ParseCommand(message.Text)

	chatId := message.Chat.ID
	userId := chatId
	username := message.Chat.Username
	if message.From != nil {
		userId = message.From.ID
		if username == "" {
			username = message.From.Username
		}
	}
	isAdmin := t.checkAdmin(userId)

	// 以下命令需要 Telegram 用户名作为面板中的 email
	switch command {
	case "vless", "create", "usage":
		if username == "" {
			t.SendMsgToTgbot(ctx, chatId, msgNoUsername)
			return
		}
	}

	switch command {
	case "start":
		t.SendMsgToTgbot(ctx, chatId, msgStart)
		if username == "" {
			t.SendMsgToTgbot(ctx, chatId, msgNoUsername)
			return
		}
		if _, err := t.users.AddUser(username, userId); err != nil {
			logger.Error("DB Error:", err)
			return
		}
		logger.Infof("New user: %s (%d)", username, userId)
	case "help":
		t.SendMsgToTgbot(ctx, chatId, msgHelp)
		logger.Debug("Help requested by", username)
	case "id":
		t.SendMsgToTgbot(ctx, chatId, fmt.Sprintf(msgYourID, userId))
	case "vless":
		t.getVless(ctx, chatId, username)
	case "create":
		t.createClient(ctx, chatId, userId, username)
	case "remove":
		t.SendMsgToTgbot(ctx, chatId, msgNotImplemented)
	case "online":
		if !isAdmin {
			t.SendMsgToTgbot(ctx, chatId, msgInDevelopment)
			return
		}
		t.onlineClients(ctx, chatId)
	case "usage":
		target := username
		if isAdmin && len(commandArgs) > 0 {
			target = commandArgs[0]
		}
		t.getClientUsage(ctx, chatId, target)
	case "logs":
		if !isAdmin {
			t.SendMsgToTgbot(ctx, chatId, msgUnknownCommand)
			return
		}
		count := 20
		if len(commandArgs) > 0 {
			if n, err := strconv.Atoi(commandArgs[0]); err == nil && n > 0 {
				count = n
			}
		}
		t.sendLogs(ctx, chatId, count)
	default:
		t.SendMsgToTgbot(ctx, chatId, msgUnknownCommand)
	}
}

func (t *Tgbot) getVless(ctx context.Context, chatId int64, username string) {
	link, err := t.links.GetLink(ctx, username)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			logger.Warning("Error getting VLESS link:", err)
		}
		t.SendMsgToTgbot(ctx, chatId, replyForError(err))
		return
	}
	t.sendLink(ctx, chatId, username, link)
}

func (t *Tgbot) createClient(ctx context.Context, chatId, userId int64, username string) {
	if !t.limiter.Allow(chatId) {
		t.SendMsgToTgbot(ctx, chatId, msgTooManyRequests)
		return
	}

	link, err := t.links.CreateOrFail(ctx, username, strconv.FormatInt(userId, 10))
	switch {
	case err == nil:
		t.SendMsgToTgbot(ctx, chatId, msgCreated)
		t.sendLink(ctx, chatId, username, link)
		logger.Info("Client created for", username)
	default:
		switch common.GetErrorCode(err) {
		case common.ErrCodeConflict:
			t.SendMsgToTgbot(ctx, chatId, msgAlreadyExists)
		case common.ErrCodeInvalidInput:
			t.SendMsgToTgbot(ctx, chatId, msgInvalidInput)
		default:
			logger.Error("Error creating client:", err)
			t.SendMsgToTgbot(ctx, chatId, msgCreateFailed)
		}
	}
}

// replyForError 按错误码选择读操作失败时的回复
func replyForError(err error) string {
	switch common.GetErrorCode(err) {
	case common.ErrCodeNotFound:
		return msgNoProfile
	case common.ErrCodeUnauthorized, common.ErrCodeExternal:
		return msgPanelDown
	default:
		return msgInternalError
	}
}

// sendLink 发送可复制的链接，并附带二维码
func (t *Tgbot) sendLink(ctx context.Context, chatId int64, username, link string) {
	t.SendMsgToTgbot(ctx, chatId, msgVlessKey+"\n\n<code>"+html.EscapeString(link)+"</code>")

	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		logger.Warningf("生成二维码失败: %v", err)
		return
	}
	if !t.running.Load() || t.sender == nil {
		return
	}
	if err := t.sender.SendPhoto(ctx, chatId, png, username); err != nil {
		logger.Warningf("发送二维码给 %d 失败: %v", chatId, err)
	}
}

func (t *Tgbot) onlineClients(ctx context.Context, chatId int64) {
	onlines, err := t.stats.ListOnline(ctx)
	if err != nil {
		logger.Warning("Get online error:", err)
		t.SendMsgToTgbot(ctx, chatId, replyForError(err))
		return
	}
	output := fmt.Sprintf(msgOnlineCount, len(onlines))
	for _, email := range onlines {
		output += "\n• " + html.EscapeString(email)
	}
	t.SendMsgToTgbot(ctx, chatId, output)
}

func (t *Tgbot) getClientUsage(ctx context.Context, chatId int64, email string) {
	traffic, err := t.stats.GetClientTraffic(ctx, email)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			logger.Warning("Get client traffic error:", err)
		}
		t.SendMsgToTgbot(ctx, chatId, replyForError(err))
		return
	}
	t.SendMsgToTgbot(ctx, chatId, fmt.Sprintf(msgUsage,
		html.EscapeString(traffic.Email),
		common.FormatTraffic(traffic.Up),
		common.FormatTraffic(traffic.Down),
		common.FormatTraffic(traffic.Up+traffic.Down),
	))
}

func (t *Tgbot) sendLogs(ctx context.Context, chatId int64, count int) {
	logs := logger.GetLogs(count, "info")
	if len(logs) == 0 {
		t.SendMsgToTgbot(ctx, chatId, msgNoLogs)
		return
	}
	t.SendMsgToTgbot(ctx, chatId, html.EscapeString(strings.Join(logs, "\n")))
}

// SendMsgToTgbot 超过长度限制时按行分段发送
func (t *Tgbot) SendMsgToTgbot(ctx context.Context, chatId int64, msg string) {
	if !t.running.Load() || t.sender == nil {
		return
	}

	if msg == "" {
		logger.Info("[tgbot] message is empty!")
		return
	}

	var allMessages []string
	limit := config.TelegramMessageLimit

	if len(msg) > limit {
		lines := strings.Split(msg, "\n")
		lastIndex := -1

		for _, line := range lines {
			if (len(allMessages) == 0) || (len(allMessages[lastIndex])+len(line) > limit) {
				allMessages = append(allMessages, line)
				lastIndex++
			} else {
				allMessages[lastIndex] += "\n" + line
			}
		}
		if strings.TrimSpace(allMessages[len(allMessages)-1]) == "" {
			allMessages = allMessages[:len(allMessages)-1]
		}
	} else {
		allMessages = append(allMessages, msg)
	}
	for _, message := range allMessages {
		if err := t.sender.SendText(ctx, chatId, message); err != nil {
			logger.Warning("Error sending telegram message :", err)
		}
		if len(allMessages) > 1 {
			time.Sleep(t.msgDelay)
		}
	}
}

// SendMsgToTgbotAdmins 向所有管理员发送消息
func (t *Tgbot) SendMsgToTgbotAdmins(ctx context.Context, msg string) {
	for _, adminId := range t.cfg.AdminIDs {
		t.SendMsgToTgbot(ctx, adminId, msg)
	}
}
