package panel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yuukich1/3x-ui-bot/config"
	"github.com/yuukich1/3x-ui-bot/logger"
	"github.com/yuukich1/3x-ui-bot/panel/model"
	"github.com/yuukich1/3x-ui-bot/sub"
	"github.com/yuukich1/3x-ui-bot/util/common"
	"github.com/yuukich1/3x-ui-bot/util/random"

	"github.com/google/uuid"
)

// Client 面板 API 客户端，所有操作都经由 SessionManager 认证
type Client struct {
	cfg      config.PanelConfig
	baseURL  string
	http     *http.Client
	sessions *SessionManager
}

func NewClient(cfg config.PanelConfig) *Client {
	httpClient := &http.Client{
		Timeout: cfg.Timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &Client{
		cfg:      cfg,
		baseURL:  cfg.BaseURL(),
		http:     httpClient,
		sessions: NewSessionManager(cfg, httpClient),
	}
}

func (c *Client) Sessions() *SessionManager {
	return c.sessions
}

// do 发送一次已认证请求并解析 {success,msg,obj}
func (c *Client) do(ctx context.Context, s *Session, method, path string, form url.Values) (*model.Msg, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrTransport, err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	s.apply(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrTransport, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusNotFound,
		resp.StatusCode >= 300 && resp.StatusCode < 400:
		// 未登录时面板对 API 返回 401/404 或重定向到登录页
		return nil, fmt.Errorf("%w (%w): status %d", common.ErrPanelRejected, common.ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", common.ErrPanelRejected, resp.StatusCode)
	}

	var msg model.Msg
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: parse error: %v", common.ErrTransport, err)
	}
	if !msg.Success {
		return &msg, fmt.Errorf("%w: %s", common.ErrPanelRejected, msg.Msg)
	}
	return &msg, nil
}

// read 幂等读取，遇到 ErrTransport 按线性退避重试
func (c *Client) read(ctx context.Context, op string, fn func(ctx context.Context, s *Session) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = c.sessions.RunAuthenticated(ctx, fn)
		if err == nil || !errors.Is(err, common.ErrTransport) || attempt >= c.cfg.ReadRetries {
			break
		}
		if errors.Is(err, common.ErrAuthentication) {
			break
		}
		backoff := time.Duration(attempt+1) * c.cfg.RetryInterval
		logger.Debugf("[%s] 第 %d 次重试，等待 %v: %v", op, attempt+1, backoff, err)
		select {
		case <-ctx.Done():
			return common.Wrap(op, fmt.Errorf("%w: %v", common.ErrTransport, ctx.Err()))
		case <-time.After(backoff):
		}
	}
	return common.Wrap(op, err)
}

// ListInbounds 获取全部入站
func (c *Client) ListInbounds(ctx context.Context) ([]model.Inbound, error) {
	var inbounds []model.Inbound
	err := c.read(ctx, "panel.ListInbounds", func(ctx context.Context, s *Session) error {
		msg, err := c.do(ctx, s, http.MethodGet, "/panel/api/inbounds/list", nil)
		if err != nil {
			return err
		}
		inbounds, err = model.ParseInbounds(msg.Obj)
		if err != nil {
			return fmt.Errorf("%w: parse inbounds: %v", common.ErrTransport, err)
		}
		return nil
	})
	if err != nil {
		logger.Warning("获取入站列表失败:", err)
		return nil, err
	}
	return inbounds, nil
}

// GetInbound 获取单个入站，不存在时返回 ErrInboundNotFound
func (c *Client) GetInbound(ctx context.Context, id int) (*model.Inbound, error) {
	var inbound *model.Inbound
	err := c.read(ctx, "panel.GetInbound", func(ctx context.Context, s *Session) error {
		msg, err := c.do(ctx, s, http.MethodGet, "/panel/api/inbounds/get/"+strconv.Itoa(id), nil)
		if err != nil {
			if msg != nil && !msg.Success {
				return fmt.Errorf("%w: %w", common.ErrInboundNotFound, err)
			}
			return err
		}
		inbound, err = model.ParseInbound(msg.Obj)
		switch {
		case errors.Is(err, model.ErrEmptyObj):
			return common.ErrInboundNotFound
		case err != nil:
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				return fmt.Errorf("%w: parse inbound: %v", common.ErrTransport, err)
			}
			return fmt.Errorf("%w: %v", common.ErrPanelRejected, err)
		}
		return nil
	})
	if err != nil {
		logger.Warningf("获取入站 %d 失败: %v", id, err)
		return nil, err
	}
	logger.Debug("inbound:", inbound.Id, inbound.Remark)
	return inbound, nil
}

// ListClientEmails 列出某个入站下所有客户端的 email
func (c *Client) ListClientEmails(ctx context.Context, inboundID int) ([]string, error) {
	inbound, err := c.GetInbound(ctx, inboundID)
	if err != nil {
		return nil, err
	}
	emails := make([]string, 0, len(inbound.Settings.Clients))
	for _, cl := range inbound.Settings.Clients {
		emails = append(emails, cl.Email)
	}
	logger.Debug("clients email list:", emails)
	return emails, nil
}

// FindClientByEmail 依次扫描所有入站，返回第一个匹配的客户端
func (c *Client) FindClientByEmail(ctx context.Context, email string) (*model.Client, error) {
	inbounds, err := c.ListInbounds(ctx)
	if err != nil {
		return nil, err
	}
	for i := range inbounds {
		if client, ok := inbounds[i].FindClient(email); ok {
			return client, nil
		}
	}
	return nil, common.Wrapf("panel.FindClientByEmail", common.ErrClientNotFound, "email %s", email)
}

// ListConnectionURIsForEmail 为每个匹配 email 的入站/客户端生成连接链接，没有匹配时返回 nil
func (c *Client) ListConnectionURIsForEmail(ctx context.Context, email string) ([]string, error) {
	inbounds, err := c.ListInbounds(ctx)
	if err != nil {
		return nil, err
	}
	var uris []string
	for i := range inbounds {
		for j := range inbounds[i].Settings.Clients {
			client := &inbounds[i].Settings.Clients[j]
			if client.Email != email {
				continue
			}
			uris = append(uris, sub.GenVlessLink(&inbounds[i], client, c.cfg.Host, c.cfg.Spx))
		}
	}
	return uris, nil
}

// CreateClient 在指定入站中新建客户端，不会重试
func (c *Client) CreateClient(ctx context.Context, email string, inboundID int, externalID string) error {
	const op = "panel.CreateClient"

	settings := model.AddClientSettings{
		ID:     uuid.NewString(),
		Email:  email,
		Enable: true,
		TgID:   externalID,
		SubID:  random.LowerNumSeq(config.SubIDLength),
	}
	form, err := model.AddClientRequest{ID: inboundID, Settings: []model.AddClientSettings{settings}}.Form()
	if err != nil {
		return common.Wrap(op, err)
	}
	values := url.Values{}
	for k, v := range form {
		values.Set(k, v)
	}

	err = c.sessions.RunAuthenticated(ctx, func(ctx context.Context, s *Session) error {
		_, err := c.do(ctx, s, http.MethodPost, "/panel/api/inbounds/addClient", values)
		return err
	})
	if err != nil {
		logger.Error("面板创建客户端失败:", email, err)
		return common.Wrap(op, err)
	}
	logger.Noticef("客户端 %s 已创建, ID: %s", email, settings.ID)
	return nil
}

// ListOnline 返回面板报告的在线客户端
func (c *Client) ListOnline(ctx context.Context) ([]string, error) {
	var online []string
	err := c.read(ctx, "panel.ListOnline", func(ctx context.Context, s *Session) error {
		msg, err := c.do(ctx, s, http.MethodPost, "/panel/api/inbounds/onlines", nil)
		if err != nil {
			return err
		}
		online = []string{}
		if len(msg.Obj) == 0 || string(msg.Obj) == "null" {
			return nil
		}
		if err := json.Unmarshal(msg.Obj, &online); err != nil {
			return fmt.Errorf("%w: parse onlines: %v", common.ErrTransport, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("onlines:", online)
	return online, nil
}

// GetClientTraffic 获取客户端流量统计
func (c *Client) GetClientTraffic(ctx context.Context, email string) (*model.ClientTraffic, error) {
	var traffic *model.ClientTraffic
	err := c.read(ctx, "panel.GetClientTraffic", func(ctx context.Context, s *Session) error {
		msg, err := c.do(ctx, s, http.MethodGet, "/panel/api/inbounds/getClientTraffics/"+url.PathEscape(email), nil)
		if err != nil {
			return err
		}
		if len(msg.Obj) == 0 || string(msg.Obj) == "null" {
			return common.ErrClientNotFound
		}
		traffic = &model.ClientTraffic{}
		if err := json.Unmarshal(msg.Obj, traffic); err != nil {
			return fmt.Errorf("%w: parse traffic: %v", common.ErrTransport, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return traffic, nil
}

// RequestReload 通知面板应用配置变更
func (c *Client) RequestReload(ctx context.Context) error {
	err := c.sessions.RunAuthenticated(ctx, func(ctx context.Context, s *Session) error {
		_, err := c.do(ctx, s, http.MethodPost, "/panel/api/inbounds/reload", nil)
		return err
	})
	if err != nil {
		logger.Warning("面板重载失败:", err)
		return common.Wrap("panel.RequestReload", err)
	}
	logger.Info("Inbound reloaded successfully")
	return nil
}
