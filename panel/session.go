// Package panel 通过 HTTP API 驱动 3x-ui 面板
package panel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/yuukich1/3x-ui-bot/config"
	"github.com/yuukich1/3x-ui-bot/logger"
	"github.com/yuukich1/3x-ui-bot/panel/model"
	"github.com/yuukich1/3x-ui-bot/util/common"

	"github.com/xlzd/gotp"
	"golang.org/x/sync/singleflight"
)

// Session 登录成功后捕获的 Cookie，创建后不再修改
type Session struct {
	cookies   []*http.Cookie
	createdAt time.Time
}

func (s *Session) Cookies() []*http.Cookie {
	out := make([]*http.Cookie, len(s.cookies))
	copy(out, s.cookies)
	return out
}

func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

func (s *Session) apply(req *http.Request) {
	for _, c := range s.cookies {
		req.AddCookie(c)
	}
}

// SessionManager 持有进程内唯一的面板会话，并发登录合并为一次
type SessionManager struct {
	cfg     config.PanelConfig
	baseURL string
	http    *http.Client

	mu      sync.RWMutex
	session *Session
	group   singleflight.Group
}

func NewSessionManager(cfg config.PanelConfig, httpClient *http.Client) *SessionManager {
	return &SessionManager{
		cfg:     cfg,
		baseURL: cfg.BaseURL(),
		http:    httpClient,
	}
}

// Current 当前持有的会话，未登录时为 nil
func (m *SessionManager) Current() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// Login 执行一次登录，成功后替换当前会话
func (m *SessionManager) Login(ctx context.Context) (*Session, error) {
	const op = "panel.Login"

	form := url.Values{}
	form.Set("username", m.cfg.Username)
	form.Set("password", m.cfg.Password)
	if m.cfg.TwoFactorSecret != "" {
		form.Set("twoFactorCode", gotp.NewDefaultTOTP(m.cfg.TwoFactorSecret).Now())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, common.Wrap(op, fmt.Errorf("%w: %w", common.ErrAuthentication, err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := m.http.Do(req)
	if err != nil {
		logger.Warning("面板登录连接失败:", err)
		return nil, common.Wrap(op, fmt.Errorf("%w: %w: %v", common.ErrAuthentication, common.ErrTransport, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Warning("读取面板登录响应失败:", err)
		return nil, common.Wrap(op, fmt.Errorf("%w: %w: %v", common.ErrAuthentication, common.ErrTransport, err))
	}
	if resp.StatusCode != http.StatusOK {
		logger.Warningf("面板登录失败: status %d", resp.StatusCode)
		return nil, common.Wrapf(op, common.ErrAuthentication, "status %d", resp.StatusCode)
	}
	var msg model.Msg
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, common.Wrapf(op, common.ErrAuthentication, "parse error: %v, body: %s", err, string(body))
	}
	if !msg.Success {
		logger.Warning("面板登录被拒绝:", msg.Msg)
		return nil, common.Wrapf(op, common.ErrAuthentication, "%s", msg.Msg)
	}

	session := &Session{cookies: resp.Cookies(), createdAt: time.Now()}
	m.mu.Lock()
	m.session = session
	m.mu.Unlock()
	logger.Info("已登录 3x-ui 面板")
	return session, nil
}

// EnsureSession 返回当前会话，没有则登录；并发调用者共享同一次登录。
// 登录不随发起者的 ctx 取消，每个调用者只按自己的 ctx 放弃等待。
func (m *SessionManager) EnsureSession(ctx context.Context) (*Session, error) {
	if s := m.Current(); s != nil {
		return s, nil
	}
	ch := m.group.DoChan("login", func() (any, error) {
		if s := m.Current(); s != nil {
			return s, nil
		}
		loginCtx := context.WithoutCancel(ctx)
		if m.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			loginCtx, cancel = context.WithTimeout(loginCtx, m.cfg.Timeout)
			defer cancel()
		}
		logger.Info("面板会话不存在，尝试登录")
		return m.Login(loginCtx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Session), nil
	case <-ctx.Done():
		return nil, common.Wrap("panel.EnsureSession", fmt.Errorf("%w: %w: %w", common.ErrAuthentication, common.ErrTransport, ctx.Err()))
	}
}

// Invalidate 仅当 s 仍是当前会话时才清除
func (m *SessionManager) Invalidate(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == s {
		m.session = nil
	}
}

// RunAuthenticated 在持有会话的前提下执行 op。
// 登录失败时不执行 op；op 返回 ErrUnauthorized 时清除会话，重新登录后只重试一次。
func (m *SessionManager) RunAuthenticated(ctx context.Context, op func(ctx context.Context, s *Session) error) error {
	s, err := m.EnsureSession(ctx)
	if err != nil {
		logger.Error("操作中止: 面板认证失败")
		return err
	}
	err = op(ctx, s)
	if !errors.Is(err, common.ErrUnauthorized) {
		return err
	}

	logger.Notice("面板会话已失效，重新登录")
	m.Invalidate(s)
	s, err = m.EnsureSession(ctx)
	if err != nil {
		return err
	}
	return op(ctx, s)
}
