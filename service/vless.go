package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/yuukich1/3x-ui-bot/config"
	"github.com/yuukich1/3x-ui-bot/logger"
	"github.com/yuukich1/3x-ui-bot/panel/model"
	"github.com/yuukich1/3x-ui-bot/util/common"
)

// PanelAPI 开通流程依赖的面板操作
type PanelAPI interface {
	FindClientByEmail(ctx context.Context, email string) (*model.Client, error)
	ListConnectionURIsForEmail(ctx context.Context, email string) ([]string, error)
	CreateClient(ctx context.Context, email string, inboundID int, externalID string) error
	RequestReload(ctx context.Context) error
}

// LinkStore 本地保存的链接，用户不存在时 GetLink 返回空串
type LinkStore interface {
	GetLink(ctx context.Context, username string) (string, error)
	SaveLink(ctx context.Context, username, clientUUID, link string) error
}

// VlessService 按用户名查询或开通 VLESS 链接
type VlessService struct {
	panel     PanelAPI
	store     LinkStore
	inboundID int
	locks     *keyedMutex
}

func NewVlessService(panel PanelAPI, store LinkStore, cfg config.PanelConfig) *VlessService {
	return &VlessService{
		panel:     panel,
		store:     store,
		inboundID: cfg.InboundID,
		locks:     newKeyedMutex(),
	}
}

// GetLink 先查本地，再查面板，都没有时返回 ErrNotFound
func (s *VlessService) GetLink(ctx context.Context, username string) (string, error) {
	const op = "service.GetLink"

	link, err := s.store.GetLink(ctx, username)
	if err != nil {
		logger.Warningf("读取本地链接失败 %s: %v", username, err)
	} else if link != "" {
		return link, nil
	}

	uris, err := s.panel.ListConnectionURIsForEmail(ctx, username)
	if err != nil {
		return "", common.Wrap(op, err)
	}
	if len(uris) == 0 {
		return "", common.Wrapf(op, common.ErrNotFound, "user %s", username)
	}
	return uris[0], nil
}

// CreateOrFail 为用户新建客户端。已有链接时返回 ErrAlreadyProvisioned，不会发起创建。
func (s *VlessService) CreateOrFail(ctx context.Context, username, externalID string) (string, error) {
	const op = "service.CreateOrFail"

	if strings.TrimSpace(username) == "" {
		return "", common.Wrapf(op, common.ErrInvalidInput, "empty username")
	}

	unlock := s.locks.Lock(username)
	defer unlock()

	if _, err := s.GetLink(ctx, username); err == nil {
		return "", common.Wrapf(op, common.ErrAlreadyProvisioned, "user %s", username)
	} else if !errors.Is(err, common.ErrNotFound) {
		return "", err
	}

	if err := s.panel.CreateClient(ctx, username, s.inboundID, externalID); err != nil {
		return "", common.Wrap(op, err)
	}
	if err := s.panel.RequestReload(ctx); err != nil {
		logger.Warning("重载面板失败:", err)
	}

	client, err := s.panel.FindClientByEmail(ctx, username)
	if err != nil {
		return "", common.Wrapf(op, err, "created client %s not visible", username)
	}
	logger.Infof("Created VLESS client: %s (%s)", client.Email, client.ID)

	uris, err := s.panel.ListConnectionURIsForEmail(ctx, username)
	if err != nil {
		return "", common.Wrap(op, err)
	}
	if len(uris) == 0 {
		return "", common.Wrapf(op, common.ErrNotFound, "no link for created client %s", username)
	}
	link := uris[0]

	if err := s.store.SaveLink(ctx, username, correlationKey(client), link); err != nil {
		logger.Error(fmt.Errorf("%w: %s: %v", common.ErrPersistence, username, err))
	}
	return link, nil
}

// GetOrCreateLink 有链接则直接返回，否则开通新客户端
func (s *VlessService) GetOrCreateLink(ctx context.Context, username, externalID string) (string, bool, error) {
	link, err := s.GetLink(ctx, username)
	if err == nil {
		return link, false, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return "", false, err
	}

	link, err = s.CreateOrFail(ctx, username, externalID)
	if errors.Is(err, common.ErrAlreadyProvisioned) {
		link, err = s.GetLink(ctx, username)
		return link, false, err
	}
	if err != nil {
		return "", false, err
	}
	return link, true, nil
}

// Reconcile 面板上有而本地没有保存的链接写回本地，返回是否写入
func (s *VlessService) Reconcile(ctx context.Context, username string) (bool, error) {
	const op = "service.Reconcile"

	link, err := s.store.GetLink(ctx, username)
	if err != nil {
		return false, common.Wrap(op, err)
	}
	if link != "" {
		return false, nil
	}

	client, err := s.panel.FindClientByEmail(ctx, username)
	if errors.Is(err, common.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, common.Wrap(op, err)
	}
	uris, err := s.panel.ListConnectionURIsForEmail(ctx, username)
	if err != nil {
		return false, common.Wrap(op, err)
	}
	if len(uris) == 0 {
		return false, nil
	}
	if err := s.store.SaveLink(ctx, username, correlationKey(client), uris[0]); err != nil {
		return false, common.Wrap(op, fmt.Errorf("%w: %v", common.ErrPersistence, err))
	}
	logger.Infof("已同步 %s 的链接", username)
	return true, nil
}

// correlationKey 优先使用 subId，没有时退回客户端 UUID
func correlationKey(c *model.Client) string {
	if c.SubID != "" {
		return c.SubID
	}
	return c.ID
}

// keyedMutex 同一个 key 串行，不同 key 互不影响
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedEntry)}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
