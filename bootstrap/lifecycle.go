package bootstrap

import (
	"context"
	"sync"

	"github.com/yuukich1/3x-ui-bot/logger"

	"go.uber.org/atomic"
)

type Status int32

const (
	StatusStopped Status = iota
	StatusStarting
	StatusRunning
	StatusStopping
)

type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Status() Status
}

// funcComponent 把一对启停函数包装为 Component
type funcComponent struct {
	name   string
	start  func(ctx context.Context) error
	stop   func(ctx context.Context) error
	status atomic.Int32
}

func NewComponent(name string, start, stop func(ctx context.Context) error) Component {
	return &funcComponent{name: name, start: start, stop: stop}
}

func (c *funcComponent) Name() string {
	return c.name
}

func (c *funcComponent) Status() Status {
	return Status(c.status.Load())
}

func (c *funcComponent) Start(ctx context.Context) error {
	c.status.Store(int32(StatusStarting))
	if err := c.start(ctx); err != nil {
		c.status.Store(int32(StatusStopped))
		return err
	}
	c.status.Store(int32(StatusRunning))
	return nil
}

func (c *funcComponent) Stop(ctx context.Context) error {
	if c.Status() != StatusRunning {
		return nil
	}
	c.status.Store(int32(StatusStopping))
	defer c.status.Store(int32(StatusStopped))
	return c.stop(ctx)
}

type LifecycleManager struct {
	mu         sync.Mutex
	components []Component
}

func NewLifecycleManager() *LifecycleManager {
	return &LifecycleManager{
		components: make([]Component, 0),
	}
}

func (m *LifecycleManager) Register(c Component) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, c)
	logger.Infof("[Lifecycle] Registered component: %s", c.Name())
}

func (m *LifecycleManager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.components {
		logger.Infof("[Lifecycle] Starting component: %s", c.Name())
		if err := c.Start(ctx); err != nil {
			logger.Errorf("[Lifecycle] Failed to start component %s: %v", c.Name(), err)
			return err
		}
	}
	return nil
}

func (m *LifecycleManager) StopAll(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// 逆序停止
	for i := len(m.components) - 1; i >= 0; i-- {
		c := m.components[i]
		logger.Infof("[Lifecycle] Stopping component: %s", c.Name())

		stopDone := make(chan error, 1)
		go func() {
			stopDone <- c.Stop(ctx)
		}()

		select {
		case err := <-stopDone:
			if err != nil {
				logger.Errorf("[Lifecycle] Error stopping component %s: %v", c.Name(), err)
			}
		case <-ctx.Done():
			logger.Errorf("[Lifecycle] Timeout stopping component %s", c.Name())
		}
	}
}
