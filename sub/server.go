package sub

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yuukich1/3x-ui-bot/config"
	"github.com/yuukich1/3x-ui-bot/logger"
	"github.com/yuukich1/3x-ui-bot/util/common"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// LinkProvider 按用户名返回已保存或面板上的链接
type LinkProvider interface {
	GetLink(ctx context.Context, username string) (string, error)
}

const shutdownTimeout = 5 * time.Second

// Server 订阅服务，GET {path}:username 返回 base64 编码的链接
type Server struct {
	httpServer *http.Server
	listener   net.Listener

	cfg   config.SubConfig
	links LinkProvider

	ctx    context.Context
	cancel context.CancelFunc
}

func NewServer(cfg config.SubConfig, links LinkProvider) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:    cfg,
		links:  links,
		ctx:    ctx,
		cancel: cancel,
	}
}

func normalizePath(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return "/"
	}
	return "/" + p + "/"
}

func (s *Server) initRouter() *gin.Engine {
	if config.IsDebug() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.DefaultWriter = io.Discard
		gin.DefaultErrorWriter = io.Discard
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(recoveryMiddleware())
	if s.cfg.Domain != "" {
		engine.Use(domainValidatorMiddleware(s.cfg.Domain))
	}
	engine.Use(gzip.Gzip(gzip.DefaultCompression))
	engine.GET(normalizePath(s.cfg.Path)+":username", s.subs)
	return engine
}

func (s *Server) subs(c *gin.Context) {
	username := c.Param("username")
	link, err := s.links.GetLink(c.Request.Context(), username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			c.String(http.StatusNotFound, "")
			return
		}
		logger.Warningf("订阅 %s 获取链接失败: %v", username, err)
		c.String(http.StatusBadGateway, "")
		return
	}
	c.Header("Profile-Update-Interval", "10")
	c.Header("Profile-Title", base64.StdEncoding.EncodeToString([]byte(username)))
	c.String(http.StatusOK, base64.StdEncoding.EncodeToString([]byte(link)))
}

func (s *Server) Start() (err error) {
	defer func() {
		if err != nil {
			_ = s.Stop()
		}
	}()

	if !s.cfg.Enable {
		return nil
	}

	engine := s.initRouter()

	listenAddr := net.JoinHostPort(s.cfg.Listen, strconv.Itoa(s.cfg.Port))
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}
	logger.Info("Sub server running HTTP on", listener.Addr())
	s.listener = listener

	s.httpServer = &http.Server{ //nolint:gosec
		Handler: engine,
	}

	go func() {
		_ = s.httpServer.Serve(listener)
	}()

	return nil
}

func (s *Server) Stop() error {
	s.cancel()

	var err1 error
	var err2 error
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err1 = s.httpServer.Shutdown(ctx)
	}
	if s.listener != nil {
		err2 = s.listener.Close()
	}
	if errors.Is(err2, net.ErrClosed) {
		err2 = nil
	}
	return common.Combine(err1, err2)
}

func (s *Server) GetCtx() context.Context {
	return s.ctx
}
