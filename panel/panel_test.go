package panel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yuukich1/3x-ui-bot/config"
	"github.com/yuukich1/3x-ui-bot/panel/model"
	"github.com/yuukich1/3x-ui-bot/util/common"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cookieName = "3x-ui"

// fakePanel 模拟 3x-ui 面板的 API
type fakePanel struct {
	mu           sync.Mutex
	inbounds     []model.Inbound
	onlines      []string
	loginOK      bool
	loginDelay   time.Duration
	loginForms   []url.Values
	token        string
	addForms     []url.Values
	addStatus    int
	listFailures int
	listCalls    int
	reloads      int

	logins atomic.Int32
}

func (p *fakePanel) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /secret/login", p.login)
	mux.HandleFunc("GET /secret/panel/api/inbounds/list", p.auth(p.list))
	mux.HandleFunc("GET /secret/panel/api/inbounds/get/{id}", p.auth(p.get))
	mux.HandleFunc("POST /secret/panel/api/inbounds/addClient", p.auth(p.addClient))
	mux.HandleFunc("POST /secret/panel/api/inbounds/onlines", p.auth(p.online))
	mux.HandleFunc("POST /secret/panel/api/inbounds/reload", p.auth(p.reload))
	mux.HandleFunc("GET /secret/panel/api/inbounds/getClientTraffics/{email}", p.auth(p.traffic))
	return mux
}

func writeMsg(w http.ResponseWriter, success bool, msg string, obj any) {
	raw, _ := json.Marshal(obj)
	_ = json.NewEncoder(w).Encode(model.Msg{Success: success, Msg: msg, Obj: raw})
}

func (p *fakePanel) login(w http.ResponseWriter, r *http.Request) {
	n := p.logins.Add(1)
	time.Sleep(p.loginDelay)
	_ = r.ParseForm()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.loginForms = append(p.loginForms, r.PostForm)
	if !p.loginOK || r.PostForm.Get("password") != "admin" {
		writeMsg(w, false, "wrong username or password", nil)
		return
	}
	p.token = fmt.Sprintf("session-%d", n)
	http.SetCookie(w, &http.Cookie{Name: cookieName, Value: p.token, Path: "/"})
	writeMsg(w, true, "ok", nil)
}

func (p *fakePanel) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(cookieName)
		p.mu.Lock()
		valid := err == nil && p.token != "" && c.Value == p.token
		p.mu.Unlock()
		if !valid {
			w.WriteHeader(http.StatusNotFound)
			writeMsg(w, false, "404 page not found", nil)
			return
		}
		next(w, r)
	}
}

func (p *fakePanel) list(w http.ResponseWriter, _ *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listCalls++
	if p.listFailures > 0 {
		p.listFailures--
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
		return
	}
	writeMsg(w, true, "", p.inbounds)
}

func (p *fakePanel) get(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("id"))
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ib := range p.inbounds {
		if ib.Id == id {
			writeMsg(w, true, "", ib)
			return
		}
	}
	writeMsg(w, false, "record not found", nil)
}

func (p *fakePanel) addClient(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.addForms = append(p.addForms, r.PostForm)
	if p.addStatus != 0 {
		w.WriteHeader(p.addStatus)
		return
	}
	id, _ := strconv.Atoi(r.PostForm.Get("id"))
	var settings struct {
		Clients []model.Client `json:"clients"`
	}
	if err := json.Unmarshal([]byte(r.PostForm.Get("settings")), &settings); err != nil {
		writeMsg(w, false, err.Error(), nil)
		return
	}
	for i := range p.inbounds {
		if p.inbounds[i].Id == id {
			p.inbounds[i].Settings.Clients = append(p.inbounds[i].Settings.Clients, settings.Clients...)
			writeMsg(w, true, "Client(s) added", nil)
			return
		}
	}
	writeMsg(w, false, "inbound not found", nil)
}

func (p *fakePanel) online(w http.ResponseWriter, _ *http.Request) {
	writeMsg(w, true, "", p.onlines)
}

func (p *fakePanel) reload(w http.ResponseWriter, _ *http.Request) {
	p.mu.Lock()
	p.reloads++
	p.mu.Unlock()
	writeMsg(w, true, "", nil)
}

func (p *fakePanel) traffic(w http.ResponseWriter, r *http.Request) {
	email := r.PathValue("email")
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ib := range p.inbounds {
		for _, st := range ib.ClientStats {
			if st.Email == email {
				writeMsg(w, true, "", st)
				return
			}
		}
	}
	writeMsg(w, true, "", nil)
}

func (p *fakePanel) expire() {
	p.mu.Lock()
	p.token = ""
	p.mu.Unlock()
}

func realityInbound(id, port int, clients ...model.Client) model.Inbound {
	return model.Inbound{
		Id:       id,
		Port:     port,
		Protocol: model.VLESS,
		Enable:   true,
		Settings: model.InboundSettings{Clients: clients, Decryption: "none"},
		StreamSettings: model.StreamSettings{
			Network:  "tcp",
			Security: "reality",
			RealitySettings: &model.RealitySettings{
				ServerNames: []string{"example.com"},
				ShortIds:    []string{"ab12"},
				Settings:    model.RealityInner{PublicKey: "PK", Fingerprint: "chrome"},
			},
		},
	}
}

func newTestClient(t *testing.T, p *fakePanel) (*Client, config.PanelConfig) {
	t.Helper()
	srv := httptest.NewServer(p.handler())
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	cfg := config.PanelConfig{
		Scheme:        "http",
		Host:          u.Hostname(),
		Port:          port,
		Username:      "admin",
		Password:      "admin",
		BasePath:      "/secret/",
		Spx:           "2F",
		InboundID:     1,
		Timeout:       2 * time.Second,
		ReadRetries:   2,
		RetryInterval: time.Millisecond,
	}
	return NewClient(cfg), cfg
}

func TestLoginFailureBlocksOperations(t *testing.T) {
	p := &fakePanel{loginOK: false, inbounds: []model.Inbound{realityInbound(1, 443)}}
	c, _ := newTestClient(t, p)
	ctx := context.Background()

	_, err := c.ListInbounds(ctx)
	assert.ErrorIs(t, err, common.ErrAuthentication)

	_, err = c.GetInbound(ctx, 1)
	assert.ErrorIs(t, err, common.ErrAuthentication)

	err = c.CreateClient(ctx, "bob", 1, "")
	assert.ErrorIs(t, err, common.ErrAuthentication)

	_, err = c.ListOnline(ctx)
	assert.ErrorIs(t, err, common.ErrAuthentication)

	assert.Equal(t, int32(4), p.logins.Load(), "每次调用只尝试一次登录")
	assert.Empty(t, p.addForms)
	assert.Nil(t, c.Sessions().Current())
}

func TestConcurrentCallersShareLogin(t *testing.T) {
	p := &fakePanel{loginOK: true, loginDelay: 50 * time.Millisecond, inbounds: []model.Inbound{realityInbound(1, 443)}}
	c, _ := newTestClient(t, p)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.ListInbounds(context.Background())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), p.logins.Load())
}

func TestCancelledLeaderDoesNotFailSharedLogin(t *testing.T) {
	p := &fakePanel{loginOK: true, loginDelay: 200 * time.Millisecond, inbounds: []model.Inbound{realityInbound(1, 443)}}
	c, _ := newTestClient(t, p)

	leaderCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	leaderErr := make(chan error, 1)
	go func() {
		_, err := c.ListInbounds(leaderCtx)
		leaderErr <- err
	}()

	time.Sleep(5 * time.Millisecond)
	inbounds, err := c.ListInbounds(context.Background())
	require.NoError(t, err)
	assert.Len(t, inbounds, 1)

	err = <-leaderErr
	assert.ErrorIs(t, err, common.ErrAuthentication)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), p.logins.Load())
	assert.NotNil(t, c.Sessions().Current())
}

func TestLoginBodyReadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, buf, err := w.(http.Hijacker).Hijack()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = buf.WriteString("HTTP/1.1 200 OK\r\nContent-Type: application/json\r\nContent-Length: 100\r\n\r\n{\"success\"")
		_ = buf.Flush()
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	cfg := config.PanelConfig{Scheme: "http", Host: u.Hostname(), Port: port, Timeout: time.Second}

	m := NewSessionManager(cfg, &http.Client{Timeout: cfg.Timeout})
	_, err = m.Login(context.Background())
	assert.ErrorIs(t, err, common.ErrAuthentication)
	assert.ErrorIs(t, err, common.ErrTransport)
	assert.Nil(t, m.Current())
}

func TestFindClientAcrossInbounds(t *testing.T) {
	p := &fakePanel{loginOK: true, inbounds: []model.Inbound{
		realityInbound(1, 443, model.Client{ID: "id-bob", Email: "bob", Enable: true}),
		realityInbound(2, 8443, model.Client{ID: "id-alice", Email: "alice", Enable: true, SubID: "alicesub"}),
	}}
	c, cfg := newTestClient(t, p)
	ctx := context.Background()

	client, err := c.FindClientByEmail(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "id-alice", client.ID)
	assert.Equal(t, "alicesub", client.SubID)

	uris, err := c.ListConnectionURIsForEmail(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, uris, 1)
	assert.Equal(t,
		fmt.Sprintf("vless://id-alice@%s:8443?type=tcp&security=reality&pbk=PK&fp=chrome&sni=example.com&sid=ab12&spx=%%2F#alice", cfg.Host),
		uris[0])

	_, err = c.FindClientByEmail(ctx, "nobody")
	assert.ErrorIs(t, err, common.ErrClientNotFound)
	assert.ErrorIs(t, err, common.ErrNotFound)

	uris, err = c.ListConnectionURIsForEmail(ctx, "nobody")
	assert.NoError(t, err)
	assert.Empty(t, uris)
}

func TestCreateClientPayload(t *testing.T) {
	p := &fakePanel{loginOK: true, inbounds: []model.Inbound{realityInbound(1, 443)}}
	c, _ := newTestClient(t, p)
	ctx := context.Background()

	require.NoError(t, c.CreateClient(ctx, "bob", 1, "42"))
	require.Len(t, p.addForms, 1)
	form := p.addForms[0]
	assert.Equal(t, "1", form.Get("id"))

	var settings struct {
		Clients []map[string]any `json:"clients"`
	}
	require.NoError(t, json.Unmarshal([]byte(form.Get("settings")), &settings))
	require.Len(t, settings.Clients, 1)
	created := settings.Clients[0]
	assert.Equal(t, "bob", created["email"])
	assert.Equal(t, "42", created["tgId"])
	assert.Equal(t, true, created["enable"])
	assert.Equal(t, "", created["flow"])
	_, err := uuid.Parse(created["id"].(string))
	assert.NoError(t, err)
	assert.Len(t, created["subId"], config.SubIDLength)

	client, err := c.FindClientByEmail(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, created["id"], client.ID)
}

func TestCreateClientNotRetried(t *testing.T) {
	p := &fakePanel{loginOK: true, addStatus: http.StatusInternalServerError, inbounds: []model.Inbound{realityInbound(1, 443)}}
	c, _ := newTestClient(t, p)

	err := c.CreateClient(context.Background(), "bob", 1, "")
	assert.ErrorIs(t, err, common.ErrPanelRejected)
	assert.Len(t, p.addForms, 1)
}

func TestCreateClientRejected(t *testing.T) {
	p := &fakePanel{loginOK: true, inbounds: []model.Inbound{realityInbound(1, 443)}}
	c, _ := newTestClient(t, p)

	err := c.CreateClient(context.Background(), "bob", 99, "")
	assert.ErrorIs(t, err, common.ErrPanelRejected)
}

func TestSessionExpiryRetriesOnce(t *testing.T) {
	p := &fakePanel{loginOK: true, inbounds: []model.Inbound{realityInbound(1, 443)}}
	c, _ := newTestClient(t, p)
	ctx := context.Background()

	_, err := c.ListInbounds(ctx)
	require.NoError(t, err)
	first := c.Sessions().Current()
	require.NotNil(t, first)

	p.expire()
	inbounds, err := c.ListInbounds(ctx)
	require.NoError(t, err)
	assert.Len(t, inbounds, 1)
	assert.Equal(t, int32(2), p.logins.Load())
	assert.NotSame(t, first, c.Sessions().Current())
}

func TestReadRetriesOnTransportFailure(t *testing.T) {
	p := &fakePanel{loginOK: true, listFailures: 2, inbounds: []model.Inbound{realityInbound(1, 443)}}
	c, _ := newTestClient(t, p)

	inbounds, err := c.ListInbounds(context.Background())
	require.NoError(t, err)
	assert.Len(t, inbounds, 1)
	assert.Equal(t, 3, p.listCalls)
}

func TestReadRetriesExhausted(t *testing.T) {
	p := &fakePanel{loginOK: true, listFailures: 10, inbounds: []model.Inbound{realityInbound(1, 443)}}
	c, _ := newTestClient(t, p)

	_, err := c.ListInbounds(context.Background())
	assert.ErrorIs(t, err, common.ErrTransport)
	assert.Equal(t, 3, p.listCalls)

	_, err = c.ListConnectionURIsForEmail(context.Background(), "alice")
	assert.ErrorIs(t, err, common.ErrTransport)
}

func TestGetInbound(t *testing.T) {
	p := &fakePanel{loginOK: true, inbounds: []model.Inbound{
		realityInbound(1, 443, model.Client{ID: "a", Email: "alice"}, model.Client{ID: "b", Email: "bob"}),
	}}
	c, _ := newTestClient(t, p)
	ctx := context.Background()

	inbound, err := c.GetInbound(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 443, inbound.Port)

	_, err = c.GetInbound(ctx, 7)
	assert.ErrorIs(t, err, common.ErrInboundNotFound)
	assert.ErrorIs(t, err, common.ErrNotFound)

	emails, err := c.ListClientEmails(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, emails)
}

func TestListOnlineAndTraffic(t *testing.T) {
	inbound := realityInbound(1, 443, model.Client{ID: "a", Email: "alice"})
	inbound.ClientStats = []model.ClientTraffic{{Email: "alice", Up: 100, Down: 200}}
	p := &fakePanel{loginOK: true, onlines: []string{"alice"}, inbounds: []model.Inbound{inbound}}
	c, _ := newTestClient(t, p)
	ctx := context.Background()

	online, err := c.ListOnline(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, online)

	traffic, err := c.GetClientTraffic(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(200), traffic.Down)

	_, err = c.GetClientTraffic(ctx, "nobody")
	assert.ErrorIs(t, err, common.ErrClientNotFound)

	require.NoError(t, c.RequestReload(ctx))
	assert.Equal(t, 1, p.reloads)
}

func TestListOnlineEmpty(t *testing.T) {
	p := &fakePanel{loginOK: true}
	c, _ := newTestClient(t, p)

	online, err := c.ListOnline(context.Background())
	require.NoError(t, err)
	assert.Empty(t, online)
}

func TestTwoFactorLogin(t *testing.T) {
	p := &fakePanel{loginOK: true}
	srv := httptest.NewServer(p.handler())
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	port, _ := strconv.Atoi(u.Port())
	cfg := config.PanelConfig{
		Scheme: "http", Host: u.Hostname(), Port: port, BasePath: "secret",
		Username: "admin", Password: "admin", TwoFactorSecret: "JBSWY3DPEHPK3PXP",
		Timeout: time.Second,
	}
	m := NewSessionManager(cfg, srv.Client())

	s, err := m.Login(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, s.Cookies())
	require.Len(t, p.loginForms, 1)
	assert.Len(t, p.loginForms[0].Get("twoFactorCode"), 6)
}

func TestInvalidateOnlyCurrent(t *testing.T) {
	p := &fakePanel{loginOK: true}
	c, _ := newTestClient(t, p)
	m := c.Sessions()
	ctx := context.Background()

	first, err := m.Login(ctx)
	require.NoError(t, err)
	second, err := m.Login(ctx)
	require.NoError(t, err)

	m.Invalidate(first)
	assert.Same(t, second, m.Current())

	m.Invalidate(second)
	assert.Nil(t, m.Current())
}

func TestRunAuthenticatedSkipsOpOnLoginFailure(t *testing.T) {
	p := &fakePanel{loginOK: false}
	c, _ := newTestClient(t, p)

	called := false
	err := c.Sessions().RunAuthenticated(context.Background(), func(context.Context, *Session) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, common.ErrAuthentication)
	assert.False(t, called)
}

func TestRunAuthenticatedRetriesOnlyOnce(t *testing.T) {
	p := &fakePanel{loginOK: true}
	c, _ := newTestClient(t, p)

	calls := 0
	err := c.Sessions().RunAuthenticated(context.Background(), func(context.Context, *Session) error {
		calls++
		return common.ErrUnauthorized
	})
	assert.ErrorIs(t, err, common.ErrUnauthorized)
	assert.Equal(t, 2, calls)
	assert.Equal(t, int32(2), p.logins.Load())
}
