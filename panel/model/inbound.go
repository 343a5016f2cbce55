package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

type Inbound struct {
	Id          int             `json:"id"`
	Up          int64           `json:"up"`
	Down        int64           `json:"down"`
	Total       int64           `json:"total"`
	AllTime     int64           `json:"allTime"`
	Remark      string          `json:"remark"`
	Enable      bool            `json:"enable"`
	ExpiryTime  int64           `json:"expiryTime"`
	ClientStats []ClientTraffic `json:"clientStats"`

	// config part
	Listen         string           `json:"listen"`
	Port           int              `json:"port"`
	Protocol       Protocol         `json:"protocol"`
	Tag            string           `json:"tag"`
	Settings       InboundSettings  `json:"settings"`
	StreamSettings StreamSettings   `json:"streamSettings"`
	Sniffing       SniffingSettings `json:"sniffing"`
}

// Validate 检查面板返回的入站是否可用于生成链接
func (i *Inbound) Validate() error {
	if i.Protocol == "" {
		return fmt.Errorf("inbound %d: empty protocol", i.Id)
	}
	if i.Port <= 0 || i.Port > 65535 {
		return fmt.Errorf("inbound %d: invalid port %d", i.Id, i.Port)
	}
	return nil
}

// FindClient 按 email 查找客户端
func (i *Inbound) FindClient(email string) (*Client, bool) {
	for idx := range i.Settings.Clients {
		if i.Settings.Clients[idx].Email == email {
			return &i.Settings.Clients[idx], true
		}
	}
	return nil, false
}

// Reality 返回 Reality 配置，非 Reality 入站返回 nil
func (i *Inbound) Reality() *RealitySettings {
	return i.StreamSettings.RealitySettings
}

type InboundSettings struct {
	Clients    []Client `json:"clients"`
	Decryption string   `json:"decryption"`
	Fallbacks  []any    `json:"fallbacks"`
}

func (s *InboundSettings) UnmarshalJSON(data []byte) error {
	type plain InboundSettings
	var p plain
	if err := decodeEmbedded(data, &p); err != nil {
		return fmt.Errorf("decode inbound settings: %w", err)
	}
	if p.Decryption == "" {
		p.Decryption = "none"
	}
	*s = InboundSettings(p)
	return nil
}

func (s InboundSettings) MarshalJSON() ([]byte, error) {
	type plain InboundSettings
	return encodeEmbedded(plain(s))
}

type StreamSettings struct {
	Network         string           `json:"network"`
	Security        string           `json:"security"`
	RealitySettings *RealitySettings `json:"realitySettings,omitempty"`
	TcpSettings     *TcpSettings     `json:"tcpSettings,omitempty"`
	ExternalProxy   []any            `json:"externalProxy"`
}

func (s *StreamSettings) UnmarshalJSON(data []byte) error {
	type plain StreamSettings
	var p plain
	if err := decodeEmbedded(data, &p); err != nil {
		return fmt.Errorf("decode stream settings: %w", err)
	}
	*s = StreamSettings(p)
	return nil
}

func (s StreamSettings) MarshalJSON() ([]byte, error) {
	type plain StreamSettings
	return encodeEmbedded(plain(s))
}

type RealitySettings struct {
	Show        bool         `json:"show"`
	Xver        int          `json:"xver"`
	Dest        string       `json:"dest"`
	ServerNames []string     `json:"serverNames"`
	PrivateKey  string       `json:"privateKey"`
	ShortIds    []string     `json:"shortIds"`
	Settings    RealityInner `json:"settings"`
	Mldsa65Seed string       `json:"mldsa65Seed,omitempty"`
}

// FirstServerName 第一个 serverName，列表为空时返回空串
func (r *RealitySettings) FirstServerName() string {
	if r == nil || len(r.ServerNames) == 0 {
		return ""
	}
	return r.ServerNames[0]
}

// FirstShortId 第一个 shortId，列表为空时返回空串
func (r *RealitySettings) FirstShortId() string {
	if r == nil || len(r.ShortIds) == 0 {
		return ""
	}
	return r.ShortIds[0]
}

type RealityInner struct {
	PublicKey     string `json:"publicKey"`
	Fingerprint   string `json:"fingerprint"`
	SpiderX       string `json:"spiderX"`
	ServerName    string `json:"serverName,omitempty"`
	Mldsa65Verify string `json:"mldsa65Verify,omitempty"`
}

type TcpSettings struct {
	AcceptProxyProtocol bool            `json:"acceptProxyProtocol"`
	Header              json.RawMessage `json:"header"`
}

type SniffingSettings struct {
	Enabled      bool     `json:"enabled"`
	DestOverride []string `json:"destOverride"`
	MetadataOnly bool     `json:"metadataOnly"`
	RouteOnly    bool     `json:"routeOnly"`
}

func (s *SniffingSettings) UnmarshalJSON(data []byte) error {
	type plain SniffingSettings
	var p plain
	if err := decodeEmbedded(data, &p); err != nil {
		return fmt.Errorf("decode sniffing: %w", err)
	}
	*s = SniffingSettings(p)
	return nil
}

func (s SniffingSettings) MarshalJSON() ([]byte, error) {
	type plain SniffingSettings
	return encodeEmbedded(plain(s))
}

// ErrEmptyObj 面板响应中 obj 为空
var ErrEmptyObj = errors.New("empty obj in panel response")

// ParseInbounds 解析 /inbounds/list 的 obj
func ParseInbounds(obj json.RawMessage) ([]Inbound, error) {
	if len(obj) == 0 || string(obj) == "null" {
		return []Inbound{}, nil
	}
	var inbounds []Inbound
	if err := json.Unmarshal(obj, &inbounds); err != nil {
		return nil, err
	}
	return inbounds, nil
}

// ParseInbound 解析 /inbounds/get/{id} 的 obj
func ParseInbound(obj json.RawMessage) (*Inbound, error) {
	if len(obj) == 0 || string(obj) == "null" {
		return nil, ErrEmptyObj
	}
	inbound := &Inbound{}
	if err := json.Unmarshal(obj, inbound); err != nil {
		return nil, err
	}
	if err := inbound.Validate(); err != nil {
		return nil, err
	}
	return inbound, nil
}
