package model

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// TgID 面板中 tgId 既可能是数字也可能是字符串
type TgID string

func (t *TgID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = TgID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if n.String() == "0" {
		*t = ""
		return nil
	}
	*t = TgID(n.String())
	return nil
}

type Client struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Enable     bool   `json:"enable"`
	ExpiryTime int64  `json:"expiryTime"`
	TotalGB    int64  `json:"totalGB"`
	SubID      string `json:"subId"`
	TgID       TgID   `json:"tgId"`
	Flow       string `json:"flow"`
	LimitIP    int    `json:"limitIp"`
	Reset      int    `json:"reset"`
	Comment    string `json:"comment"`
	CreatedAt  int64  `json:"created_at,omitempty"`
	UpdatedAt  int64  `json:"updated_at,omitempty"`
}

// UnmarshalJSON 缺省 enable 时视为启用
func (c *Client) UnmarshalJSON(data []byte) error {
	type plain Client
	p := plain{Enable: true}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = Client(p)
	return nil
}

// AddClientSettings 新建客户端时提交的单个客户端配置
type AddClientSettings struct {
	ID         string `json:"id"`
	Flow       string `json:"flow"`
	Email      string `json:"email"`
	LimitIP    int    `json:"limitIp"`
	TotalGB    int64  `json:"totalGB"`
	ExpiryTime int64  `json:"expiryTime"`
	Enable     bool   `json:"enable"`
	TgID       string `json:"tgId"`
	SubID      string `json:"subId"`
	Comment    string `json:"comment"`
	Reset      int    `json:"reset"`
}

// AddClientRequest 对应 /panel/api/inbounds/addClient 的表单
type AddClientRequest struct {
	ID       int
	Settings []AddClientSettings
}

// Form 返回表单字段，settings 为 {"clients":[...]} 的 JSON 字符串
func (r AddClientRequest) Form() (map[string]string, error) {
	settings, err := json.Marshal(struct {
		Clients []AddClientSettings `json:"clients"`
	}{Clients: r.Settings})
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"id":       strconv.Itoa(r.ID),
		"settings": string(settings),
	}, nil
}
