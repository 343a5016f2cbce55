package model

import "encoding/json"

// Msg 面板 API 的统一响应格式
type Msg struct {
	Success bool            `json:"success"`
	Msg     string          `json:"msg"`
	Obj     json.RawMessage `json:"obj"`
}
