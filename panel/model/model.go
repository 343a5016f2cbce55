// Package model 包含 3x-ui 面板 API 返回的数据结构
//   - inbound.go: Inbound 及其 settings/streamSettings/sniffing
//   - client.go: Client 与新建客户端请求
//   - client_traffic.go: 客户端流量统计
//   - msg.go: 面板统一响应信封
package model

import (
	"bytes"
	"encoding/json"
	"strings"
)

// decodeEmbedded 面板将 settings 等字段编码为 JSON 字符串返回，这里同时兼容字符串和对象两种形式
func decodeEmbedded(data []byte, v any) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		data = []byte(s)
	}
	return json.Unmarshal(data, v)
}

// encodeEmbedded 按面板的线上格式输出：对象先序列化，再作为字符串嵌入
func encodeEmbedded(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(raw))
}
