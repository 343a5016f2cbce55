package sub

import (
	"fmt"
	"strings"

	"github.com/yuukich1/3x-ui-bot/panel/model"
)

// Descriptor 生成连接链接所需的全部参数
type Descriptor struct {
	Protocol model.Protocol
	UserID   string
	Host     string
	Port     int
	Type     string
	Security string
	Pbk      string
	Fp       string
	Sni      string
	Sid      string
	Spx      string
	Remark   string
}

// NewDescriptor 由入站与客户端组装 Descriptor。
// sni/sid 取列表第一个元素，列表为空时为空串；非 Reality 入站的 Reality 参数均为空。
func NewDescriptor(inbound *model.Inbound, client *model.Client, host, spx string) Descriptor {
	d := Descriptor{
		Protocol: inbound.Protocol,
		UserID:   client.ID,
		Host:     host,
		Port:     inbound.Port,
		Type:     inbound.StreamSettings.Network,
		Security: inbound.StreamSettings.Security,
		Spx:      spx,
		Remark:   client.Email,
	}
	if reality := inbound.Reality(); reality != nil {
		d.Pbk = reality.Settings.PublicKey
		d.Fp = reality.Settings.Fingerprint
		d.Sni = reality.FirstServerName()
		d.Sid = reality.FirstShortId()
	}
	return d
}

// URI 参数顺序固定；spx 为 "%" 直接拼接配置值，备注为原始 email
func (d Descriptor) URI() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s://%s@%s:%d", d.Protocol, d.UserID, d.Host, d.Port)
	b.WriteString("?type=" + d.Type)
	b.WriteString("&security=" + d.Security)
	b.WriteString("&pbk=" + d.Pbk)
	b.WriteString("&fp=" + d.Fp)
	b.WriteString("&sni=" + d.Sni)
	b.WriteString("&sid=" + d.Sid)
	b.WriteString("&spx=%" + d.Spx)
	b.WriteString("#" + d.Remark)
	return b.String()
}

func GenVlessLink(inbound *model.Inbound, client *model.Client, host, spx string) string {
	return NewDescriptor(inbound, client, host, spx).URI()
}
