package sub

import (
	"strings"
	"testing"

	"github.com/yuukich1/3x-ui-bot/panel/model"

	"github.com/stretchr/testify/assert"
)

func realityInbound(serverNames, shortIds []string) *model.Inbound {
	return &model.Inbound{
		Id:       1,
		Port:     443,
		Protocol: model.VLESS,
		StreamSettings: model.StreamSettings{
			Network:  "tcp",
			Security: "reality",
			RealitySettings: &model.RealitySettings{
				ServerNames: serverNames,
				ShortIds:    shortIds,
				Settings: model.RealityInner{
					PublicKey:   "PK",
					Fingerprint: "chrome",
				},
			},
		},
	}
}

func TestGenVlessLink(t *testing.T) {
	inbound := realityInbound([]string{"example.com", "other.com"}, []string{"ab12", "cd34"})
	client := &model.Client{ID: "6b0c5c2e-0000-4000-8000-000000000001", Email: "bob"}

	link := GenVlessLink(inbound, client, "1.2.3.4", "2F")
	assert.Equal(t,
		"vless://6b0c5c2e-0000-4000-8000-000000000001@1.2.3.4:443?type=tcp&security=reality&pbk=PK&fp=chrome&sni=example.com&sid=ab12&spx=%2F#bob",
		link)
}

func TestGenVlessLinkDeterministic(t *testing.T) {
	inbound := realityInbound([]string{"example.com"}, []string{"ab12"})
	client := &model.Client{ID: "id", Email: "alice"}

	first := GenVlessLink(inbound, client, "host", "2F")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, GenVlessLink(inbound, client, "host", "2F"))
	}
}

func TestGenVlessLinkEmptyLists(t *testing.T) {
	inbound := realityInbound(nil, []string{})
	client := &model.Client{ID: "id", Email: "alice"}

	link := GenVlessLink(inbound, client, "host", "2F")
	assert.Contains(t, link, "&sni=&sid=&spx=%2F")
}

func TestGenVlessLinkWithoutReality(t *testing.T) {
	inbound := &model.Inbound{
		Port:           8080,
		Protocol:       model.VLESS,
		StreamSettings: model.StreamSettings{Network: "ws", Security: "none"},
	}
	client := &model.Client{ID: "id", Email: "carol"}

	d := NewDescriptor(inbound, client, "host", "2F")
	assert.Empty(t, d.Pbk)
	assert.Empty(t, d.Fp)
	assert.Equal(t,
		"vless://id@host:8080?type=ws&security=none&pbk=&fp=&sni=&sid=&spx=%2F#carol",
		d.URI())
}

func TestDescriptorParameterOrder(t *testing.T) {
	d := Descriptor{
		Protocol: model.VLESS, UserID: "u", Host: "h", Port: 1,
		Type: "t", Security: "s", Pbk: "p", Fp: "f", Sni: "n", Sid: "i", Spx: "x", Remark: "r@mail",
	}
	uri := d.URI()
	keys := []string{"?type=", "&security=", "&pbk=", "&fp=", "&sni=", "&sid=", "&spx=%x", "#r@mail"}
	last := -1
	for _, k := range keys {
		idx := strings.Index(uri, k)
		assert.Greater(t, idx, last, k)
		last = idx
	}
}
