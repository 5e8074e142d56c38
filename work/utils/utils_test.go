package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"iptv-catalog/work/config"
)

func TestObfuscateURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"credentials in path", "http://host.example/user/pass/1.ts", "http://host.example/***"},
		{"credentials in query", "http://host.example/player_api.php?username=u&password=p", "http://host.example/***?***"},
		{"bare host", "http://host.example", "http://host.example"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ObfuscateURL(tt.in))
		})
	}
}

func TestLogURLHonorsSetting(t *testing.T) {
	raw := "http://host.example/user/pass/1.ts"

	assert.Equal(t, "http://host.example/***", LogURL(&config.Config{ObfuscateUrls: true}, raw))
	assert.Equal(t, raw, LogURL(&config.Config{ObfuscateUrls: false}, raw))
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "ESPN_HD", SanitizeName("ESPN HD"))
	assert.Equal(t, "Acao_Aventura", SanitizeName(`"Acao/Aventura"`))
	assert.Equal(t, "a_b", SanitizeName("a , | b"))
}

func TestDeriveToken(t *testing.T) {
	tok := DeriveToken("my-secret")
	assert.Len(t, tok, 12)

	// deterministic for the same secret, distinct across secrets
	assert.Equal(t, tok, DeriveToken("my-secret"))
	assert.NotEqual(t, tok, DeriveToken("other-secret"))

	assert.Empty(t, DeriveToken(""))
}
