package webhook

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSign(t *testing.T) {
	// Known vector from the GitHub webhook documentation
	got := Sign([]byte("Hello, World!"), "It's a Secret to Everybody")
	assert.Equal(t, "sha256=757107ea0eb2509fc211221cce984b8a37570b6d7586c22c46f4379c8b043e17", got)
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"ref":"refs/heads/main"}`)
	secret := "s3cret"
	valid := Sign(payload, secret)

	tests := []struct {
		name      string
		payload   []byte
		signature string
		secret    string
		want      bool
	}{
		{name: "valid", payload: payload, signature: valid, secret: secret, want: true},
		{name: "wrong secret", payload: payload, signature: valid, secret: "other", want: false},
		{name: "tampered payload", payload: []byte(`{"ref":"refs/heads/evil"}`), signature: valid, secret: secret, want: false},
		{name: "empty signature", payload: payload, signature: "", secret: secret, want: false},
		{name: "missing prefix", payload: payload, signature: strings.TrimPrefix(valid, "sha256="), secret: secret, want: false},
		{name: "sha1 prefix", payload: payload, signature: "sha1=" + strings.TrimPrefix(valid, "sha256="), secret: secret, want: false},
		{name: "non hex", payload: payload, signature: "sha256=zzzz", secret: secret, want: false},
		{name: "truncated", payload: payload, signature: valid[:len(valid)-2], secret: secret, want: false},
		{name: "uppercase hex", payload: payload, signature: "sha256=" + strings.ToUpper(strings.TrimPrefix(valid, "sha256=")), secret: secret, want: true},
		{name: "empty secret", payload: payload, signature: Sign(payload, ""), secret: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifySignature(tt.payload, tt.signature, tt.secret))
		})
	}
}

func TestVerifyToken(t *testing.T) {
	assert.True(t, VerifyToken("tok", "tok"))
	assert.False(t, VerifyToken("tok", "other"))
	assert.False(t, VerifyToken("", "tok"))
	assert.False(t, VerifyToken("", ""))
	assert.False(t, VerifyToken("tok", ""))
}

func TestVerifySignature_RejectsSHA1(t *testing.T) {
	payload := []byte(`{"zen":"Keep it logically awesome."}`)
	mac := hmac.New(sha1.New, []byte("s3cret"))
	mac.Write(payload)
	sig := "sha1=" + hex.EncodeToString(mac.Sum(nil))

	assert.False(t, VerifySignature(payload, sig, "s3cret"))
	assert.True(t, VerifySignature(payload, Sign(payload, "s3cret"), "s3cret"))
}
