package webpush

import (
	"encoding/base64"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestValidateKeys(t *testing.T) {
	c := qt.New(t)

	keys, err := GenerateKeys()
	c.Assert(err, qt.IsNil)
	c.Assert(ValidateKeys(keys.PublicKey, keys.PrivateKey), qt.IsNil)

	other, err := GenerateKeys()
	c.Assert(err, qt.IsNil)

	tests := []struct {
		name    string
		public  string
		private string
		err     string
	}{
		{"mismatched pair", keys.PublicKey, other.PrivateKey, "VAPID public key does not match private key"},
		{"garbage public", "not base64!", keys.PrivateKey, "invalid VAPID public key encoding"},
		{"short public", base64.RawURLEncoding.EncodeToString([]byte{4, 1, 2}), keys.PrivateKey, "invalid VAPID public key key format"},
		{"short private", keys.PublicKey, base64.RawURLEncoding.EncodeToString([]byte{1, 2, 3}), "invalid VAPID private key length: expected 32 bytes, got 3"},
		{"zero private", keys.PublicKey, base64.RawURLEncoding.EncodeToString(make([]byte, 32)), "invalid VAPID private key scalar"},
		{"placeholder private", keys.PublicKey, "YOUR_PRIVATE_KEY_HERE", "invalid VAPID private key.*"},
	}
	for _, tt := range tests {
		c.Run(tt.name, func(c *qt.C) {
			c.Assert(ValidateKeys(tt.public, tt.private), qt.ErrorMatches, tt.err)
		})
	}
}

func TestValidateKeysAcceptsPaddedEncoding(t *testing.T) {
	c := qt.New(t)

	keys, err := GenerateKeys()
	c.Assert(err, qt.IsNil)

	pub, err := base64.RawURLEncoding.DecodeString(keys.PublicKey)
	c.Assert(err, qt.IsNil)
	padded := base64.URLEncoding.EncodeToString(pub)
	c.Assert(strings.HasSuffix(padded, "="), qt.IsTrue)

	c.Assert(ValidateKeys(padded, keys.PrivateKey), qt.IsNil)
}
