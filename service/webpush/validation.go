package webpush

import (
	"crypto/ecdh"
	"crypto/elliptic"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/url"
	"strings"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// ValidateKeys checks that a VAPID key pair is base64url encoded, that the
// public key is an uncompressed P-256 point and that the private key is a
// valid scalar for it.
func ValidateKeys(publicKey, privateKey string) error {
	pub, err := decodeP256Point(publicKey, "VAPID public key")
	if err != nil {
		return err
	}

	priv, err := decodeBase64URL(privateKey)
	if err != nil {
		return fmt.Errorf("invalid VAPID private key encoding")
	}
	if len(priv) != 32 {
		return fmt.Errorf("invalid VAPID private key length: expected 32 bytes, got %d", len(priv))
	}

	n := elliptic.P256().Params().N
	d := new(big.Int).SetBytes(priv)
	if d.Sign() <= 0 || d.Cmp(n) >= 0 {
		return fmt.Errorf("invalid VAPID private key scalar")
	}

	key, err := ecdh.P256().NewPrivateKey(priv)
	if err != nil {
		return fmt.Errorf("invalid VAPID private key: %w", err)
	}
	if string(key.PublicKey().Bytes()) != string(pub) {
		return fmt.Errorf("VAPID public key does not match private key")
	}

	return nil
}

// decodeSubscription turns a stored descriptor into the library's
// subscription type, rejecting descriptors that can never be delivered to.
func decodeSubscription(raw json.RawMessage) (*webpush.Subscription, error) {
	var sub webpush.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, fmt.Errorf("invalid subscription descriptor: %w", err)
	}

	if err := validatePushEndpoint(sub.Endpoint); err != nil {
		return nil, err
	}
	if _, err := decodeP256Point(sub.Keys.P256dh, "p256dh"); err != nil {
		return nil, err
	}
	if err := validateAuthSecret(sub.Keys.Auth); err != nil {
		return nil, err
	}

	return &sub, nil
}

func validatePushEndpoint(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u == nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid subscription endpoint URL")
	}

	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("subscription endpoint must use http or https")
	}

	return nil
}

func decodeP256Point(raw, name string) ([]byte, error) {
	decoded, err := decodeBase64URL(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s encoding", name)
	}

	if len(decoded) != 65 || decoded[0] != 0x04 {
		return nil, fmt.Errorf("invalid %s key format", name)
	}

	if _, err := ecdh.P256().NewPublicKey(decoded); err != nil {
		return nil, fmt.Errorf("invalid %s point", name)
	}

	return decoded, nil
}

func validateAuthSecret(raw string) error {
	decoded, err := decodeBase64URL(raw)
	if err != nil {
		return fmt.Errorf("invalid auth encoding")
	}

	if len(decoded) != 16 {
		return fmt.Errorf("invalid auth length: expected 16 bytes, got %d", len(decoded))
	}

	return nil
}

func decodeBase64URL(raw string) ([]byte, error) {
	key := strings.TrimSpace(raw)
	if key == "" {
		return nil, fmt.Errorf("empty key")
	}
	if decoded, err := base64.RawURLEncoding.DecodeString(key); err == nil {
		return decoded, nil
	}
	return base64.URLEncoding.DecodeString(key)
}
