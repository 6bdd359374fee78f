package webpush

import (
	"fmt"

	webpush "github.com/SherClockHolmes/webpush-go"
)

type KeyPair struct {
	PublicKey  string
	PrivateKey string
}

func GenerateKeys() (KeyPair, error) {
	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		return KeyPair{}, fmt.Errorf("failed to generate VAPID keys: %w", err)
	}
	return KeyPair{PublicKey: publicKey, PrivateKey: privateKey}, nil
}
