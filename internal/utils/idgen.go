package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// idLength is the number of random characters after the prefix.
const idLength = 16

// GenerateID returns a prefix-tagged opaque identifier, e.g. pay_Fh3kZ...
// Uniqueness is enforced by the store's primary key; callers regenerate on
// conflict instead of pre-checking.
func GenerateID(prefix string) string {
	b := make([]byte, idLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(idAlphabet))))
		if err != nil {
			// crypto/rand failure is unrecoverable for id generation
			panic(fmt.Sprintf("idgen: %v", err))
		}
		b[i] = idAlphabet[n.Int64()]
	}
	return prefix + string(b)
}

// GenerateAPIKey generates a random API credential with the given prefix.
// Format: prefix_randomhex
func GenerateAPIKey(prefix string) (string, error) {
	b := make([]byte, 32) // 64 char hex
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(b)), nil
}

// GenerateWebhookSecret generates a webhook signing secret: whsec_xxx
func GenerateWebhookSecret() (string, error) {
	return GenerateAPIKey("whsec")
}
