package bootstrap

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"log/slog"

	"github.com/almazgeobur/felix-portal/internal/adapters/tokenstore"
)

// CreateSealer builds the at-rest protection for the file token store.
// A 32-byte key given as base64 or hex is used directly; any other non-empty
// value is hashed to 32 bytes. An empty key yields a PlainSealer (with warning log).
//
//nolint:ireturn // Returning interface is intentional for sealer abstraction
func CreateSealer(key string, logger *slog.Logger) tokenstore.Sealer {
	if key == "" {
		if logger != nil {
			logger.Warn("token store encryption key is empty, credential is stored unencrypted")
		}
		return tokenstore.PlainSealer{}
	}

	sealer, err := tokenstore.NewAESGCMSealer(sealerKey(key))
	if err != nil {
		if logger != nil {
			logger.Warn("failed to create token sealer, credential is stored unencrypted", "error", err)
		}
		return tokenstore.PlainSealer{}
	}
	return sealer
}

func sealerKey(key string) []byte {
	if decoded, err := base64.StdEncoding.DecodeString(key); err == nil && len(decoded) == 32 {
		return decoded
	}
	if decoded, err := hex.DecodeString(key); err == nil && len(decoded) == 32 {
		return decoded
	}
	hash := sha256.Sum256([]byte(key))
	return hash[:]
}
