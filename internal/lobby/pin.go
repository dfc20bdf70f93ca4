// internal/lobby/pin.go
package lobby

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// PinLength is the number of digits in a lobby pin.
const PinLength = 6

// PassphraseLength is the number of characters in a 2FA passphrase.
const PassphraseLength = 4

// passphraseAlphabet avoids characters that read ambiguously (0/O, 1/I).
const passphraseAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GeneratePin returns a random 6-digit numeric pin, leading zeros allowed.
// Uniqueness against live lobbies is the caller's loop, not this function's.
func GeneratePin() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		// crypto/rand only fails if the OS entropy source is broken.
		panic(fmt.Sprintf("pin generation: %v", err))
	}
	return fmt.Sprintf("%06d", n.Int64())
}

// GeneratePassphrase returns a random 4-character lobby passphrase.
func GeneratePassphrase() string {
	buf := make([]byte, PassphraseLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(passphraseAlphabet))))
		if err != nil {
			panic(fmt.Sprintf("passphrase generation: %v", err))
		}
		buf[i] = passphraseAlphabet[n.Int64()]
	}
	return string(buf)
}
