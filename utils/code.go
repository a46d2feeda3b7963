package utils

import (
	"crypto/rand"
	"math/big"
)

// Lead codes are short opaque references safe to put in payment metadata and
// customer-facing links. The alphabet avoids look-alike characters.
const (
	leadCodeLength   = 8
	leadCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

func GenerateLeadCode() (string, error) {
	code := make([]byte, leadCodeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(leadCodeAlphabet))))
		if err != nil {
			return "", err
		}
		code[i] = leadCodeAlphabet[num.Int64()]
	}
	return string(code), nil
}
