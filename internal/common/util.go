package common

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// MakeRandHexString generates a random hexadecimal string of the given size.
// The size parameter specifies the number of random bytes to generate before
// encoding them as a hexadecimal string, so the final string length is twice
// the size.
//
// It returns an error if the random number generator fails.
func MakeRandHexString(size int) (string, error) {

	b := make([]byte, size)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

// MakeRandDigitString generates a random string of n decimal digits,
// suitable for one-time passcodes.
func MakeRandDigitString(n int) (string, error) {
	max := big.NewInt(10)
	out := make([]byte, n)
	for i := range out {
		d, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("rand error: %w", err)
		}
		out[i] = byte('0' + d.Int64())
	}
	return string(out), nil
}

// GenerateRandByteArray returns size random bytes. It panics only if the
// system random source is unavailable.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}
