package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	pinMin = 1000
	pinMax = 9999
)

// generatePin draws a four digit PIN uniformly from [1000, 9999].
func generatePin() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(pinMax-pinMin+1))
	if err != nil {
		return "", fmt.Errorf("failed to generate pin: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+pinMin), nil
}
