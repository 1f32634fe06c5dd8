/*
Package randx provides cryptographically secure random identifiers and sampling.

It generates UUID message and session identifiers and implements uniform sampling
without replacement, used to pick rain-distribution winners.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// MessageID generates a UUID v4 string to serve as a unique identifier for a message.
func MessageID() string {
	return uuid.New().String()
}

// SessionID generates a UUID v4 string to identify a single connection's session.
func SessionID() string {
	return uuid.New().String()
}

// SampleIndexes returns k distinct indexes drawn uniformly at random from [0, n)
// using crypto/rand. When k >= n every index is returned. The result order is the
// shuffle order, not ascending.
func SampleIndexes(n, k int) ([]int, error) {
	if n <= 0 || k <= 0 {
		return nil, nil
	}
	if k > n {
		k = n
	}

	indexes := make([]int, n)
	for i := range indexes {
		indexes[i] = i
	}

	// partial Fisher-Yates: only the first k positions need to be settled
	for i := 0; i < k; i++ {
		j, err := randInt(int64(n - i))
		if err != nil {
			return nil, err
		}
		indexes[i], indexes[i+int(j)] = indexes[i+int(j)], indexes[i]
	}

	return indexes[:k], nil
}

// randInt returns a uniform random value in [0, max) from crypto/rand.
func randInt(max int64) (int64, error) {
	num, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		return 0, fmt.Errorf("failed to draw random number: %w", err)
	}
	return num.Int64(), nil
}
