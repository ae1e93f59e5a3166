// Package passgen synthesizes random passwords from crypto/rand.
package passgen

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// MinLength is the floor applied to every requested length.
const MinLength = 12

// DefaultLength is used by callers that do not ask for a specific length.
const DefaultLength = 16

const (
	upperChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars   = "abcdefghijklmnopqrstuvwxyz"
	digitChars   = "0123456789"
	specialChars = "!@#$%^&*()_+-=[]{}|;:,.<>?"

	// fallbackChars is the alphabet used when no class is enabled.
	fallbackChars = upperChars + lowerChars + digitChars + "!@#$%^&*()_+-="
)

// Classes selects the character classes a generated password draws from.
type Classes struct {
	Upper   bool
	Lower   bool
	Digits  bool
	Special bool
}

// AllClasses enables every character class.
var AllClasses = Classes{Upper: true, Lower: true, Digits: true, Special: true}

func (c Classes) sets() []string {
	var sets []string
	if c.Upper {
		sets = append(sets, upperChars)
	}
	if c.Lower {
		sets = append(sets, lowerChars)
	}
	if c.Digits {
		sets = append(sets, digitChars)
	}
	if c.Special {
		sets = append(sets, specialChars)
	}
	return sets
}

// Generate returns a password of exactly max(length, MinLength) characters.
//
// One character of every enabled class is placed first, the rest is drawn
// uniformly from the union of the enabled classes, and the result is shuffled
// so class positions are not predictable. With no class enabled the password
// is drawn from letters, digits and a reduced symbol set without per-class
// guarantees.
func Generate(length int, classes Classes) (string, error) {
	if length < MinLength {
		length = MinLength
	}

	sets := classes.sets()
	alphabet := strings.Join(sets, "")
	if alphabet == "" {
		alphabet = fallbackChars
	}

	password := make([]byte, 0, length)
	for _, set := range sets {
		ch, err := pickRandomChar(set)
		if err != nil {
			return "", err
		}
		password = append(password, ch)
	}

	for len(password) < length {
		ch, err := pickRandomChar(alphabet)
		if err != nil {
			return "", err
		}
		password = append(password, ch)
	}

	if err := shuffle(password); err != nil {
		return "", err
	}
	return string(password), nil
}

func pickRandomChar(set string) (byte, error) {
	idx, err := randInt(len(set))
	if err != nil {
		return 0, err
	}
	return set[idx], nil
}

// shuffle is a Fisher-Yates pass driven by crypto/rand.
func shuffle(b []byte) error {
	for i := len(b) - 1; i > 0; i-- {
		j, err := randInt(i + 1)
		if err != nil {
			return err
		}
		b[i], b[j] = b[j], b[i]
	}
	return nil
}

func randInt(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, fmt.Errorf("generate random index: %w", err)
	}
	return int(n.Int64()), nil
}
