/*
Package randx generates cryptographically secure random identifiers.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	// Base62Chars is the alphabet used for generated names (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the size of the Base62 alphabet.
	Base62Len = int64(len(Base62Chars))

	// UploadNameLength is the number of random characters in an upload file name.
	UploadNameLength = 16
)

// Base62 returns n random characters from Base62Chars using crypto/rand.
func Base62(n int) (string, error) {
	result := make([]byte, n)

	for i := 0; i < n; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// UploadName returns a random file name with the given extension (including the dot).
func UploadName(ext string) (string, error) {
	name, err := Base62(UploadNameLength)
	if err != nil {
		return "", err
	}
	return name + strings.ToLower(ext), nil
}

// IsUploadName reports whether name has the shape produced by UploadName.
func IsUploadName(name string) bool {
	dot := strings.IndexByte(name, '.')
	if dot != UploadNameLength || dot == len(name)-1 {
		return false
	}

	for _, char := range name[:dot] {
		if !strings.ContainsRune(Base62Chars, char) {
			return false
		}
	}
	for _, char := range name[dot+1:] {
		if char < 'a' || char > 'z' {
			return false
		}
	}

	return true
}
