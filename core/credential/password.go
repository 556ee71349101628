package credential

import "math/rand"

const (
	OneTimePasswordLength = 12
	passwordChars         = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var randIntn = rand.Intn // mockable

// GeneratePassword returns a random alphanumeric password of the given length.
// It is meant for one-time passwords and is not cryptographically secure.
func GeneratePassword(length int) string {
	if length <= 0 {
		length = OneTimePasswordLength
	}
	b := make([]byte, length)
	for i := range b {
		b[i] = passwordChars[randIntn(len(passwordChars))]
	}
	return string(b)
}
