package core

import "strings"

// Credentials are held in memory for the session only.
type Credentials struct {
	APIKey    string
	SecretKey string
}

func (c Credentials) Ready() bool {
	return strings.TrimSpace(c.APIKey) != "" && strings.TrimSpace(c.SecretKey) != ""
}

func (c Credentials) MaskedKey() string {
	return MaskKey(c.APIKey)
}

func (c Credentials) String() string {
	return "api_key=" + c.MaskedKey() + " secret_key=***"
}

// MaskKey keeps the first and last four characters of long keys.
func MaskKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
