package binance

import (
	"bytes"
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Signer signs the canonical query string of a request.
type Signer interface {
	Sign(payload string) string
}

type HMACSigner struct {
	secret []byte
}

func NewHMACSigner(secret string) HMACSigner {
	return HMACSigner{secret: []byte(secret)}
}

// Sign returns the lowercase hex HMAC-SHA256 of payload.
func (s HMACSigner) Sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

type Ed25519Signer struct {
	key ed25519.PrivateKey
}

func NewEd25519Signer(key ed25519.PrivateKey) Ed25519Signer {
	return Ed25519Signer{key: key}
}

// LoadEd25519PrivateKey reads a PKCS#8 PEM, base64 or raw 64-byte private key.
func LoadEd25519PrivateKey(path string) (ed25519.PrivateKey, error) {
	if path == "" {
		return nil, errors.New("exchange ed25519_private_key_path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ed25519 key: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty ed25519 private key")
	}
	if block, _ := pem.Decode(data); block != nil {
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse ed25519 pem: %w", err)
		}
		priv, ok := key.(ed25519.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("unsupported private key type %T", key)
		}
		return priv, nil
	}
	if raw, err := base64.StdEncoding.DecodeString(string(data)); err == nil && len(raw) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(raw), nil
	}
	if len(data) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(data), nil
	}
	return nil, errors.New("unsupported ed25519 private key format")
}

// Sign returns the base64 Ed25519 signature of payload.
func (s Ed25519Signer) Sign(payload string) string {
	signature := ed25519.Sign(s.key, []byte(payload))
	return base64.StdEncoding.EncodeToString(signature)
}

// Sign stamps params with now in milliseconds, ahead of the caller's params,
// and signs the resulting canonical query. It returns the query without the
// signature and the signature itself.
func Sign(params Params, signer Signer, now time.Time) (string, string) {
	stamped := make(Params, 0, len(params)+1)
	stamped.Set("timestamp", strconv.FormatInt(now.UnixMilli(), 10))
	for _, kv := range params {
		stamped.Set(kv.Key, kv.Value)
	}
	query := stamped.Encode()
	return query, signer.Sign(query)
}

func signedQuery(params Params, signer Signer, now time.Time) string {
	query, signature := Sign(params, signer, now)
	return query + "&signature=" + url.QueryEscape(signature)
}
