// Package idempotency builds deterministic keys that notification
// drivers attach to outbound calls so a retried send is safe at the
// transport layer even when the driver itself has no dedup of its own.
package idempotency

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	KeyVersion = "v1"

	MaxScopeLen = 32
	MaxKeyLen   = 256

	MaxParts = 32
	MaxBytes = 32 * 1024
)

var (
	ErrInvalidKey   = errors.New("idempotency: invalid key")
	ErrInputTooBig  = errors.New("idempotency: input too big")
	ErrInvalidScope = errors.New("idempotency: invalid scope")
)

// KeyParts is the parsed representation of a key.
type KeyParts struct {
	Version string
	Scope   string
	Hash    string // lowercase hex sha256
}

// BuildKey computes a deterministic key for a scope from ordered parts.
func BuildKey(scope string, parts ...any) (string, error) {
	scope, err := normalizeScope(scope)
	if err != nil {
		return "", err
	}
	if len(parts) > MaxParts {
		return "", ErrInputTooBig
	}
	b, err := encodeDeterministic(parts)
	if err != nil {
		return "", err
	}
	if len(b) > MaxBytes {
		return "", ErrInputTooBig
	}
	sum := sha256.Sum256(b)
	hash := hex.EncodeToString(sum[:])
	key := fmt.Sprintf("%s:%s:%s", KeyVersion, scope, hash)
	if len(key) > MaxKeyLen {
		return "", ErrInvalidKey
	}
	return key, nil
}

// NotificationKey builds the idempotency key a notification driver
// attaches to an outbound call: scoped by (dealId, reason, audience,
// dayBucket) so repeated sends for the same logical notification on the
// same day collapse to one key, while reminders on different days do not.
func NotificationKey(dealID, reason, audience string, dayBucket string) (string, error) {
	return BuildKey("notify", dealID, reason, audience, dayBucket)
}

// ParseKey parses "v1:<scope>:<sha256hex>".
func ParseKey(key string) (KeyParts, error) {
	key = strings.TrimSpace(key)
	if key == "" || len(key) > MaxKeyLen {
		return KeyParts{}, ErrInvalidKey
	}
	parts := strings.Split(key, ":")
	if len(parts) != 3 {
		return KeyParts{}, ErrInvalidKey
	}
	v, scope, hash := parts[0], parts[1], parts[2]
	if v != KeyVersion {
		return KeyParts{}, ErrInvalidKey
	}
	nscope, err := normalizeScope(scope)
	if err != nil {
		return KeyParts{}, err
	}
	if hash == "" || len(hash) != 64 || !isLowerHex(hash) {
		return KeyParts{}, ErrInvalidKey
	}
	return KeyParts{Version: v, Scope: nscope, Hash: hash}, nil
}

// ValidateKey checks format and returns nil if valid.
func ValidateKey(key string) error {
	_, err := ParseKey(key)
	return err
}

func normalizeScope(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || len(s) > MaxScopeLen {
		return "", ErrInvalidScope
	}
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			continue
		}
		return "", ErrInvalidScope
	}
	return s, nil
}

func isLowerHex(s string) bool {
	for _, r := range s {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') {
			continue
		}
		return false
	}
	return true
}

// ---- deterministic encoder ----
//
// Avoids json.Marshal(map) nondeterminism: maps get sorted keys, slices
// keep order, strings are JSON-escaped. Intended for hashing only, not
// user-facing serialization.

func encodeDeterministic(parts []any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encAny(&buf, parts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encAny(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case bool:
		if x {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case string:
		b, _ := json.Marshal(x)
		buf.Write(b)
		return nil
	case int:
		buf.WriteString(strconv.FormatInt(int64(x), 10))
		return nil
	case int64:
		buf.WriteString(strconv.FormatInt(x, 10))
		return nil
	case float64:
		buf.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
		return nil
	case []any:
		buf.WriteByte('[')
		for i := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encAny(buf, x[i]); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, strings.ToLower(strings.TrimSpace(k)))
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if k == "" {
				continue
			}
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			buf.Write(kb)
			buf.WriteByte(':')
			if err := encAny(buf, x[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}
}
