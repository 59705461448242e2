package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// TokenBytes 一次性令牌的随机字节数.
const TokenBytes = 32

// NewOpaqueToken 生成 URL 安全的随机令牌及其 SHA-256 十六进制摘要，仅摘要可落库.
func NewOpaqueToken() (raw, hash string, err error) {
	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}

	raw = base64.RawURLEncoding.EncodeToString(buf)

	return raw, HashToken(raw), nil
}

// HashToken 计算令牌摘要.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))

	return hex.EncodeToString(sum[:])
}
