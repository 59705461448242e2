package kv

import (
	"bytes"
	"encoding/binary"
	"strings"
	"time"
)

// 不支持逐键过期的后端（NATS KV、groupcache）把过期时间写进值头部：
//
//	0x00 'T' 'V' 0x01 | 过期时间 unix 毫秒，8 字节大端 | 原始值
//
// ttl <= 0 时不加头部. 缓存值均为 JSON，不会以 0x00 开头.
var expiryMagic = []byte{0x00, 'T', 'V', 0x01}

const expiryHeaderLen = 4 + 8

// withExpiry 按 ttl 添加过期头.
func withExpiry(value []byte, ttl time.Duration, now time.Time) []byte {
	if ttl <= 0 {
		return bytes.Clone(value)
	}

	out := make([]byte, expiryHeaderLen, expiryHeaderLen+len(value))
	copy(out, expiryMagic)
	binary.BigEndian.PutUint64(out[4:], uint64(now.Add(ttl).UnixMilli()))

	return append(out, value...)
}

// splitExpiry 去掉过期头；live 为 false 表示已过期.
func splitExpiry(stored []byte, now time.Time) (value []byte, live bool) {
	if len(stored) < expiryHeaderLen || !bytes.HasPrefix(stored, expiryMagic) {
		return stored, true
	}

	expireAt := int64(binary.BigEndian.Uint64(stored[4:expiryHeaderLen]))
	if now.UnixMilli() >= expireAt {
		return nil, false
	}

	return stored[expiryHeaderLen:], true
}

// matchPattern 支持 "*"、精确匹配与 "prefix*".
func matchPattern(pattern, key string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}

	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(key, prefix)
	}

	return key == pattern
}
