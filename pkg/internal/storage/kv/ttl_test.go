package kv

import (
	"testing"
	"time"
)

func TestExpiryFrame(t *testing.T) {
	now := time.Unix(1700000000, 0)

	plain := withExpiry([]byte(`{"a":1}`), 0, now)
	if v, live := splitExpiry(plain, now.Add(time.Hour)); !live || string(v) != `{"a":1}` {
		t.Fatalf("plain value = %q live=%v", v, live)
	}

	framed := withExpiry([]byte("payload"), time.Minute, now)
	if len(framed) != expiryHeaderLen+len("payload") {
		t.Fatalf("framed length %d", len(framed))
	}

	if v, live := splitExpiry(framed, now.Add(59*time.Second)); !live || string(v) != "payload" {
		t.Fatalf("before expiry: %q live=%v", v, live)
	}

	if _, live := splitExpiry(framed, now.Add(time.Minute)); live {
		t.Fatal("value should be expired at deadline")
	}

	// 与头部前缀相同但长度不足的值按原样返回
	short := append([]byte(nil), expiryMagic...)
	if v, live := splitExpiry(short, now); !live || len(v) != len(short) {
		t.Fatalf("short value = %v live=%v", v, live)
	}
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern, key string
		want         bool
	}{
		{"", "usage:1", true},
		{"*", "usage:1", true},
		{"usage:*", "usage:1", true},
		{"usage:*", "rc:1", false},
		{"usage:1", "usage:1", true},
		{"usage:1", "usage:10", false},
	}

	for _, tt := range tests {
		if got := matchPattern(tt.pattern, tt.key); got != tt.want {
			t.Errorf("matchPattern(%q, %q) = %v", tt.pattern, tt.key, got)
		}
	}
}
