package model

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid"
)

// NewID 生成按时间有序的 ULID 字符串主键.
func NewID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}
