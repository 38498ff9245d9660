package models

import (
	"encoding/binary"
	"encoding/hex"
	"regexp"
	"time"

	"github.com/google/uuid"
)

var idPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// NewID returns a 24 hex character identifier: 4 bytes of unix seconds followed by
// 8 random bytes, so ids sort roughly by creation time.
func NewID() string {
	var b [12]byte
	binary.BigEndian.PutUint32(b[:4], uint32(time.Now().Unix()))
	r := uuid.New()
	copy(b[4:], r[:8])
	return hex.EncodeToString(b[:])
}

// IsID reports whether s has the shape of an identifier produced by NewID.
func IsID(s string) bool {
	return idPattern.MatchString(s)
}
