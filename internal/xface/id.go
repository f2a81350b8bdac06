package xface

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// PostID maps a platform message id onto a stable post identifier. The id
// occupies the low 64 bits; the high 64 bits are zero.
func PostID(messageID uint64) uuid.UUID {
	var id uuid.UUID
	binary.BigEndian.PutUint64(id[8:], messageID)
	return id
}

// MessageID recovers the platform message id from a post identifier. ok is
// false for identifiers PostID cannot produce.
func MessageID(postID uuid.UUID) (uint64, bool) {
	for _, b := range postID[:8] {
		if b != 0 {
			return 0, false
		}
	}
	return binary.BigEndian.Uint64(postID[8:]), true
}
