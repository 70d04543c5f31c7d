package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Key derives the content-addressed cache key for an extraction result.
func Key(imageHash, schemaID string, schemaVersion int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", imageHash, schemaID, schemaVersion)))
	return "attrix:result:" + hex.EncodeToString(sum[:])
}

// ImageHash derives the content hash used to deduplicate submissions.
func ImageHash(imageBytes []byte) string {
	sum := sha256.Sum256(imageBytes)
	return hex.EncodeToString(sum[:])
}
