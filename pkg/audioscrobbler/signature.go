package audioscrobbler

import (
	"crypto/md5"
	"encoding/hex"
)

// AuthToken computes the handshake authentication token:
// md5(md5(secret) + timestamp), both as lowercase hex.
func AuthToken(secret, timestamp string) string {
	return md5hex(md5hex(secret) + timestamp)
}

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
