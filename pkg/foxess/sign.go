package foxess

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// signatureSeparator is the literal backslash escape text, not a CRLF.
const signatureSeparator = `\r\n`

// Sign returns the signature header value for a request to path. The cloud
// expects the lowercase hex md5 of path, token and timestamp joined by the
// literal characters `\r\n`.
func Sign(path, token, timestamp string) string {
	input := strings.Join([]string{path, token, timestamp}, signatureSeparator)
	hash := md5.Sum([]byte(input))
	return hex.EncodeToString(hash[:])
}
