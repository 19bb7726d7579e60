// Package xhash provides the content addressing primitives shared by the
// upload pipeline and the manifest composer: SHA-256 digests in URL-safe
// Base64 form, MD5 digests in lowercase hex form, and the derivation of a
// stable UUID from a digest string.
package xhash

import (
	"crypto/md5" //nolint:gosec // asset keys are fixed by the update protocol, not security sensitive
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

const uuidLength = 32

// SHA256Base64URL returns the SHA-256 digest of data encoded with the
// URL-safe Base64 alphabet and without padding.
func SHA256Base64URL(data []byte) string {
	sum := sha256.Sum256(data)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// MD5Hex returns the MD5 digest of data in lowercase hex form. The update
// protocol fixes the asset key format to MD5 so the algorithm is not
// replaceable here.
func MD5Hex(data []byte) string {
	sum := md5.Sum(data) //nolint:gosec // see package comment
	return hex.EncodeToString(sum[:])
}

// UUIDFromDigest derives a stable UUID-formatted string from a digest.
// Non-alphanumeric characters are dropped, the remainder is lowercased and
// truncated to 32 characters (right-padded with "0" when shorter), and
// dashes are inserted in the canonical 8-4-4-4-12 grouping.
func UUIDFromDigest(digest string) string {
	var b strings.Builder
	b.Grow(uuidLength)
	for _, r := range digest {
		if b.Len() == uuidLength {
			break
		}
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	s := b.String()
	if len(s) < uuidLength {
		s += strings.Repeat("0", uuidLength-len(s))
	}
	return s[0:8] + "-" + s[8:12] + "-" + s[12:16] + "-" + s[16:20] + "-" + s[20:32]
}
