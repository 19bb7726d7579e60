package xhash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSHA256Base64URL(t *testing.T) {
	testcases := []struct {
		input string
		want  string
	}{
		{"", "47DEQpj8HBSa-_TImW-5JCeuQeRkm5NMpJWZG3hSuFU"},
		{"hello", "LPJNul-wow4m6DsqxbninhsWHlwfp0JecwQzYpOLmCQ"},
	}
	for _, tc := range testcases {
		assert.Equal(t, tc.want, SHA256Base64URL([]byte(tc.input)))
	}
}

func TestSHA256Base64URLStable(t *testing.T) {
	data := []byte("metadata.json:ios")
	first := SHA256Base64URL(data)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, SHA256Base64URL(data))
	}
}

func TestMD5Hex(t *testing.T) {
	testcases := []struct {
		input string
		want  string
	}{
		{"", "d41d8cd98f00b204e9800998ecf8427e"},
		{"hello", "5d41402abc4b2a76b9719d911017c592"},
	}
	for _, tc := range testcases {
		assert.Equal(t, tc.want, MD5Hex([]byte(tc.input)))
	}
}

func TestUUIDFromDigest(t *testing.T) {
	testcases := []struct {
		name   string
		digest string
		want   string
	}{
		{
			name:   "hex digest",
			digest: "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
			want:   "2cf24dba-5fb0-a30e-26e8-3b2ac5b9e29e",
		},
		{
			name:   "base64url digest drops separators",
			digest: "LPJNul-wow4m6DsqxbninhsWHlwfp0JecwQzYpOLmCQ",
			want:   "lpjnulwo-w4m6-dsqx-bnin-hswhlwfp0jec",
		},
		{
			name:   "short input right pads with zero",
			digest: "abc",
			want:   "abc00000-0000-0000-0000-000000000000",
		},
		{
			name:   "empty input",
			digest: "",
			want:   "00000000-0000-0000-0000-000000000000",
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, UUIDFromDigest(tc.digest))
		})
	}
}

func TestUUIDFromDigestDeterministic(t *testing.T) {
	digest := SHA256Base64URL([]byte("some metadata bytes"))
	first := UUIDFromDigest(digest)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, UUIDFromDigest(SHA256Base64URL([]byte("some metadata bytes"))))
	}
}
