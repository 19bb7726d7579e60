package update

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"

	"github.com/wuxler/otaserve/pkg/errdefs"
)

const signingKeyBits = 2048

// SignatureKeyID is the key id devices look up in the signature header.
const SignatureKeyID = "main"

// GenerateKeyPair creates a fresh RSA-2048 manifest signing pair encoded as
// PKCS#1 private and PKIX public PEM blocks.
func GenerateKeyPair() (privatePEM, publicPEM string, err error) {
	key, err := rsa.GenerateKey(rand.Reader, signingKeyBits)
	if err != nil {
		return "", "", errdefs.NewE(errdefs.ErrSystem, err)
	}
	privateBlock := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}
	publicBytes, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return "", "", errdefs.NewE(errdefs.ErrSystem, err)
	}
	publicBlock := &pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicBytes,
	}
	return string(pem.EncodeToMemory(privateBlock)), string(pem.EncodeToMemory(publicBlock)), nil
}

// Signer signs manifest bytes with an application's private key.
type Signer struct {
	key *rsa.PrivateKey
}

// NewSigner parses a PEM-encoded RSA private key in either PKCS#1 or PKCS#8
// form.
func NewSigner(pemBytes []byte) (*Signer, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errdefs.Newf(errdefs.ErrInvalidParameter, "no PEM block in signing key")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return &Signer{key: key}, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, errdefs.Newf(errdefs.ErrInvalidParameter, "parse signing key: %v", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errdefs.Newf(errdefs.ErrInvalidParameter, "signing key is %T, want RSA", parsed)
	}
	return &Signer{key: key}, nil
}

// Sign returns the RSA-SHA256 signature over data, Base64 encoded. The
// caller must transmit exactly the bytes that were signed.
func (s *Signer) Sign(data []byte) (string, error) {
	digest := sha256.Sum256(data)
	signature, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, digest[:])
	if err != nil {
		return "", errdefs.NewE(errdefs.ErrSystem, err)
	}
	return base64.StdEncoding.EncodeToString(signature), nil
}

// FormatSignatureHeader renders the signature as the structured-headers
// dictionary devices expect.
func FormatSignatureHeader(signature string) string {
	return fmt.Sprintf("sig=%q, keyid=%q", signature, SignatureKeyID)
}
