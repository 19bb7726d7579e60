package update

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"

	"github.com/wuxler/otaserve/pkg/errdefs"
)

// SignatureHeaderName carries the manifest signature, both as a part header
// and mirrored at the top level of the response.
const SignatureHeaderName = "expo-signature"

// extensionsBody is the fixed second part of every manifest response.
const extensionsBody = `{"assetRequestHeaders":{}}`

// EncodeMultipart renders the two-part multipart/mixed body of a manifest
// response: the manifest bytes exactly as composed (or as pre-signed by the
// publisher) and the fixed extensions document. A fresh boundary is drawn
// per call. Returns the Content-Type header value and the body.
func EncodeMultipart(manifest []byte, signature string) (string, []byte, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	manifestHeader := make(textproto.MIMEHeader)
	manifestHeader.Set("Content-Type", "application/json; charset=utf-8")
	manifestHeader.Set("Content-Disposition", `form-data; name="manifest"`)
	if signature != "" {
		manifestHeader.Set(SignatureHeaderName, signature)
	}
	part, err := writer.CreatePart(manifestHeader)
	if err != nil {
		return "", nil, errdefs.NewE(errdefs.ErrSystem, err)
	}
	if _, err := part.Write(manifest); err != nil {
		return "", nil, errdefs.NewE(errdefs.ErrSystem, err)
	}

	extensionsHeader := make(textproto.MIMEHeader)
	extensionsHeader.Set("Content-Type", "application/json")
	extensionsHeader.Set("Content-Disposition", `form-data; name="extensions"`)
	part, err = writer.CreatePart(extensionsHeader)
	if err != nil {
		return "", nil, errdefs.NewE(errdefs.ErrSystem, err)
	}
	if _, err := part.Write([]byte(extensionsBody)); err != nil {
		return "", nil, errdefs.NewE(errdefs.ErrSystem, err)
	}

	if err := writer.Close(); err != nil {
		return "", nil, errdefs.NewE(errdefs.ErrSystem, err)
	}
	contentType := fmt.Sprintf("multipart/mixed; boundary=%s", writer.Boundary())
	return contentType, buf.Bytes(), nil
}
