package update_test

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wuxler/otaserve/pkg/update"
)

func TestEncodeMultipart(t *testing.T) {
	manifest := []byte(`{"id":"u1"}`)
	contentType, body, err := update.EncodeMultipart(manifest, `sig="abc", keyid="main"`)
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)
	require.NotEmpty(t, params["boundary"])

	reader := multipart.NewReader(bytes.NewReader(body), params["boundary"])

	part, err := reader.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "manifest", part.FormName())
	assert.Equal(t, "application/json; charset=utf-8", part.Header.Get("Content-Type"))
	assert.Equal(t, `sig="abc", keyid="main"`, part.Header.Get("expo-signature"))
	data, err := io.ReadAll(part)
	require.NoError(t, err)
	assert.Equal(t, manifest, data)

	part, err = reader.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "extensions", part.FormName())
	assert.Equal(t, "application/json", part.Header.Get("Content-Type"))
	data, err = io.ReadAll(part)
	require.NoError(t, err)
	assert.JSONEq(t, `{"assetRequestHeaders":{}}`, string(data))

	_, err = reader.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}

func TestEncodeMultipartWithoutSignature(t *testing.T) {
	contentType, body, err := update.EncodeMultipart([]byte(`{}`), "")
	require.NoError(t, err)

	_, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)
	reader := multipart.NewReader(bytes.NewReader(body), params["boundary"])

	part, err := reader.NextPart()
	require.NoError(t, err)
	assert.Empty(t, part.Header.Get("expo-signature"))
}
