package appinfo_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/wuxler/otaserve/pkg/appinfo"
)

func testVersion() appinfo.Version {
	return appinfo.Version{
		Version: "v1.2.3",
		Git: appinfo.GitInfo{
			Branch:    "main",
			Commit:    "abcdef0123",
			Tag:       "v1.2.3",
			TreeState: "clean",
		},
		Build: appinfo.BuildInfo{
			Date:      "2024-06-01T12:00:00Z",
			GoVersion: "go1.23.0",
			Compiler:  "gc",
			Platform:  "linux/amd64",
		},
	}
}

func TestVersionWriterText(t *testing.T) {
	buf := &bytes.Buffer{}
	err := appinfo.NewVersionWriter(testVersion()).
		SetAppName("otaserve").
		Write(buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Application : otaserve")
	assert.Contains(t, buf.String(), "Version     : v1.2.3")
	assert.Contains(t, buf.String(), "commit=abcdef0123")
}

func TestVersionWriterShort(t *testing.T) {
	buf := &bytes.Buffer{}
	err := appinfo.NewVersionWriter(testVersion()).
		SetShort(true).
		Write(buf)
	require.NoError(t, err)
	assert.Equal(t, "v1.2.3 (abcdef0123)\n", buf.String())
}

func TestVersionWriterJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	err := appinfo.NewVersionWriter(testVersion()).
		SetFormat("json").
		Write(buf)
	require.NoError(t, err)

	var got appinfo.Version
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, testVersion(), got)
}

func TestVersionWriterYAML(t *testing.T) {
	buf := &bytes.Buffer{}
	err := appinfo.NewVersionWriter(testVersion()).
		SetFormat("yaml").
		Write(buf)
	require.NoError(t, err)

	var got appinfo.Version
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, testVersion(), got)
}

func TestVersionWriterUnknownFormat(t *testing.T) {
	err := appinfo.NewVersionWriter(testVersion()).
		SetFormat("xml").
		Write(&bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"xml"`)
}

func TestGetVersionDefaults(t *testing.T) {
	v := appinfo.GetVersion()
	assert.Equal(t, "dev", v.Version)
	assert.NotEmpty(t, v.Build.GoVersion)
	assert.NotEmpty(t, v.Build.Platform)
}
