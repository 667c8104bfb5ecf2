package httpx

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"io"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compress(t *testing.T, coding string, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	var w io.WriteCloser
	switch coding {
	case "gzip":
		w = gzip.NewWriter(&buf)
	case "br":
		w = brotli.NewWriter(&buf)
	case "zstd":
		zw, err := zstd.NewWriter(&buf)
		require.NoError(t, err)
		w = zw
	case "deflate":
		w = zlib.NewWriter(&buf)
	case "raw-deflate":
		fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
		require.NoError(t, err)
		w = fw
	default:
		t.Fatalf("unknown coding %q", coding)
	}
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestDecodeChain(t *testing.T) {
	plain := []byte(`{"issues":[],"confidenceScore":0.9}`)

	tests := []struct {
		name        string
		header      string
		body        func(t *testing.T) []byte
		wantChanged bool
	}{
		{"no encoding", "", func(*testing.T) []byte { return plain }, false},
		{"identity", "identity", func(*testing.T) []byte { return plain }, false},
		{"gzip", "gzip", func(t *testing.T) []byte { return compress(t, "gzip", plain) }, true},
		{"brotli", "br", func(t *testing.T) []byte { return compress(t, "br", plain) }, true},
		{"zstd", "zstd", func(t *testing.T) []byte { return compress(t, "zstd", plain) }, true},
		{"zlib deflate", "deflate", func(t *testing.T) []byte { return compress(t, "deflate", plain) }, true},
		{"raw deflate", "deflate", func(t *testing.T) []byte { return compress(t, "raw-deflate", plain) }, true},
		{"mixed case and spaces", " GZip ", func(t *testing.T) []byte { return compress(t, "gzip", plain) }, true},
		{
			name:   "chained gzip then br",
			header: "gzip, br",
			body: func(t *testing.T) []byte {
				return compress(t, "br", compress(t, "gzip", plain))
			},
			wantChanged: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, changed, err := DecodeChain(tt.header, tt.body(t))
			require.NoError(t, err)
			assert.Equal(t, tt.wantChanged, changed)
			assert.Equal(t, plain, decoded)
		})
	}
}

func TestDecodeChain_UnsupportedEncoding(t *testing.T) {
	_, changed, err := DecodeChain("snappy", []byte("x"))
	require.Error(t, err)
	assert.False(t, changed)
	assert.Contains(t, err.Error(), "snappy")
}

func TestDecodeChain_CorruptBody(t *testing.T) {
	_, _, err := DecodeChain("gzip", []byte("definitely not gzip"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gzip")
}
