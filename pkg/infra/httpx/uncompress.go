package httpx

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

type decoder func(body []byte) (io.ReadCloser, error)

var decoders = map[string]decoder{
	"br": func(body []byte) (io.ReadCloser, error) {
		return io.NopCloser(brotli.NewReader(bytes.NewReader(body))), nil
	},
	"gzip": func(body []byte) (io.ReadCloser, error) {
		return gzip.NewReader(bytes.NewReader(body))
	},
	"zstd": func(body []byte) (io.ReadCloser, error) {
		dec, err := zstd.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	},
	// deflate is usually zlib-wrapped; some servers send it raw.
	"deflate": func(body []byte) (io.ReadCloser, error) {
		if zr, err := zlib.NewReader(bytes.NewReader(body)); err == nil {
			return zr, nil
		}
		return flate.NewReader(bytes.NewReader(body)), nil
	},
}

// DecodeChain undoes a Content-Encoding header value, last coding first.
// It reports whether the body changed.
func DecodeChain(contentEncoding string, body []byte) ([]byte, bool, error) {
	codings := strings.Split(contentEncoding, ",")
	changed := false
	for i := len(codings) - 1; i >= 0; i-- {
		name := strings.ToLower(strings.TrimSpace(codings[i]))
		switch name {
		case "", "identity", "compress":
			continue
		}
		decode, ok := decoders[name]
		if !ok {
			return nil, false, fmt.Errorf("unsupported content-encoding: %q", codings[i])
		}
		out, err := readAll(decode, body)
		if err != nil {
			return nil, false, fmt.Errorf("decoding %s body: %w", name, err)
		}
		body, changed = out, true
	}
	return body, changed, nil
}

func readAll(decode decoder, body []byte) ([]byte, error) {
	r, err := decode(body)
	if err != nil {
		return nil, err
	}
	out, err := io.ReadAll(r)
	if cerr := r.Close(); err == nil {
		err = cerr
	}
	return out, err
}
