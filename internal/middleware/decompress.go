package middleware

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"

	"github.com/tjfontaine/polyglot-connector/internal/core/domain"
)

// DecompressPipe decodes br, gzip and deflate response bodies in place and
// removes the Content-Encoding header. Unknown encodings are left as is.
func DecompressPipe() ResponsePipe {
	return func(ctx context.Context, resp *domain.Response) (*domain.Response, error) {
		encoding := strings.ToLower(strings.TrimSpace(resp.Header("Content-Encoding")))
		if encoding == "" || encoding == "identity" || len(resp.Body) == 0 {
			return nil, nil
		}

		var reader io.Reader
		src := bytes.NewReader(resp.Body)

		switch encoding {
		case "br":
			reader = brotli.NewReader(src)
		case "gzip", "x-gzip":
			gz, err := gzip.NewReader(src)
			if err != nil {
				return nil, fmt.Errorf("decompress %s body: %w", encoding, err)
			}
			defer gz.Close()
			reader = gz
		case "deflate":
			fr := flate.NewReader(src)
			defer fr.Close()
			reader = fr
		default:
			return nil, nil
		}

		body, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("decompress %s body: %w", encoding, err)
		}

		resp.Body = body
		resp.Headers.Del("Content-Encoding")
		resp.Headers.Del("Content-Length")
		return nil, nil
	}
}
