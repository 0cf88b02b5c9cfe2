package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"rssreader/models"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const acceptEncoding = "zstd, gzip"

var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// readBody decodes the response according to its Content-Encoding and reads
// at most maxSize decoded bytes
func readBody(resp *http.Response, url string, maxSize int64) ([]byte, error) {
	var reader io.Reader = resp.Body

	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch encoding {
	case "", "identity":
	case "zstd":
		decoder, err := zstd.NewReader(resp.Body, zstd.WithDecoderConcurrency(1), zstd.WithDecoderMaxMemory(uint64(maxSize)))
		if err != nil {
			return nil, &models.FeedError{Kind: models.KindParse, URL: url, Cause: fmt.Errorf("zstd: %w", err)}
		}
		defer decoder.Close()
		reader = decoder
	case "gzip", "x-gzip":
		decoder, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, &models.FeedError{Kind: models.KindParse, URL: url, Cause: fmt.Errorf("gzip: %w", err)}
		}
		defer decoder.Close()
		reader = decoder
	default:
		return nil, &models.FeedError{Kind: models.KindParse, URL: url, Cause: fmt.Errorf("unsupported content encoding %q", encoding)}
	}

	data, err := io.ReadAll(io.LimitReader(reader, maxSize+1))
	if err != nil {
		kind := models.KindFetch
		if encoding != "" && encoding != "identity" && !isNetworkError(err) {
			kind = models.KindParse
		}
		return nil, &models.FeedError{Kind: kind, URL: url, Cause: err}
	}
	if int64(len(data)) > maxSize {
		return nil, &models.FeedError{Kind: models.KindParse, URL: url, Cause: ErrBodyTooLarge}
	}
	return data, nil
}

// isNetworkError reports whether a body read failed in transport rather than in a decoder
func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
