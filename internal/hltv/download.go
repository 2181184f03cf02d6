package hltv

import (
	"compress/bzip2"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Download fetches url into path, decompressing bzip2, gzip and zstd demos on
// the fly. The file only appears at path once the copy has completed.
func (c *Client) Download(ctx context.Context, url, path string) (int64, error) {
	resp, err := c.request(ctx, url)
	if err != nil {
		return 0, fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	var src io.Reader = resp.Body
	switch {
	case strings.HasSuffix(url, ".bz2"):
		src = bzip2.NewReader(resp.Body)
	case strings.HasSuffix(url, ".zst"):
		dec, err := zstd.NewReader(resp.Body)
		if err != nil {
			return 0, fmt.Errorf("zstd: %w", err)
		}
		defer dec.Close()
		src = dec
	case strings.HasSuffix(url, ".gz") || resp.Header.Get("Content-Encoding") == "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return 0, fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		src = gz
	}

	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return 0, err
	}
	return n, nil
}
