// Package fetcher retrieves dataset files from local paths, FTP and HTTP
// sources into the local filesystem.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Fetcher downloads a remote file.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// Resolver turns a dataset location into a readable local path.
type Resolver struct {
	FTP  Fetcher
	HTTP Fetcher
}

// NewResolver creates a Resolver with the default FTP and HTTP fetchers.
func NewResolver(ftpOpts FTPOptions, httpOpts HTTPOptions) *Resolver {
	return &Resolver{
		FTP:  NewFTPFetcher(ftpOpts),
		HTTP: NewHTTPFetcher(httpOpts),
	}
}

// IsRemote reports whether loc is an ftp or http(s) URL.
func IsRemote(loc string) bool {
	u, err := url.Parse(loc)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "ftp", "http", "https":
		return true
	}
	return false
}

// Localize returns a local path for loc. Local paths are returned as-is
// after a stat. Remote files are downloaded into dir, keeping the base name
// so the dataset reader can pick a format from the extension. The cleanup
// func removes anything Localize created and is never nil.
func (r *Resolver) Localize(ctx context.Context, loc, dir string) (string, func(), error) {
	noop := func() {}
	if !IsRemote(loc) {
		if _, err := os.Stat(loc); err != nil {
			return "", noop, eris.Wrapf(err, "fetcher: dataset %s", loc)
		}
		return loc, noop, nil
	}

	u, _ := url.Parse(loc)
	f := r.HTTP
	if strings.EqualFold(u.Scheme, "ftp") {
		f = r.FTP
	}
	if f == nil {
		return "", noop, eris.Errorf("fetcher: no fetcher for scheme %q", u.Scheme)
	}

	tmp, err := os.MkdirTemp(dir, "fetch-*")
	if err != nil {
		return "", noop, eris.Wrap(err, "fetcher: create temp dir")
	}
	cleanup := func() { _ = os.RemoveAll(tmp) }

	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		name = "dataset.csv"
	}
	dest := filepath.Join(tmp, name)

	n, err := f.DownloadToFile(ctx, loc, dest)
	if err != nil {
		cleanup()
		return "", noop, eris.Wrapf(err, "fetcher: download %s", loc)
	}

	zap.L().Info("fetcher: dataset downloaded",
		zap.String("url", redact(u)),
		zap.Int64("bytes", n),
	)
	return dest, cleanup, nil
}

// redact drops credentials from a URL before it is logged.
func redact(u *url.URL) string {
	c := *u
	c.User = nil
	return c.String()
}
