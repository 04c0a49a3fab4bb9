package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	body  string
	calls []string
}

func (s *stubFetcher) Download(_ context.Context, url string) (io.ReadCloser, error) {
	s.calls = append(s.calls, url)
	return io.NopCloser(strings.NewReader(s.body)), nil
}

func (s *stubFetcher) DownloadToFile(_ context.Context, url, path string) (int64, error) {
	s.calls = append(s.calls, url)
	return int64(len(s.body)), os.WriteFile(path, []byte(s.body), 0o644)
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("ftp://host/TC.csv"))
	assert.True(t, IsRemote("https://host/TC.csv"))
	assert.True(t, IsRemote("HTTP://host/TC.csv"))
	assert.False(t, IsRemote("data/TC.csv"))
	assert.False(t, IsRemote("/abs/TC.csv"))
	assert.False(t, IsRemote("C:/data/TC.csv"))
}

func TestLocalize_LocalPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "TC.csv")
	require.NoError(t, os.WriteFile(path, []byte("X,Y\n"), 0o644))

	got, cleanup, err := (&Resolver{}).Localize(context.Background(), path, t.TempDir())
	require.NoError(t, err)
	defer cleanup()
	assert.Equal(t, path, got)
}

func TestLocalize_MissingLocal(t *testing.T) {
	_, cleanup, err := (&Resolver{}).Localize(context.Background(), filepath.Join(t.TempDir(), "none.csv"), t.TempDir())
	require.Error(t, err)
	assert.NotNil(t, cleanup)
}

func TestLocalize_FTP(t *testing.T) {
	ftp := &stubFetcher{body: "X,Y\n1,1\n"}
	r := &Resolver{FTP: ftp, HTTP: &stubFetcher{}}
	dir := t.TempDir()

	got, cleanup, err := r.Localize(context.Background(), "ftp://user:pw@host/exports/KH.csv", dir)
	require.NoError(t, err)
	assert.Equal(t, "KH.csv", filepath.Base(got))
	assert.Equal(t, []string{"ftp://user:pw@host/exports/KH.csv"}, ftp.calls)

	data, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, "X,Y\n1,1\n", string(data))

	cleanup()
	_, err = os.Stat(got)
	assert.True(t, os.IsNotExist(err))
}

func TestLocalize_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("X,Y\n2,2\n"))
	}))
	defer srv.Close()

	r := NewResolver(FTPOptions{}, HTTPOptions{Timeout: 5 * time.Second, BackoffBase: time.Millisecond})
	got, cleanup, err := r.Localize(context.Background(), srv.URL+"/TN.csv", t.TempDir())
	require.NoError(t, err)
	defer cleanup()

	data, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, "X,Y\n2,2\n", string(data))
}

func TestLocalize_HTTPFailureCleansUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	r := NewResolver(FTPOptions{}, HTTPOptions{BackoffBase: time.Millisecond})
	_, _, err := r.Localize(context.Background(), srv.URL+"/TN.csv", dir)
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalize_NoFetcher(t *testing.T) {
	_, _, err := (&Resolver{}).Localize(context.Background(), "ftp://host/x.csv", t.TempDir())
	assert.Error(t, err)
}
