// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedPut struct {
	path        string
	query       string
	comp        string
	body        []byte
	contentType string
	blobType    string
}

type blobServer struct {
	mu   sync.Mutex
	puts []capturedPut
}

func (s *blobServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.mu.Lock()
	s.puts = append(s.puts, capturedPut{
		path:        r.URL.Path,
		query:       r.URL.RawQuery,
		comp:        r.URL.Query().Get("comp"),
		body:        body,
		contentType: r.Header.Get("x-ms-blob-content-type"),
		blobType:    r.Header.Get("x-ms-blob-type"),
	})
	s.mu.Unlock()
	w.Header().Set("ETag", `"0x8D0"`)
	w.WriteHeader(http.StatusCreated)
}

func (s *blobServer) snapshot() []capturedPut {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]capturedPut(nil), s.puts...)
}

// payload reassembles the uploaded bytes from either a single Put Blob or
// staged blocks.
func payload(puts []capturedPut) string {
	var sb strings.Builder
	for _, p := range puts {
		if p.comp == "blocklist" {
			continue
		}
		sb.Write(p.body)
	}
	return sb.String()
}

func contentTypes(puts []capturedPut) []string {
	var out []string
	for _, p := range puts {
		if p.contentType != "" {
			out = append(out, p.contentType)
		}
	}
	return out
}

func TestUploadBuffer(t *testing.T) {
	srv := &blobServer{}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	u := NewUploader(Options{HTTPClient: ts.Client()})
	res, err := u.UploadBuffer(context.Background(), ts.URL+"/asset-1?sv=2020-08-04&sig=abc", "poster.png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "poster.png", res.Name)
	assert.Equal(t, int64(9), res.Size)

	puts := srv.snapshot()
	require.NotEmpty(t, puts)
	for _, p := range puts {
		assert.Equal(t, "/asset-1/poster.png", p.path)
		assert.Contains(t, p.query, "sig=abc")
	}
	assert.Equal(t, "png-bytes", payload(puts))
	assert.Contains(t, contentTypes(puts), "image/png")
}

func TestUploadFile(t *testing.T) {
	srv := &blobServer{}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	path := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"a":1}`), 0o600))

	u := NewUploader(Options{HTTPClient: ts.Client()})
	res, err := u.UploadFile(context.Background(), ts.URL+"/asset-2?sig=xyz", path, "")
	require.NoError(t, err)
	assert.Equal(t, "manifest.json", res.Name)
	assert.Equal(t, int64(7), res.Size)

	puts := srv.snapshot()
	require.NotEmpty(t, puts)
	assert.Equal(t, "/asset-2/manifest.json", puts[0].path)
	assert.Equal(t, `{"a":1}`, payload(puts))
	assert.Contains(t, contentTypes(puts), "application/json")
}

func TestUploadRejectsInvalidTargets(t *testing.T) {
	u := NewUploader(Options{})
	ctx := context.Background()

	cases := []struct {
		name   string
		sasURL string
		blob   string
	}{
		{"ftp scheme", "ftp://account.blob.example/asset", "a.mp4"},
		{"no container", "https://account.blob.example/", "a.mp4"},
		{"empty blob", "https://account.blob.example/asset", ""},
		{"traversal", "https://account.blob.example/asset", "../escape.mp4"},
		{"absolute", "https://account.blob.example/asset", "/abs.mp4"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := u.UploadBuffer(ctx, tc.sasURL, tc.blob, []byte("x"))
			require.ErrorIs(t, err, ErrInvalidTarget)
		})
	}
}

func TestUploadFileRejectsDirectory(t *testing.T) {
	u := NewUploader(Options{})
	_, err := u.UploadFile(context.Background(), "https://account.blob.example/asset?sig=x", t.TempDir(), "dir")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a regular file")
}

func TestCollect(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "video"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "video", "main.mp4"), []byte("1234"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "manifest.ism"), []byte("xml"), 0o600))

	files, err := Collect(root)
	require.NoError(t, err)
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	assert.True(t, sort.StringsAreSorted(names))
	assert.Equal(t, []string{"manifest.ism", "video/main.mp4"}, names)
	assert.Equal(t, int64(4), files[1].Size)

	single, err := Collect(filepath.Join(root, "manifest.ism"))
	require.NoError(t, err)
	require.Len(t, single, 1)
	assert.Equal(t, "manifest.ism", single[0].Name)
}

func TestCollectRejectsEscapingSymlink(t *testing.T) {
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("s"), 0o600))

	root := t.TempDir()
	if err := os.Symlink(filepath.Join(outside, "secret.txt"), filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	_, err := Collect(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes root")
}
