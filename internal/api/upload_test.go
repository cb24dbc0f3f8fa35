package api

import (
	"context"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"

	"github.com/impulsenest/teacherpanel/internal/storage"
)

func TestUpload_SendsMultipartForm(t *testing.T) {
	var gotAuth string
	var gotFile, gotType, gotLesson, gotFilename string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		gotFile = string(data)
		gotFilename = hdr.Filename
		gotType = r.FormValue("type")
		gotLesson = r.FormValue("lessonId")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"f1","url":"/files/f1.mp3"}`))
	}))
	defer srv.Close()

	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(storage.KeyToken, "a1"))
	client := newTestClient(srv, store)

	var lastSent, lastTotal int64
	res, err := client.Upload(context.Background(),
		UploadFile{Name: "intro.mp3", Content: strings.NewReader("audio-bytes")},
		UploadOptions{
			Type:     "audio",
			Metadata: map[string]string{"lessonId": "12"},
			OnProgress: func(sent, total int64) {
				lastSent, lastTotal = sent, total
			},
		})
	require.NoError(t, err)

	assert.Equal(t, "Bearer a1", gotAuth)
	assert.Equal(t, "audio-bytes", gotFile)
	assert.Equal(t, "intro.mp3", gotFilename)
	assert.Equal(t, "audio", gotType)
	assert.Equal(t, "12", gotLesson)

	assert.Greater(t, lastTotal, int64(0))
	assert.Equal(t, lastTotal, lastSent, "progress reaches the full body size")

	require.Len(t, res.Files, 1)
	sum := blake3.Sum256([]byte("audio-bytes"))
	assert.Equal(t, hex.EncodeToString(sum[:]), res.Files[0].BLAKE3)
	assert.Equal(t, int64(len("audio-bytes")), res.Files[0].Size)

	var body map[string]string
	require.NoError(t, res.Response.Decode(&body))
	assert.Equal(t, "f1", body["id"])
}

func TestUpload_DefaultType(t *testing.T) {
	var gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotType = r.FormValue("type")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := newTestClient(srv, storage.NewMemoryStore())
	res, err := client.Upload(context.Background(), UploadFile{Name: "a.txt", Content: strings.NewReader("x")}, UploadOptions{})
	require.NoError(t, err)
	assert.Equal(t, DefaultUploadType, gotType)
	assert.True(t, res.Response.JSON, "JSON body detected without content type")
}

func TestUploadMultiple_RepeatsFilesField(t *testing.T) {
	var names []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload/multiple", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		for _, fh := range r.MultipartForm.File["files"] {
			names = append(names, fh.Filename)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"1"},{"id":"2"}]`))
	}))
	defer srv.Close()

	client := newTestClient(srv, storage.NewMemoryStore())
	res, err := client.UploadMultiple(context.Background(), []UploadFile{
		{Name: "one.png", Content: strings.NewReader("1")},
		{Name: "two.png", Content: strings.NewReader("22")},
	}, UploadOptions{Type: "image"})
	require.NoError(t, err)

	assert.Equal(t, []string{"one.png", "two.png"}, names)
	assert.Len(t, res.Files, 2)
}

func TestUpload_ErrorMessages(t *testing.T) {
	tests := []struct {
		name     string
		multiple bool
		body     string
		want     string
	}{
		{"backend message", false, `{"message":"File too large"}`, "File too large"},
		{"single fallback", false, ``, "Upload failed with status: 413"},
		{"multiple fallback", true, `{"statusCode":413}`, "Multiple upload failed with status: 413"},
		{"raw body", true, `payload too large`, "payload too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := newTestClient(srv, storage.NewMemoryStore())
			file := UploadFile{Name: "big.bin", Content: strings.NewReader("data")}

			var err error
			if tt.multiple {
				_, err = client.UploadMultiple(context.Background(), []UploadFile{file}, UploadOptions{})
			} else {
				_, err = client.Upload(context.Background(), file, UploadOptions{})
			}

			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, tt.want, statusErr.Message)
		})
	}
}

func TestUpload_NoRefreshOnUnauthorized(t *testing.T) {
	var uploads, refreshes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/upload":
			uploads.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		case "/auth/refresh":
			refreshes.Add(1)
		}
	}))
	defer srv.Close()

	store := storage.NewMemoryStore()
	seedSession(t, store, "a1")
	client := newTestClient(srv, store)

	_, err := client.Upload(context.Background(), UploadFile{Name: "a", Content: strings.NewReader("x")}, UploadOptions{})
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, int32(1), uploads.Load())
	assert.Equal(t, int32(0), refreshes.Load())
	assert.Equal(t, "a1", storage.GetString(store, storage.KeyToken))
}

func TestUpload_NoFiles(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:0"}, storage.NewMemoryStore())
	_, err := client.UploadMultiple(context.Background(), nil, UploadOptions{})
	assert.Error(t, err)
}
