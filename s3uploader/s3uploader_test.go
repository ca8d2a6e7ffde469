package s3uploader_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coffeed/coffeed-admin/s3uploader"
)

func TestNewRequiresBucket(t *testing.T) {
	_, err := s3uploader.New(context.Background(), s3uploader.Config{Region: "us-east-1"})
	require.Error(t, err)
}

func TestUpload(t *testing.T) {
	var (
		gotPath        string
		gotContentType string
		gotBody        []byte
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	u, err := s3uploader.New(context.Background(), s3uploader.Config{
		AccessKey: "AKID",
		SecretKey: "SECRET",
		Region:    "us-east-1",
		Bucket:    "coffeed-media",
		Endpoint:  srv.URL,
	})
	require.NoError(t, err)

	url, err := u.Upload(context.Background(), "coffee-shops/abc.jpg", "image/jpeg", bytes.NewReader([]byte("jpeg-bytes")))
	require.NoError(t, err)

	require.Equal(t, "/coffeed-media/coffee-shops/abc.jpg", gotPath)
	require.Equal(t, "image/jpeg", gotContentType)
	require.Equal(t, "jpeg-bytes", string(gotBody))
	require.Equal(t, "https://coffeed-media.s3.us-east-1.amazonaws.com/coffee-shops/abc.jpg", url)
}

func TestObjectURLWithPublicBase(t *testing.T) {
	u, err := s3uploader.New(context.Background(), s3uploader.Config{
		Region:        "us-east-1",
		Bucket:        "coffeed-media",
		PublicBaseURL: "https://cdn.coffeed.cl/",
	})
	require.NoError(t, err)

	require.Equal(t, "https://cdn.coffeed.cl/coffee-shops/a.png", u.ObjectURL("coffee-shops/a.png"))
}
