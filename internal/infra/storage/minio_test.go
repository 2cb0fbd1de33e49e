package storage

import (
	"context"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func offlineStore(t *testing.T) *Store {
	t.Helper()
	// region set so presigning never asks the server for the bucket location
	cli, err := minio.New("minio.local:9000", &minio.Options{
		Creds:  credentials.NewStaticV4("access", "secret", ""),
		Region: "us-east-1",
	})
	require.NoError(t, err)
	return newStore(cli, "dental", 10*time.Minute)
}

func TestStore_Link(t *testing.T) {
	s := offlineStore(t)

	got, err := s.Link(context.Background(), "/uploads/xray/5/scan.jpg")
	require.NoError(t, err)
	assert.Contains(t, got, "http://minio.local:9000/dental/uploads/xray/5/scan.jpg?")
	assert.Contains(t, got, "X-Amz-Signature=")
	assert.Contains(t, got, "X-Amz-Expires=600")
}

func TestStore_LinkPassesThroughURLs(t *testing.T) {
	s := offlineStore(t)
	got, err := s.Link(context.Background(), "https://cdn.example.com/a.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a.png", got)
}

func TestNewStore_DefaultTTL(t *testing.T) {
	assert.Equal(t, 15*time.Minute, newStore(nil, "b", 0).presignTTL)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "text/html; charset=utf-8", contentTypeFor("reports/5/2/ai_report.html"))
	assert.Equal(t, "image/jpeg", contentTypeFor("x.JPG"))
	assert.Equal(t, "application/octet-stream", contentTypeFor("blob"))
}
