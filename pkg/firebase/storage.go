package firebase

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// BucketStore writes media objects to the app's default Storage bucket and
// returns a Firebase download URL for each one.
type BucketStore struct {
	bucket *storage.BucketHandle
	name   string
}

// NewBucketStore opens the default bucket configured on the app.
func (a *App) NewBucketStore(ctx context.Context) (*BucketStore, error) {
	client, err := a.FirebaseApp.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase storage client: %w", err)
	}
	bucket, err := client.DefaultBucket()
	if err != nil {
		return nil, fmt.Errorf("error opening default bucket: %w", err)
	}
	return &BucketStore{bucket: bucket, name: bucket.BucketName()}, nil
}

// Put streams r to key and returns its public download URL.
func (s *BucketStore) Put(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	token := uuid.NewString()
	w := s.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{"firebaseStorageDownloadTokens": token}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", key, err)
	}
	return DownloadURL(s.name, key, token), nil
}

// DownloadURL builds the token-authorised Firebase Storage URL of an object.
func DownloadURL(bucket, key, token string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		bucket, url.PathEscape(key), url.QueryEscape(token))
}
