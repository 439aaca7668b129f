package utils

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// getGoogleClient initializes a Google Cloud Storage client.
// Prefer ADC (Cloud Run service account / GOOGLE_APPLICATION_CREDENTIALS).
// If you need to provide explicit JSON (e.g. locally), set GCS_CREDENTIALS_JSON.
func getGoogleClient(ctx context.Context) (*storage.Client, error) {
	if credJSON := os.Getenv("GCS_CREDENTIALS_JSON"); strings.TrimSpace(credJSON) != "" {
		client, err := storage.NewClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func gcsBucket() (string, error) {
	bucketName := os.Getenv("GCS_BUCKET")
	if bucketName == "" {
		return "", errors.New("GCS_BUCKET is required")
	}
	return bucketName, nil
}

// OpenObjectRead opens a source document for reading. The caller must close
// both the reader and do so before the context is cancelled.
func OpenObjectRead(ctx context.Context, objectName string) (io.ReadCloser, error) {
	bucketName, err := gcsBucket()
	if err != nil {
		return nil, err
	}
	client, err := getGoogleClient(ctx)
	if err != nil {
		return nil, NewTransientInfraError("gcs client", err)
	}

	r, err := client.Bucket(bucketName).Object(objectName).NewReader(ctx)
	if err != nil {
		client.Close()
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrorRecordNotFound
		}
		return nil, NewTransientInfraError("gcs open "+objectName, err)
	}
	return &clientClosingReader{ReadCloser: r, client: client}, nil
}

// UploadObject writes a stream to object storage under objectName.
func UploadObject(ctx context.Context, objectName string, r io.Reader, contentType string) error {
	bucketName, err := gcsBucket()
	if err != nil {
		return err
	}
	client, err := getGoogleClient(ctx)
	if err != nil {
		return NewTransientInfraError("gcs client", err)
	}
	defer client.Close()

	wc := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := io.Copy(wc, r); err != nil {
		_ = wc.Close()
		return NewTransientInfraError("gcs upload "+objectName, err)
	}
	if err := wc.Close(); err != nil {
		return NewTransientInfraError("gcs upload "+objectName, err)
	}
	return nil
}

// clientClosingReader closes the underlying storage client together with the
// object reader, so OpenObjectRead does not leak per-call clients.
type clientClosingReader struct {
	io.ReadCloser
	client *storage.Client
}

func (c *clientClosingReader) Close() error {
	err := c.ReadCloser.Close()
	_ = c.client.Close()
	return err
}
