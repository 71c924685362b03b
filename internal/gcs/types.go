package gcs

import (
	"context"
)

// StorageService abstracts the blob store holding source datasets and
// exported results. The interface exists so the pipeline and API can be
// tested without touching real buckets.
type StorageService interface {
	// Fetch downloads the bytes behind a gs:// URI.
	Fetch(ctx context.Context, gcsURI string) ([]byte, error)

	// UploadFile uploads a local file to a bucket under the given object name.
	UploadFile(ctx context.Context, bucketName, objectName, filePath string) error

	// ObjectName extracts the file name from a gs:// URI.
	ObjectName(uri string) string
}
