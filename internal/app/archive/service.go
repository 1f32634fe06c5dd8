/*
Package archive persists chat history evicted during scheduled compaction to
S3-compatible object storage.

Archiving is best-effort: the in-memory buffers are the operative history, and a
failed upload only loses the long-tail archive copy, never live replay data.
*/
package archive

import "context"

// ServiceConfig holds the configuration required to connect to the archive storage.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// Service is the interface the chat core uses to archive evicted history.
type Service interface {
	// Archive uploads one batch of JSON-encoded message lines for the given
	// room ("global" for the cross-room buffer).
	Archive(ctx context.Context, roomID string, lines [][]byte) error
}

// NewService is the factory function for Service. Only S3-compatible backends
// are currently supported.
func NewService(cfg ServiceConfig) (Service, error) {
	return newS3Archiver(cfg)
}
