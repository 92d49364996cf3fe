package s3blob

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/seedliq/makerbot/internal/domain"
)

// Archiver implements domain.SnapshotArchiver by writing each snapshot as one
// JSON object. Snapshots are small, so a single PutObject suffices.
type Archiver struct {
	client *Client
}

// NewArchiver creates an Archiver writing to the client's bucket.
func NewArchiver(c *Client) *Archiver {
	return &Archiver{client: c}
}

// Archive uploads data under the given object key.
func (a *Archiver) Archive(ctx context.Context, name string, data []byte) error {
	_, err := a.client.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.client.bucket),
		Key:         aws.String(name),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3blob: archive %s: %w", name, err)
	}
	return nil
}

var _ domain.SnapshotArchiver = (*Archiver)(nil)
