package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"bsa-go/internal/rule"
)

// s3API is the subset of the S3 client used by S3Vault.
// It exists so tests can substitute a fake client.
type s3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// s3Uploader is the subset of the upload manager used by S3Vault.
type s3Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Vault is an S3-backed implementation of the Vault interface.
// Snapshots are stored under <prefix>/content/<checksum>.
type S3Vault struct {
	name     string
	bucket   string
	prefix   string
	client   s3API
	uploader s3Uploader
}

// NewS3Vault creates an S3 vault using the default AWS credential chain.
// If region is empty, the region from the ambient AWS configuration is used.
func NewS3Vault(name, bucket, prefix, region string) (*S3Vault, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 vault requires a bucket")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	return &S3Vault{
		name:     name,
		bucket:   bucket,
		prefix:   prefix,
		client:   client,
		uploader: manager.NewUploader(client),
	}, nil
}

// contentKey returns the object key for a snapshot checksum.
func (v *S3Vault) contentKey(checksum string) string {
	return path.Join(v.prefix, "content", checksum)
}

// PutContent stores a snapshot identified by its checksum.
// The operation is idempotent: if an object already exists under the
// checksum key the reader is consumed and the upload is skipped.
func (v *S3Vault) PutContent(checksum string, r io.Reader, size int64) error {
	ctx := context.Background()
	key := v.contentKey(checksum)

	_, err := v.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		written, err := io.Copy(io.Discard, r)
		if err != nil {
			return fmt.Errorf("failed to read content: %w", err)
		}
		if written != size {
			return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
		}
		return nil
	}
	var notFound *types.NotFound
	if !errors.As(err, &notFound) {
		return fmt.Errorf("failed to check for existing content: %w", err)
	}

	_, err = v.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
		Body:   r,
	})
	if err != nil {
		return fmt.Errorf("failed to upload content: %w", err)
	}
	return nil
}

// GetContent retrieves a snapshot by checksum and writes it to w.
func (v *S3Vault) GetContent(checksum string, w io.Writer) error {
	ctx := context.Background()
	key := v.contentKey(checksum)

	out, err := v.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return fmt.Errorf("content not found: %s", checksum)
		}
		return fmt.Errorf("failed to get content: %w", err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}
	return nil
}

// ValidateSetup verifies that the configured bucket is accessible.
func (v *S3Vault) ValidateSetup() error {
	_, err := v.client.HeadBucket(context.Background(), &s3.HeadBucketInput{
		Bucket: aws.String(v.bucket),
	})
	if err != nil {
		return fmt.Errorf("s3 bucket not accessible: %w", err)
	}
	return nil
}

// Compile-time check that S3Vault implements rule.Vault interface
var _ rule.Vault = (*S3Vault)(nil)
