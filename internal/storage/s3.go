package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Client archives original uploads to S3-compatible object storage.
// The database keeps only the normalized image, so the archive is the one
// place the untouched original survives.
type S3Client struct {
	client *s3.Client
	bucket string
}

// NewS3Client creates a client for an S3-compatible endpoint
func NewS3Client(endpoint, region, bucket, accessKeyID, secretAccessKey string) (*S3Client, error) {
	customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if service == s3.ServiceID {
			return aws.Endpoint{
				URL:           endpoint,
				SigningRegion: region,
			}, nil
		}
		return aws.Endpoint{}, fmt.Errorf("unknown endpoint requested")
	})

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithEndpointResolverWithOptions(customResolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID, secretAccessKey, "",
		)),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	return &S3Client{
		client: client,
		bucket: bucket,
	}, nil
}

func scanPrefix(userID, scanID string) string {
	return fmt.Sprintf("users/%s/scans/%s/", userID, scanID)
}

// ArchiveScan stores the original uploaded file for a scan
func (s *S3Client) ArchiveScan(ctx context.Context, userID, scanID, fileName, contentType string, reader io.Reader) (string, error) {
	key := scanPrefix(userID, scanID) + fileName

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        reader,
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive scan: %w", err)
	}

	return key, nil
}

// DeleteScanArchive removes every archived object for a scan
func (s *S3Client) DeleteScanArchive(ctx context.Context, userID, scanID string) error {
	prefix := scanPrefix(userID, scanID)

	listResult, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return fmt.Errorf("failed to list objects for deletion: %w", err)
	}

	if len(listResult.Contents) == 0 {
		return nil
	}

	var objectsToDelete []types.ObjectIdentifier
	for _, obj := range listResult.Contents {
		objectsToDelete = append(objectsToDelete, types.ObjectIdentifier{
			Key: obj.Key,
		})
	}

	_, err = s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &types.Delete{
			Objects: objectsToDelete,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete objects: %w", err)
	}

	return nil
}
