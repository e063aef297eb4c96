// Package blobstore stores binary payloads (uploaded files, avatars) in
// an S3-compatible bucket. Retrieval URLs are derived, not fetched: the
// URL of an object is a pure function of endpoint, bucket and object id.
package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Store is the blob-store surface the services consume.
type Store interface {
	Upload(ctx context.Context, id string, contentType string, data []byte) error
	Delete(ctx context.Context, id string) error
	ObjectURL(id string) string
}

// Config carries the S3 connection settings.
type Config struct {
	RootUser     string
	RootPassword string
	Bucket       string
	Region       string
	BaseEndpoint string
}

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
		return c.DeleteObject(ctx, in, optFns...)
	}
)

// S3Store implements Store over aws-sdk-go-v2.
type S3Store struct {
	config Config
}

// NewS3Store constructs a store for the given bucket settings.
func NewS3Store(config Config) *S3Store {
	return &S3Store{config: config}
}

func (s *S3Store) getClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(s.config.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.RootUser,
			s.config.RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.BaseEndpoint)
		o.UsePathStyle = true
	})

	return client, nil
}

// Upload PUTs data under id. Ids are never reused; replacing an avatar
// uploads a fresh object and leaves the old one in place.
func (s *S3Store) Upload(ctx context.Context, id string, contentType string, data []byte) error {
	client, err := s.getClient(ctx)
	if err != nil {
		return err
	}

	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &s.config.Bucket,
		Key:         &id,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("s3 put error: %w", err)
	}
	return nil
}

// Delete removes the object with the given id.
func (s *S3Store) Delete(ctx context.Context, id string) error {
	client, err := s.getClient(ctx)
	if err != nil {
		return err
	}

	_, err = deleteObject(client, ctx, &s3.DeleteObjectInput{
		Bucket: &s.config.Bucket,
		Key:    &id,
	})
	if err != nil {
		return fmt.Errorf("s3 delete error: %w", err)
	}
	return nil
}

// ObjectURL derives the retrieval URL for an object id without any
// network call.
func (s *S3Store) ObjectURL(id string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.config.BaseEndpoint, "/"), s.config.Bucket, id)
}
