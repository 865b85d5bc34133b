package repository

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/viralsplit/viralsplit-backend/internal/models"
	"github.com/viralsplit/viralsplit-backend/internal/transform"
)

var videoFilePattern = regexp.MustCompile(`.+\.(mp4|mkv|avi|mov|wmv|flv|webm|m4v|mpeg|mpg|3gp|ogv|vob|ts|mxf)$`)

type awsRepository struct {
	client        *s3.Client
	preSignClient *s3.PresignClient
	inputBucket   string
	cdnBase       string
}

func NewAwsRepository(awsClient *s3.Client, preSignClient *s3.PresignClient, inputBucket, cdnBase string) transform.AWSRepository {
	return &awsRepository{
		client:        awsClient,
		preSignClient: preSignClient,
		inputBucket:   inputBucket,
		cdnBase:       cdnBase,
	}
}

func (a *awsRepository) GetPresignedURL(ctx context.Context, input *models.UploadURLInput, key string) (string, error) {
	if !videoFilePattern.MatchString(input.FileName) {
		return "", fmt.Errorf("invalid file format: %s", input.FileName)
	}
	putObjectReq, err := a.preSignClient.PresignPutObject(
		ctx,
		&s3.PutObjectInput{
			Bucket:        &a.inputBucket,
			Key:           &key,
			ContentLength: &input.FileSize,
			ContentType:   &input.MimeType,
		},
		s3.WithPresignExpires(60*time.Minute),
	)
	if err != nil {
		return "", fmt.Errorf("failed to presign put object: %w", err)
	}
	return putObjectReq.URL, nil
}

func (a *awsRepository) PutArtifact(ctx context.Context, bucket, key string, body io.Reader) (string, error) {
	_, err := a.client.PutObject(
		ctx,
		&s3.PutObjectInput{
			Bucket: &bucket,
			Key:    &key,
			Body:   body,
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to upload artifact: %w", err)
	}
	return fmt.Sprintf("%s/%s", a.cdnBase, key), nil
}

func (a *awsRepository) GetArtifact(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	res, err := a.client.GetObject(
		ctx,
		&s3.GetObjectInput{
			Bucket: &bucket,
			Key:    &key,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to download artifact: %w", err)
	}
	return res.Body, nil
}

func (a *awsRepository) RemoveArtifact(ctx context.Context, bucket, key string) error {
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("failed to remove artifact: %w", err)
	}
	return nil
}
