package s3

import (
	"bytes"
	"fmt"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"golang.org/x/net/context"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
)

type ItfS3 interface {
	UploadAudio(ctx context.Context, key string, data []byte) (string, error)
}

type s3Client struct {
	uploader   *s3manager.Uploader
	bucketName string
}

func New() (ItfS3, error) {
	bucket := os.Getenv("AWS_BUCKET_NAME")
	if bucket == "" {
		return nil, fmt.Errorf("AWS_BUCKET_NAME not set")
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(os.Getenv("AWS_REGION")),
		Credentials: credentials.NewStaticCredentials(
			os.Getenv("AWS_ACCESS_KEY_ID"),
			os.Getenv("AWS_SECRET_ACCESS_KEY"),
			"",
		),
	})
	if err != nil {
		return nil, err
	}

	return &s3Client{
		uploader:   s3manager.NewUploader(sess),
		bucketName: bucket,
	}, nil
}

func (s *s3Client) UploadAudio(ctx context.Context, key string, data []byte) (string, error) {
	out, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("audio/mpeg"),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	return out.Location, nil
}
