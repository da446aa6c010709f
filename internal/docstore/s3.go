package docstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/rs/zerolog"
)

// S3Store keeps documents under a bucket prefix. Region and endpoint come
// from AWS_DEFAULT_REGION and S3_ENDPOINT, credentials from the environment.
type S3Store struct {
	bucket string
	prefix string

	region   string
	endpoint string
}

func NewS3Store(bucket, prefix string) *S3Store {
	region := os.Getenv("AWS_DEFAULT_REGION")
	if region == "" {
		region = "us-east-1"
	}
	return &S3Store{bucket: bucket, prefix: prefix, region: region, endpoint: os.Getenv("S3_ENDPOINT")}
}

func (s *S3Store) key(name string) string {
	return path.Join(s.prefix, name)
}

func (s *S3Store) Location(name string) string {
	return "s3://" + s.bucket + "/" + s.key(name)
}

func (s *S3Store) session() (*session.Session, error) {
	conf := &aws.Config{
		Region:      aws.String(s.region),
		Credentials: credentials.NewEnvCredentials(),
	}
	if s.endpoint != "" {
		conf.Endpoint = aws.String(s.endpoint)
		conf.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(conf)
	if err != nil {
		return nil, fmt.Errorf("error making new session: %w", err)
	}
	return sess, nil
}

// Write uploads in one request; S3 objects only become visible when complete.
func (s *S3Store) Write(ctx context.Context, name string, data []byte) error {
	logger := zerolog.Ctx(ctx)
	sess, err := s.session()
	if err != nil {
		return err
	}

	st := time.Now()
	_, err = s3manager.NewUploader(sess).UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(name)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("error uploading to s3: %w", err)
	}
	d := time.Since(st)
	logger.Debug().Str("location", s.Location(name)).Int64("durationNS", d.Nanoseconds()).Str("durationHuman", d.String()).Msg("uploaded document to s3")
	return nil
}

func (s *S3Store) Read(ctx context.Context, name string) ([]byte, error) {
	logger := zerolog.Ctx(ctx)
	sess, err := s.session()
	if err != nil {
		return nil, err
	}

	buf := &aws.WriteAtBuffer{}
	st := time.Now()
	_, err = s3manager.NewDownloader(sess).DownloadWithContext(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	var aerr awserr.Error
	if errors.As(err, &aerr) && (aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound") {
		return nil, fmt.Errorf("%s: %w", s.Location(name), ErrDocumentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error downloading from s3: %w", err)
	}
	d := time.Since(st)
	logger.Debug().Str("location", s.Location(name)).Int64("durationNS", d.Nanoseconds()).Str("durationHuman", d.String()).Msg("downloaded document from s3")
	return buf.Bytes(), nil
}
