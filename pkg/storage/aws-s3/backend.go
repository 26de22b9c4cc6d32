package awss3

import (
	"errors"
	"io"
	"net/url"
	p "path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/terrycain/offline-cache-gateway/pkg/e"
)

type Backend struct {
	BucketURL string
	Session   *session.Session
	Client    *s3.S3

	bucket   string
	prefix   string
	region   string
	endpoint string
}

func New(connectionString string) (*Backend, error) {
	cfg := &aws.Config{Region: aws.String("us-east-1")}

	// s3://bucket/prefix?endpoint=http://localstack:4566 for S3 compatible stores
	endpoint := ""
	if parsedURL, err := url.Parse(connectionString); err == nil {
		endpoint = parsedURL.Query().Get("endpoint")
	}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
		cfg.DisableSSL = aws.Bool(strings.HasPrefix(endpoint, "http://"))
	}

	sess, err := session.NewSession(cfg)
	if err != nil {
		return &Backend{}, err
	}
	// Enable uuid rand pool for better performance
	uuid.EnableRandPool()

	backend := Backend{
		BucketURL: connectionString,
		Session:   sess,
		region:    "us-east-1", // Region is calculated in Setup()
		endpoint:  endpoint,
	}
	return &backend, nil
}

func (b *Backend) Setup() error {
	parsedURL, err := url.Parse(b.BucketURL)
	if err != nil {
		return err
	}

	if parsedURL.Scheme != "s3" {
		//goland:noinspection GoErrorStringFormat
		return errors.New("S3 url should be in the format of s3://bucket/prefix")
	}

	b.bucket = parsedURL.Host
	b.prefix = strings.TrimPrefix(parsedURL.Path, "/")

	b.Client = s3.New(b.Session, &aws.Config{Region: aws.String(b.region)})
	resp, err := b.Client.GetBucketLocation(&s3.GetBucketLocationInput{Bucket: aws.String(b.bucket)})
	if err != nil {
		return err
	}

	if resp.LocationConstraint != nil && *resp.LocationConstraint != "" {
		b.region = *resp.LocationConstraint
		b.Session.Config.Region = resp.LocationConstraint
		b.Client = s3.New(b.Session, &aws.Config{Region: resp.LocationConstraint})
	}

	return nil
}

func (b *Backend) Type() string {
	return "s3"
}

func (b *Backend) key(namespace, path string) string {
	return p.Join(b.prefix, namespace, path)
}

func (b *Backend) Write(namespace string, r io.Reader) (string, int64, error) {
	blobFile := uuid.New().String()
	filePath := b.key(namespace, blobFile)

	uploader := s3manager.NewUploader(b.Session)
	_, err := uploader.Upload(&s3manager.UploadInput{
		Bucket: aws.String(b.bucket),
		Body:   r,
		Key:    aws.String(filePath),
	})
	if err != nil {
		return "", 0, pkgerrors.Wrap(err, "s3 upload")
	}

	headResponse, err := b.Client.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(filePath),
	})
	if err != nil {
		return "", 0, pkgerrors.Wrap(err, "s3 head")
	}

	return blobFile, aws.Int64Value(headResponse.ContentLength), nil
}

func (b *Backend) Read(namespace, path string) (io.ReadCloser, error) {
	resp, err := b.Client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(namespace, path)),
	})
	if err != nil {
		var awsErr awserr.Error
		if errors.As(err, &awsErr) && awsErr.Code() == s3.ErrCodeNoSuchKey {
			return nil, e.ErrNotFound
		}
		return nil, pkgerrors.Wrap(err, "s3 get")
	}

	return resp.Body, nil
}

func (b *Backend) Delete(namespace, path string) error {
	_, err := b.Client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(namespace, path)),
	})

	return err
}
