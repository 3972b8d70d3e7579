package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/Kyz7/juna/internal/config"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
)

var ErrNotConfigured = errors.New("object storage is not configured")

var allowedDocumentTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
}

// Upload is a presigned PUT the client uses to send a file directly to the
// bucket. FileURL is what gets stored once the upload is done.
type Upload struct {
	UploadURL string    `json:"uploadUrl"`
	FileURL   string    `json:"fileUrl"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Presigner interface {
	PresignDocumentUpload(ctx context.Context, ownerID uuid.UUID, contentType string) (*Upload, error)
}

type S3 struct {
	client *s3.S3
	bucket string
	expiry time.Duration
}

func NewS3(cfg config.S3Config) (*S3, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, ErrNotConfigured
	}
	return NewS3WithCredentials(cfg, nil)
}

// NewS3WithCredentials builds the client with explicit credentials. A nil
// creds uses the default provider chain.
func NewS3WithCredentials(cfg config.S3Config, creds *credentials.Credentials) (*S3, error) {
	awsCfg := &aws.Config{
		Region:      aws.String(cfg.Region),
		Credentials: creds,
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}

	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &S3{client: s3.New(sess), bucket: cfg.Bucket, expiry: expiry}, nil
}

func IsAllowedDocumentType(contentType string) bool {
	_, ok := allowedDocumentTypes[strings.ToLower(contentType)]
	return ok
}

func (s *S3) PresignDocumentUpload(ctx context.Context, ownerID uuid.UUID, contentType string) (*Upload, error) {
	contentType = strings.ToLower(contentType)
	ext, ok := allowedDocumentTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("unsupported content type %q", contentType)
	}

	key := path.Join("providers", ownerID.String(), "documents", uuid.NewString()+ext)
	req, _ := s.client.PutObjectRequest(&s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})
	req.SetContext(ctx)

	url, err := req.Presign(s.expiry)
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}

	fileURL := url
	if i := strings.Index(fileURL, "?"); i >= 0 {
		fileURL = fileURL[:i]
	}

	return &Upload{
		UploadURL: url,
		FileURL:   fileURL,
		Key:       key,
		ExpiresAt: time.Now().Add(s.expiry),
	}, nil
}
