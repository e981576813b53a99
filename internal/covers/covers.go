// Package covers issues presigned S3 uploads for trip cover images. The
// client PUTs the image straight to the bucket and then stores the public
// URL on the trip through a normal trip update.
package covers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/cychmps426211/travelplan/internal/domain"
)

// uploadTTL is how long a presigned PUT stays valid.
const uploadTTL = 15 * time.Minute

// Config holds the object storage settings. Endpoint is set for
// S3-compatible stores such as MinIO and switches to path-style URLs.
type Config struct {
	Bucket        string
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
}

var extensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// Upload is a presigned cover upload.
type Upload struct {
	Key       string    `json:"key"`
	UploadURL string    `json:"uploadUrl"`
	PublicURL string    `json:"publicUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type presigner interface {
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Uploader presigns cover uploads into one bucket.
type Uploader struct {
	bucket     string
	publicBase string
	presign    presigner
	now        func() time.Time
}

// NewUploader builds an Uploader from static credentials.
func NewUploader(ctx context.Context, cfg Config) (*Uploader, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("covers.NewUploader: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &Uploader{
		bucket:     cfg.Bucket,
		publicBase: publicBase(cfg),
		presign:    s3.NewPresignClient(client),
		now:        time.Now,
	}, nil
}

// publicBase is where uploaded objects can be read from.
func publicBase(cfg Config) string {
	switch {
	case cfg.PublicBaseURL != "":
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	case cfg.Endpoint != "":
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
}

// PresignCover returns a presigned PUT for a new cover image of tripID.
// Only JPEG, PNG and WebP are accepted.
func (u *Uploader) PresignCover(ctx context.Context, tripID, contentType string) (Upload, error) {
	ext, ok := extensions[contentType]
	if !ok {
		return Upload{}, fmt.Errorf("covers.PresignCover: %w: unsupported content type %q", domain.ErrValidation, contentType)
	}

	key := fmt.Sprintf("trips/%s/cover/%s.%s", tripID, uuid.NewString(), ext)
	req, err := u.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(uploadTTL))
	if err != nil {
		return Upload{}, fmt.Errorf("covers.PresignCover: %w", err)
	}

	return Upload{
		Key:       key,
		UploadURL: req.URL,
		PublicURL: u.publicBase + "/" + key,
		ExpiresAt: u.now().Add(uploadTTL),
	}, nil
}
