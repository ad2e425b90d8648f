package s3downl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ParseUrl extracts bucket and key from s3://bucket/key or
// https://bucket.s3.region.amazonaws.com/key.
func ParseUrl(s3Url string) (string, string, error) {
	u, err := url.Parse(s3Url)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse s3 url %s: %w", s3Url, err)
	}

	key := strings.TrimPrefix(u.Path, "/")
	switch u.Scheme {
	case "s3":
		if u.Host == "" || key == "" {
			return "", "", fmt.Errorf("invalid s3 url: %s", s3Url)
		}
		return u.Host, key, nil
	case "https":
		hostParts := strings.Split(u.Host, ".")
		if len(hostParts) < 3 || hostParts[1] != "s3" || key == "" {
			return "", "", fmt.Errorf("invalid s3 url host format: %s", u.Host)
		}
		return hostParts[0], key, nil
	default:
		return "", "", fmt.Errorf("invalid s3 url scheme: %s", u.Scheme)
	}
}

// NewDownloadFunc returns a function that copies S3 objects to local files.
func NewDownloadFunc(ctx context.Context, region string, log *slog.Logger) (func(ctx context.Context, s3Url string, path string) error, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	s3Client := s3.NewFromConfig(cfg)

	return func(ctx context.Context, s3Url string, path string) error {
		bucket, key, err := ParseUrl(s3Url)
		if err != nil {
			return err
		}

		out, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create file %s: %w", path, err)
		}
		defer out.Close()

		log.Info("downloading dataset from s3", "bucket", bucket, "key", key)
		obj, err := s3Client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("failed to download file %s from s3: %w (bucket: %s, key: %s)", s3Url, err, bucket, key)
		}
		defer obj.Body.Close()

		if _, err := io.Copy(out, obj.Body); err != nil {
			return fmt.Errorf("failed to write file %s: %w", path, err)
		}
		return out.Sync()
	}, nil
}
