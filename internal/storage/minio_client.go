package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"

	"edusocial/internal/config"
)

// Storage keeps media that chat messages and posts link to.
type Storage interface {
	Upload(ctx context.Context, owner, fileName string, file io.Reader, size int64) (objectName, url string, err error)
	Delete(ctx context.Context, objectName string) error
	URL(ctx context.Context, objectName string) (string, error)
}

type MinIOClient struct {
	client *minio.Client
	cfg    config.MinIO
	now    func() time.Time
}

func NewMinIOClient(ctx context.Context, cfg config.MinIO) (*MinIOClient, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating minio client")
	}

	m := &MinIOClient{client: client, cfg: cfg, now: time.Now}
	if err := m.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MinIOClient) ensureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.cfg.BucketName)
	if err != nil {
		return errors.Wrapf(err, "checking bucket %s", m.cfg.BucketName)
	}
	if exists {
		return nil
	}
	err = m.client.MakeBucket(ctx, m.cfg.BucketName, minio.MakeBucketOptions{Region: m.cfg.Region})
	return errors.Wrapf(err, "creating bucket %s", m.cfg.BucketName)
}

// ObjectName is chat/<owner>/<yyyy>/<mm>/<uuid><ext>.
func ObjectName(owner, fileName string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("chat/%s/%d/%02d/%s%s", owner, now.Year(), int(now.Month()), uuid.New().String(), ext)
}

func ContentType(fileName string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(fileName))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func (m *MinIOClient) Upload(ctx context.Context, owner, fileName string, file io.Reader, size int64) (string, string, error) {
	now := m.now()
	objectName := ObjectName(owner, fileName, now)

	_, err := m.client.PutObject(ctx, m.cfg.BucketName, objectName, file, size,
		minio.PutObjectOptions{
			ContentType: ContentType(fileName),
			UserMetadata: map[string]string{
				"original-filename": filepath.Base(fileName),
				"owner":             owner,
				"uploaded-at":       now.Format(time.RFC3339),
			},
		})
	if err != nil {
		return "", "", errors.Wrapf(err, "uploading %s", fileName)
	}

	url, err := m.URL(ctx, objectName)
	if err != nil {
		return "", "", err
	}
	return objectName, url, nil
}

func (m *MinIOClient) Delete(ctx context.Context, objectName string) error {
	err := m.client.RemoveObject(ctx, m.cfg.BucketName, objectName, minio.RemoveObjectOptions{GovernanceBypass: true})
	return errors.Wrapf(err, "deleting %s", objectName)
}

// URL returns a presigned GET link valid for the configured expiry.
func (m *MinIOClient) URL(ctx context.Context, objectName string) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.cfg.BucketName, objectName, m.cfg.URLExpiry, nil)
	if err != nil {
		return "", errors.Wrapf(err, "presigning %s", objectName)
	}
	return u.String(), nil
}
