package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"FinGenius/internal/domain/models"
	"FinGenius/internal/domain/repository"
	applogger "FinGenius/pkg/logger"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const (
	latestObject = "latest"
	kindMetadata = "kind"
	gcsTimeout   = 2 * time.Minute
)

// GCSModelStore keeps every model version as its own object,
// <prefix>/<key>/v<version>.json, plus a small "latest" pointer object holding
// the current version number. A version object is finalized atomically on
// writer Close and created with a does-not-exist precondition, so two
// concurrent savers cannot overwrite each other's version.
type GCSModelStore struct {
	client *storage.Client
	bucket string
	prefix string
	l      *applogger.Logger
}

// NewGCSClient uses Application Default Credentials unless credentialsFile is set.
func NewGCSClient(ctx context.Context, credentialsFile string) (*storage.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	c, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return c, nil
}

func NewGCSModelStore(client *storage.Client, bucket, prefix string, l *applogger.Logger) *GCSModelStore {
	if l == nil {
		l = applogger.NewNop()
	}
	return &GCSModelStore{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/"), l: l}
}

func (s *GCSModelStore) Save(ctx context.Context, key, kind string, blob []byte) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, gcsTimeout)
	defer cancel()

	latest, err := s.latestVersion(ctx, key)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return 0, err
	}
	version := latest + 1

	obj := s.bkt().Object(versionObject(s.prefix, key, version)).If(storage.Conditions{DoesNotExist: true})
	w := obj.NewWriter(ctx)
	w.ContentType = "application/json"
	w.Metadata = map[string]string{kindMetadata: kind}
	if _, err := w.Write(blob); err != nil {
		_ = w.Close()
		return 0, fmt.Errorf("write model %s v%d: %w", key, version, err)
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("finalize model %s v%d: %w", key, version, err)
	}

	pw := s.bkt().Object(objectPath(s.prefix, key, latestObject)).NewWriter(ctx)
	pw.ContentType = "text/plain"
	if _, err := io.WriteString(pw, strconv.FormatInt(version, 10)); err != nil {
		_ = pw.Close()
		return 0, fmt.Errorf("write latest pointer for %s: %w", key, err)
	}
	if err := pw.Close(); err != nil {
		return 0, fmt.Errorf("finalize latest pointer for %s: %w", key, err)
	}

	s.l.Info("model saved to gcs",
		applogger.String("key", key),
		applogger.Int64("version", version),
		applogger.Int("bytes", len(blob)),
	)
	return version, nil
}

func (s *GCSModelStore) Load(ctx context.Context, key string) (*models.ModelRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, gcsTimeout)
	defer cancel()

	version, err := s.latestVersion(ctx, key)
	if err != nil {
		return nil, err
	}

	r, err := s.bkt().Object(versionObject(s.prefix, key, version)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("model %s v%d: %w", key, version, models.ErrCorruptModel)
		}
		return nil, fmt.Errorf("open model %s v%d: %w", key, version, err)
	}
	defer r.Close()

	blob, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read model %s v%d: %w", key, version, err)
	}

	rec := &models.ModelRecord{Key: key, Version: version, Blob: blob, CreatedAt: r.Attrs.LastModified}
	if attrs, err := s.bkt().Object(versionObject(s.prefix, key, version)).Attrs(ctx); err == nil {
		rec.Kind = attrs.Metadata[kindMetadata]
		rec.CreatedAt = attrs.Created
	}
	return rec, nil
}

func (s *GCSModelStore) latestVersion(ctx context.Context, key string) (int64, error) {
	r, err := s.bkt().Object(objectPath(s.prefix, key, latestObject)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return 0, fmt.Errorf("model %s: %w", key, models.ErrNotFound)
		}
		return 0, fmt.Errorf("open latest pointer for %s: %w", key, err)
	}
	defer r.Close()

	b, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("read latest pointer for %s: %w", key, err)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("latest pointer for %s is %q: %w", key, b, models.ErrCorruptModel)
	}
	return v, nil
}

func (s *GCSModelStore) bkt() *storage.BucketHandle { return s.client.Bucket(s.bucket) }

func (s *GCSModelStore) Close() error { return s.client.Close() }

func versionObject(prefix, key string, version int64) string {
	return objectPath(prefix, key, fmt.Sprintf("v%010d.json", version))
}

func objectPath(prefix, key, name string) string {
	return path.Join(prefix, key, name)
}

var _ repository.ModelStore = (*GCSModelStore)(nil)
