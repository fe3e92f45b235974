package services

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/amirphl/vetverify/config"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/crypto/blake2b"
)

// UploadInput describes one file handed to the document store
type UploadInput struct {
	FileName    string
	ContentType string
	Size        int64 // -1 when unknown
	Body        io.Reader
}

// UploadProgress is reported while bytes are sent to the store
type UploadProgress struct {
	Loaded  int64
	Total   int64
	Percent float64
}

// ProgressFunc receives upload progress. It is called from the uploading goroutine.
type ProgressFunc func(UploadProgress)

// UploadResult is what the store knows about a stored document
type UploadResult struct {
	URL         string
	ObjectKey   string
	Size        int64
	Checksum    string
	ContentType string
}

// DocumentStore keeps verification documents
type DocumentStore interface {
	Upload(ctx context.Context, accountUUID uuid.UUID, in UploadInput, onProgress ProgressFunc) (*UploadResult, error)
	SignedURL(ctx context.Context, documentURL string) (string, error)
	Owns(accountUUID uuid.UUID, documentURL string) bool
}

// MinioDocumentStore stores documents in a MinIO (S3 compatible) bucket
type MinioDocumentStore struct {
	client *minio.Client
	bucket string
	config config.StorageConfig
}

// NewMinioDocumentStore creates the MinIO client for cfg
func NewMinioDocumentStore(cfg config.StorageConfig) (*MinioDocumentStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioDocumentStore{
		client: client,
		bucket: cfg.Bucket,
		config: cfg,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *MinioDocumentStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// Upload streams the body to <accountUUID>/<unix-nanos><ext> and reports progress
func (s *MinioDocumentStore) Upload(ctx context.Context, accountUUID uuid.UUID, in UploadInput, onProgress ProgressFunc) (*UploadResult, error) {
	if s.config.UploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.UploadTimeout)
		defer cancel()
	}

	key := ObjectKey(accountUUID, in.FileName, time.Now())
	hasher, _ := blake2b.New256(nil)
	body := io.TeeReader(in.Body, hasher)

	tracker := newProgressTracker(in.Size, onProgress)
	info, err := s.client.PutObject(ctx, s.bucket, key, body, in.Size, minio.PutObjectOptions{
		ContentType: in.ContentType,
		Progress:    tracker,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload document: %w", err)
	}
	tracker.done(info.Size)

	return &UploadResult{
		URL:         s.PublicURL(key),
		ObjectKey:   key,
		Size:        info.Size,
		Checksum:    hex.EncodeToString(hasher.Sum(nil)),
		ContentType: in.ContentType,
	}, nil
}

// PublicURL returns the stable URL of an object, used as the document reference
func (s *MinioDocumentStore) PublicURL(objectKey string) string {
	if base := strings.TrimRight(s.config.PublicBaseURL, "/"); base != "" {
		return fmt.Sprintf("%s/%s/%s", base, s.bucket, objectKey)
	}
	protocol := "http"
	if s.config.UseSSL {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", protocol, s.config.Endpoint, s.bucket, objectKey)
}

// SignedURL presigns a short lived download link for a document stored by this store
func (s *MinioDocumentStore) SignedURL(ctx context.Context, documentURL string) (string, error) {
	key, err := s.objectKeyFromURL(documentURL)
	if err != nil {
		return "", err
	}
	expiry := s.config.PresignExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return u.String(), nil
}

// Owns reports whether documentURL points at an object stored under the account's key prefix
func (s *MinioDocumentStore) Owns(accountUUID uuid.UUID, documentURL string) bool {
	key, err := s.objectKeyFromURL(documentURL)
	if err != nil {
		return false
	}
	return KeyOwnedBy(accountUUID, key)
}

func (s *MinioDocumentStore) objectKeyFromURL(documentURL string) (string, error) {
	u, err := url.Parse(documentURL)
	if err != nil {
		return "", fmt.Errorf("invalid document url: %w", err)
	}
	prefix := "/" + s.bucket + "/"
	idx := strings.Index(u.Path, prefix)
	if idx < 0 {
		return "", fmt.Errorf("document url %q is not in bucket %s", documentURL, s.bucket)
	}
	return u.Path[idx+len(prefix):], nil
}

// KeyOwnedBy reports whether key was built by ObjectKey for accountUUID
func KeyOwnedBy(accountUUID uuid.UUID, key string) bool {
	rest, ok := strings.CutPrefix(key, accountUUID.String()+"/")
	return ok && rest != "" && !strings.Contains(rest, "/") && path.Clean(key) == key
}

// ObjectKey builds the storage key of an upload
func ObjectKey(accountUUID uuid.UUID, fileName string, at time.Time) string {
	ext := strings.ToLower(path.Ext(fileName))
	return fmt.Sprintf("%s/%d%s", accountUUID, at.UnixNano(), ext)
}

// progressTracker is handed to minio as PutObjectOptions.Progress.
// minio reads from it once per chunk with a buffer sized to the chunk.
type progressTracker struct {
	mu       sync.Mutex
	total    int64
	loaded   int64
	callback ProgressFunc
}

func newProgressTracker(total int64, callback ProgressFunc) *progressTracker {
	return &progressTracker{total: total, callback: callback}
}

func (p *progressTracker) Read(b []byte) (int, error) {
	p.advance(int64(len(b)))
	return len(b), nil
}

func (p *progressTracker) advance(n int64) {
	p.mu.Lock()
	p.loaded += n
	if p.total > 0 && p.loaded > p.total {
		p.loaded = p.total
	}
	ev := p.snapshot()
	p.mu.Unlock()
	if p.callback != nil {
		p.callback(ev)
	}
}

// done emits the final 100% event once the store confirmed the object
func (p *progressTracker) done(size int64) {
	p.mu.Lock()
	if p.total <= 0 {
		p.total = size
	}
	p.loaded = p.total
	ev := p.snapshot()
	p.mu.Unlock()
	if p.callback != nil {
		p.callback(ev)
	}
}

func (p *progressTracker) snapshot() UploadProgress {
	ev := UploadProgress{Loaded: p.loaded, Total: p.total}
	if p.total > 0 {
		ev.Percent = float64(p.loaded) * 100 / float64(p.total)
	}
	return ev
}
