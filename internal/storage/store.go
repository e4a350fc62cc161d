// Package storage is the object store behind project documents.  Clients
// first ask for a short-lived upload handle, then upload bytes against it
// and get back a durable reference id that the owning entity keeps.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrHandleInvalid   = errors.New("upload handle invalid or expired")
	ErrTooLarge        = errors.New("file too large")
	ErrEmpty           = errors.New("file is empty")
	ErrTypeNotAllowed  = errors.New("file type not allowed")
	ErrObjectNotFound  = errors.New("object not found")
	errInvalidObjectID = errors.New("invalid reference id")
)

// DefaultAllowedTypes covers drawings, BOQs, legal documents and
// certificates as they arrive from site: PDFs, scans, office files, CAD
// exports and archives.
var DefaultAllowedTypes = []string{
	"application/pdf",
	"image/png", "image/jpeg", "image/webp", "image/tiff", "image/vnd.dwg", "image/vnd.dxf",
	"application/zip", "application/x-7z-compressed",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel", "application/msword",
	"text/plain", "text/csv",
}

// Handle authorises exactly one upload until ExpiresAt.
type Handle struct {
	Token     string    `json:"upload_handle"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Object is the metadata kept next to each stored file.
type Object struct {
	ReferenceID string `json:"reference_id"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	CreatedAt   int64  `json:"created_at"`
}

// DiskStore keeps each object as <dir>/<ref> with a <ref>.json sidecar.
// Outstanding handles live in memory only; a restart invalidates them.
type DiskStore struct {
	dir      string
	maxBytes int64
	ttl      time.Duration
	allowed  []string
	now      func() time.Time

	mu      sync.Mutex
	handles map[string]time.Time
}

type Option func(*DiskStore)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(s *DiskStore) { s.now = now } }

// WithAllowedTypes replaces DefaultAllowedTypes.
func WithAllowedTypes(types ...string) Option { return func(s *DiskStore) { s.allowed = types } }

// NewDiskStore creates dir if needed.
func NewDiskStore(dir string, maxBytes int64, ttl time.Duration, opts ...Option) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: mkdir %s: %w", dir, err)
	}
	s := &DiskStore{
		dir:      dir,
		maxBytes: maxBytes,
		ttl:      ttl,
		allowed:  DefaultAllowedTypes,
		now:      time.Now,
		handles:  map[string]time.Time{},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// GenerateUploadHandle issues a fresh single-use handle.
func (s *DiskStore) GenerateUploadHandle(ctx context.Context) (Handle, error) {
	now := s.now()
	h := Handle{Token: uuid.NewString(), ExpiresAt: now.Add(s.ttl).UTC()}

	s.mu.Lock()
	defer s.mu.Unlock()
	for tok, exp := range s.handles {
		if now.After(exp) {
			delete(s.handles, tok)
		}
	}
	s.handles[h.Token] = h.ExpiresAt
	return h, nil
}

// consume removes handle and reports whether it was live.
func (s *DiskStore) consume(handle string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.handles[handle]
	if !ok {
		return false
	}
	delete(s.handles, handle)
	return !s.now().After(exp)
}

// Upload stores data and returns its reference id.  The handle is spent
// even when the upload is rejected.  An empty contentType is sniffed
// from the bytes.
func (s *DiskStore) Upload(ctx context.Context, handle string, data []byte, contentType string) (string, error) {
	if !s.consume(handle) {
		return "", ErrHandleInvalid
	}
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return "", ErrTooLarge
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(data).String()
	}
	if len(s.allowed) > 0 && !mimetype.EqualsAny(contentType, s.allowed...) {
		return "", ErrTypeNotAllowed
	}

	ref := uuid.NewString()
	if err := os.WriteFile(s.path(ref), data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write object: %w", err)
	}
	meta, err := json.Marshal(Object{
		ReferenceID: ref,
		ContentType: contentType,
		Size:        int64(len(data)),
		CreatedAt:   s.now().UnixMilli(),
	})
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(s.path(ref)+".json", meta, 0o644); err != nil {
		_ = os.Remove(s.path(ref))
		return "", fmt.Errorf("storage: write metadata: %w", err)
	}
	return ref, nil
}

// Stat returns the metadata of ref.
func (s *DiskStore) Stat(ctx context.Context, ref string) (Object, error) {
	if id, err := uuid.Parse(ref); err != nil || id.String() != ref {
		return Object{}, errInvalidObjectID
	}
	b, err := os.ReadFile(s.path(ref) + ".json")
	if errors.Is(err, os.ErrNotExist) {
		return Object{}, ErrObjectNotFound
	}
	if err != nil {
		return Object{}, err
	}
	var o Object
	if err := json.Unmarshal(b, &o); err != nil {
		return Object{}, fmt.Errorf("storage: corrupt metadata for %s: %w", ref, err)
	}
	return o, nil
}

// Exists reports whether ref names a stored object.
func (s *DiskStore) Exists(ctx context.Context, ref string) (bool, error) {
	_, err := s.Stat(ctx, ref)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrObjectNotFound), errors.Is(err, errInvalidObjectID):
		return false, nil
	}
	return false, err
}

// Open returns the bytes and metadata of ref.
func (s *DiskStore) Open(ctx context.Context, ref string) ([]byte, Object, error) {
	o, err := s.Stat(ctx, ref)
	if err != nil {
		if errors.Is(err, errInvalidObjectID) {
			return nil, Object{}, ErrObjectNotFound
		}
		return nil, Object{}, err
	}
	data, err := os.ReadFile(s.path(ref))
	if errors.Is(err, os.ErrNotExist) {
		return nil, Object{}, ErrObjectNotFound
	}
	if err != nil {
		return nil, Object{}, err
	}
	return data, o, nil
}

// path is only called with canonical uuids, so ref cannot escape dir.
func (s *DiskStore) path(ref string) string { return filepath.Join(s.dir, ref) }
