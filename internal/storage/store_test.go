package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pdf = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n")

func newStore(t *testing.T, opts ...Option) *DiskStore {
	t.Helper()
	s, err := NewDiskStore(t.TempDir(), 1024, time.Minute, opts...)
	require.NoError(t, err)
	return s
}

func TestUploadRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	h, err := s.GenerateUploadHandle(ctx)
	require.NoError(t, err)
	ref, err := s.Upload(ctx, h.Token, pdf, "")
	require.NoError(t, err)

	ok, err := s.Exists(ctx, ref)
	require.NoError(t, err)
	assert.True(t, ok)

	data, obj, err := s.Open(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, pdf, data)
	assert.Equal(t, "application/pdf", obj.ContentType)
	assert.Equal(t, int64(len(pdf)), obj.Size)
	assert.Equal(t, ref, obj.ReferenceID)
}

func TestHandleIsSingleUse(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	h, err := s.GenerateUploadHandle(ctx)
	require.NoError(t, err)
	_, err = s.Upload(ctx, h.Token, pdf, "application/pdf")
	require.NoError(t, err)

	_, err = s.Upload(ctx, h.Token, pdf, "application/pdf")
	assert.ErrorIs(t, err, ErrHandleInvalid)

	_, err = s.Upload(ctx, "never-issued", pdf, "application/pdf")
	assert.ErrorIs(t, err, ErrHandleInvalid)
}

func TestRejectedUploadSpendsHandle(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	h, err := s.GenerateUploadHandle(ctx)
	require.NoError(t, err)
	_, err = s.Upload(ctx, h.Token, []byte("\x7fELF\x02\x01\x01\x00\x00\x00\x00\x00\x00\x00\x00\x00"), "")
	assert.ErrorIs(t, err, ErrTypeNotAllowed)

	_, err = s.Upload(ctx, h.Token, pdf, "")
	assert.ErrorIs(t, err, ErrHandleInvalid)
}

func TestUploadLimits(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	h, _ := s.GenerateUploadHandle(ctx)
	_, err := s.Upload(ctx, h.Token, nil, "")
	assert.ErrorIs(t, err, ErrEmpty)

	h, _ = s.GenerateUploadHandle(ctx)
	_, err = s.Upload(ctx, h.Token, make([]byte, 2048), "text/plain")
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestHandleExpires(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	s := newStore(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	h, err := s.GenerateUploadHandle(ctx)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Minute), h.ExpiresAt)

	now = now.Add(2 * time.Minute)
	_, err = s.Upload(ctx, h.Token, pdf, "")
	assert.ErrorIs(t, err, ErrHandleInvalid)
}

func TestAllowedTypesOverride(t *testing.T) {
	s := newStore(t, WithAllowedTypes("text/plain"))
	ctx := context.Background()

	h, _ := s.GenerateUploadHandle(ctx)
	_, err := s.Upload(ctx, h.Token, pdf, "")
	assert.ErrorIs(t, err, ErrTypeNotAllowed)

	h, _ = s.GenerateUploadHandle(ctx)
	_, err = s.Upload(ctx, h.Token, []byte("site diary"), "")
	assert.NoError(t, err)
}

func TestUnknownReferences(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	ok, err := s.Exists(ctx, "../../etc/passwd")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Exists(ctx, "6f1c2a3e-0000-4000-8000-000000000000")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = s.Open(ctx, "nope")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}
