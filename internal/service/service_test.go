package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/fieldops/internal/database"
	"github.com/iliyamo/fieldops/internal/queue"
)

// fixedNow is 2025-03-10 10:30 UTC, a Monday after the default workday start.
var fixedNow = time.Date(2025, 3, 10, 10, 30, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []queue.Event
}

func (r *recorder) Publish(_ context.Context, ev queue.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) ofType(typ string) []queue.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []queue.Event
	for _, ev := range r.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	svc    *Service
	events *recorder
	clock  *time.Time
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, database.SQLite))

	now := fixedNow
	f := &fixture{events: &recorder{}, clock: &now}
	opts = append([]Option{
		WithClock(func() time.Time { return *f.clock }),
		WithPublisher(f.events),
	}, opts...)
	f.svc = New(db, opts...)
	return f
}

func (f *fixture) user(t *testing.T, email, role string) uint64 {
	t.Helper()
	id, err := f.svc.CreateUser(context.Background(), UserInput{
		Email:    email,
		FullName: email[:len(email)-len("@site.test")],
		Role:     role,
	}, 4)
	require.NoError(t, err)
	return id
}

func (f *fixture) project(t *testing.T, createdBy uint64, start, end string) uint64 {
	t.Helper()
	id, err := f.svc.CreateProject(context.Background(), ProjectInput{
		Name:      "Harbour Bridge Retrofit",
		StartDate: start,
		EndDate:   end,
		Budget:    decimal.RequireFromString("1250000.50"),
		CreatedBy: createdBy,
	})
	require.NoError(t, err)
	return id
}

func isValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func isNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func isForbidden(err error) bool {
	var e *AuthorizationError
	return errors.As(err, &e)
}

func isConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}
