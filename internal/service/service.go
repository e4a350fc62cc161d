// Package service holds the entity handlers: input validation, foreign key
// checks, transactions, side effects and the denormalized views returned
// to HTTP handlers.  Every exported method returns either a result or one
// of the error types in errors.go.
package service

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/iliyamo/fieldops/internal/database"
	"github.com/iliyamo/fieldops/internal/queue"
	"github.com/iliyamo/fieldops/internal/repository"
)

// ObjectChecker is the part of the object store the service needs to
// validate document references.
type ObjectChecker interface {
	Exists(ctx context.Context, ref string) (bool, error)
}

type Service struct {
	db          *sql.DB
	users       *repository.UserRepo
	projects    *repository.ProjectRepo
	contractors *repository.ContractorRepo
	comms       *repository.CommunicationRepo
	equipment   *repository.EquipmentRepo
	inventory   *repository.InventoryRepo
	purchases   *repository.PurchaseRepo
	attendance  *repository.AttendanceRepo
	quality     *repository.QualityRepo

	events       queue.Publisher
	objects      ObjectChecker
	now          func() time.Time
	workdayStart time.Duration // offset from UTC midnight
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithPublisher sets where domain events go.  The default drops them.
func WithPublisher(p queue.Publisher) Option { return func(s *Service) { s.events = p } }

// WithObjectStore makes document references checked against the store.
func WithObjectStore(o ObjectChecker) Option { return func(s *Service) { s.objects = o } }

// WithWorkdayStart sets the time of day after which a punch-in is Late.
func WithWorkdayStart(d time.Duration) Option { return func(s *Service) { s.workdayStart = d } }

func New(db *sql.DB, opts ...Option) *Service {
	s := &Service{
		db:           db,
		users:        repository.NewUserRepo(db),
		projects:     repository.NewProjectRepo(db),
		contractors:  repository.NewContractorRepo(db),
		comms:        repository.NewCommunicationRepo(db),
		equipment:    repository.NewEquipmentRepo(db),
		inventory:    repository.NewInventoryRepo(db),
		purchases:    repository.NewPurchaseRepo(db),
		attendance:   repository.NewAttendanceRepo(db),
		quality:      repository.NewQualityRepo(db),
		events:       queue.NopPublisher{},
		now:          time.Now,
		workdayStart: 9 * time.Hour,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) nowMillis() int64 { return s.now().UnixMilli() }

func (s *Service) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return database.WithTx(ctx, s.db, fn)
}

// publish sends ev after the write it describes has committed.  Failures
// are logged and otherwise ignored.
func (s *Service) publish(ctx context.Context, ev queue.Event) {
	ev.OccurredAt = s.now().UTC().Format(time.RFC3339)
	if err := s.events.Publish(ctx, ev); err != nil {
		log.Printf("events: publish %s for %d failed: %v", ev.Type, ev.EntityID, err)
	}
}

// userMustExist fails with NotFoundError when id does not resolve.
func (s *Service) userMustExist(ctx context.Context, users *repository.UserRepo, field string, id uint64) error {
	if id == 0 {
		return invalid("%s is required", field)
	}
	ok, err := users.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("user %d not found", id)
	}
	return nil
}

// optUserMustExist is userMustExist for optional references.
func (s *Service) optUserMustExist(ctx context.Context, field string, id *uint64) error {
	if id == nil {
		return nil
	}
	return s.userMustExist(ctx, s.users, field, *id)
}

func (s *Service) projectMustExist(ctx context.Context, projects *repository.ProjectRepo, id uint64) error {
	if id == 0 {
		return invalid("project_id is required")
	}
	ok, err := projects.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("project %d not found", id)
	}
	return nil
}

func (s *Service) optProjectMustExist(ctx context.Context, id *uint64) error {
	if id == nil {
		return nil
	}
	return s.projectMustExist(ctx, s.projects, *id)
}
