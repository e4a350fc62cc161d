package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/iliyamo/fieldops/internal/model"
	"github.com/iliyamo/fieldops/internal/repository"
)

type MarkAttendanceInput struct {
	UserID   uint64 `json:"user_id"`
	Date     string `json:"date"`
	Status   string `json:"status"`
	Location string `json:"location"`
	Notes    string `json:"notes"`
}

type AttendancePatch struct {
	Status   *string `json:"status"`
	Location *string `json:"location"`
	Notes    *string `json:"notes"`
	CheckIn  *int64  `json:"check_in"`
	CheckOut *int64  `json:"check_out"`
}

type AttendanceFilter struct {
	UserID uint64
	Status string
	From   string
	To     string
}

type AttendanceView struct {
	model.Attendance
	UserName string `json:"user_name"`
}

// AttendanceSummary counts one user's rows per status over a month.
type AttendanceSummary struct {
	UserID   uint64                         `json:"user_id"`
	Month    string                         `json:"month"`
	Total    int                            `json:"total"`
	ByStatus map[model.AttendanceStatus]int `json:"by_status"`
}

func (s *Service) today() model.Date { return model.DateOf(s.now()) }

// PunchIn opens today's row for userID.  A second punch-in on the same day
// is a ConflictError.  Check-ins after the workday start are Late.
func (s *Service) PunchIn(ctx context.Context, userID uint64, location string) (model.Attendance, error) {
	if err := s.userMustExist(ctx, s.users, "user_id", userID); err != nil {
		return model.Attendance{}, err
	}
	now := s.now().UTC()
	day := model.DateOf(now)
	_, err := s.attendance.GetByUserDate(ctx, userID, day)
	switch {
	case err == nil:
		return model.Attendance{}, conflict("already punched in on %s", day)
	case !errors.Is(err, repository.ErrNotFound):
		return model.Attendance{}, err
	}
	status := model.AttendancePresent
	if now.Sub(day.Time()) > s.workdayStart {
		status = model.AttendanceLate
	}
	a := model.Attendance{
		UserID:       userID,
		Date:         day,
		CheckIn:      ptr(now.UnixMilli()),
		Status:       status,
		Location:     strings.TrimSpace(location),
		CreationTime: now.UnixMilli(),
	}
	if err := s.attendance.Create(ctx, &a); err != nil {
		return model.Attendance{}, err
	}
	return a, nil
}

// PunchOut closes today's row.
func (s *Service) PunchOut(ctx context.Context, userID uint64) (model.Attendance, error) {
	day := s.today()
	a, err := s.attendance.GetByUserDate(ctx, userID, day)
	if errors.Is(err, repository.ErrNotFound) {
		return a, conflict("not punched in on %s", day)
	}
	if err != nil {
		return a, err
	}
	if a.CheckIn == nil {
		return a, conflict("attendance for %s is recorded as %s", day, a.Status)
	}
	if a.CheckOut != nil {
		return a, conflict("already punched out on %s", day)
	}
	a.CheckOut = ptr(s.nowMillis())
	if err := s.attendance.Update(ctx, &a); err != nil {
		return a, err
	}
	return a, nil
}

// MarkAttendance records a day manually, typically Absent or Leave.
func (s *Service) MarkAttendance(ctx context.Context, in MarkAttendanceInput) (uint64, error) {
	day, err := date("date", in.Date)
	if err != nil {
		return 0, err
	}
	st, err := enum("status", in.Status, model.ParseAttendanceStatus, model.AttendanceStatuses)
	if err != nil {
		return 0, err
	}
	if err := s.userMustExist(ctx, s.users, "user_id", in.UserID); err != nil {
		return 0, err
	}
	_, err = s.attendance.GetByUserDate(ctx, in.UserID, day)
	switch {
	case err == nil:
		return 0, conflict("attendance for user %d on %s already exists", in.UserID, day)
	case !errors.Is(err, repository.ErrNotFound):
		return 0, err
	}
	a := model.Attendance{
		UserID:       in.UserID,
		Date:         day,
		Status:       st,
		Location:     strings.TrimSpace(in.Location),
		Notes:        strings.TrimSpace(in.Notes),
		CreationTime: s.nowMillis(),
	}
	if err := s.attendance.Create(ctx, &a); err != nil {
		return 0, err
	}
	return a.ID, nil
}

func (s *Service) UpdateAttendance(ctx context.Context, id uint64, p AttendancePatch) (model.Attendance, error) {
	a, err := s.attendance.GetByID(ctx, id)
	if err != nil {
		return a, lift(err, "attendance", id)
	}
	if p.Status != nil {
		if a.Status, err = enum("status", *p.Status, model.ParseAttendanceStatus, model.AttendanceStatuses); err != nil {
			return a, err
		}
	}
	if p.CheckIn != nil {
		a.CheckIn = p.CheckIn
	}
	if p.CheckOut != nil {
		a.CheckOut = p.CheckOut
	}
	if a.CheckIn != nil && a.CheckOut != nil && *a.CheckOut < *a.CheckIn {
		return a, invalid("check_out must not be before check_in")
	}
	setTrim(&a.Location, p.Location)
	setTrim(&a.Notes, p.Notes)
	if err := s.attendance.Update(ctx, &a); err != nil {
		return a, err
	}
	return a, nil
}

func (s *Service) DeleteAttendance(ctx context.Context, id uint64) error {
	return lift(s.attendance.Delete(ctx, id), "attendance", id)
}

func (s *Service) attendanceFilter(f AttendanceFilter) (repository.AttendanceFilter, error) {
	rf := repository.AttendanceFilter{UserID: f.UserID}
	var err error
	if f.Status != "" {
		if rf.Status, err = enum("status", f.Status, model.ParseAttendanceStatus, model.AttendanceStatuses); err != nil {
			return rf, err
		}
	}
	if f.From != "" {
		if rf.From, err = date("from", f.From); err != nil {
			return rf, err
		}
	}
	if f.To != "" {
		if rf.To, err = date("to", f.To); err != nil {
			return rf, err
		}
	}
	return rf, nil
}

func (s *Service) ListAttendance(ctx context.Context, f AttendanceFilter) ([]AttendanceView, error) {
	rf, err := s.attendanceFilter(f)
	if err != nil {
		return nil, err
	}
	rows, err := s.attendance.List(ctx, rf)
	if err != nil {
		return nil, err
	}
	var r refs
	for _, a := range rows {
		r.user(a.UserID)
	}
	n, err := s.resolve(ctx, r)
	if err != nil {
		return nil, err
	}
	return lo.Map(rows, func(a model.Attendance, _ int) AttendanceView {
		return AttendanceView{Attendance: a, UserName: n.user(a.UserID)}
	}), nil
}

// GetTodayAttendance returns nil when the user has no row for today.
func (s *Service) GetTodayAttendance(ctx context.Context, userID uint64) (*model.Attendance, error) {
	a, err := s.attendance.GetByUserDate(ctx, userID, s.today())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAttendanceSummary tallies userID's rows for month (YYYY-MM).  An empty
// month means the current one.
func (s *Service) GetAttendanceSummary(ctx context.Context, userID uint64, month string) (AttendanceSummary, error) {
	var start time.Time
	if strings.TrimSpace(month) == "" {
		now := s.now().UTC()
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	} else {
		t, err := time.Parse("2006-01", strings.TrimSpace(month))
		if err != nil {
			return AttendanceSummary{}, invalid("invalid month %q (want YYYY-MM)", month)
		}
		start = t
	}
	if err := s.userMustExist(ctx, s.users, "user_id", userID); err != nil {
		return AttendanceSummary{}, err
	}
	counts, err := s.attendance.CountByStatus(ctx, repository.AttendanceFilter{
		UserID: userID,
		From:   model.DateOf(start),
		To:     model.DateOf(start.AddDate(0, 1, -1)),
	})
	if err != nil {
		return AttendanceSummary{}, err
	}
	sum := AttendanceSummary{UserID: userID, Month: start.Format("2006-01"), ByStatus: map[model.AttendanceStatus]int{}}
	for _, st := range model.AttendanceStatuses {
		sum.ByStatus[st] = counts[st]
		sum.Total += counts[st]
	}
	return sum, nil
}
