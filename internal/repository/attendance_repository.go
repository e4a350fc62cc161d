package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/fieldops/internal/model"
)

// AttendanceFilter narrows List.  From and To are inclusive dates.
type AttendanceFilter struct {
	UserID uint64
	Status model.AttendanceStatus
	From   model.Date
	To     model.Date
}

type AttendanceRepo struct{ db DBTX }

func NewAttendanceRepo(db DBTX) *AttendanceRepo { return &AttendanceRepo{db: db} }

func (r *AttendanceRepo) WithTx(tx *sql.Tx) *AttendanceRepo { return &AttendanceRepo{db: tx} }

const attendanceCols = "id, user_id, date, check_in, check_out, status, location, notes, creation_time"

func scanAttendance(s scanner) (model.Attendance, error) {
	var a model.Attendance
	err := s.Scan(&a.ID, &a.UserID, &a.Date, &a.CheckIn, &a.CheckOut, &a.Status, &a.Location, &a.Notes, &a.CreationTime)
	return a, err
}

func (r *AttendanceRepo) Create(ctx context.Context, a *model.Attendance) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO attendance (user_id, date, check_in, check_out, status, location, notes, creation_time)
		 VALUES (?,?,?,?,?,?,?,?)`,
		a.UserID, a.Date, a.CheckIn, a.CheckOut, a.Status, a.Location, a.Notes, a.CreationTime)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

func (r *AttendanceRepo) GetByID(ctx context.Context, id uint64) (model.Attendance, error) {
	a, err := scanAttendance(r.db.QueryRowContext(ctx, "SELECT "+attendanceCols+" FROM attendance WHERE id = ?", id))
	return a, notFound(err)
}

// GetByUserDate returns the user's row for date, or ErrNotFound.
func (r *AttendanceRepo) GetByUserDate(ctx context.Context, userID uint64, date model.Date) (model.Attendance, error) {
	a, err := scanAttendance(r.db.QueryRowContext(ctx,
		"SELECT "+attendanceCols+" FROM attendance WHERE user_id = ? AND date = ? ORDER BY id LIMIT 1", userID, date))
	return a, notFound(err)
}

func (r *AttendanceRepo) Update(ctx context.Context, a *model.Attendance) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE attendance SET date=?, check_in=?, check_out=?, status=?, location=?, notes=? WHERE id=?",
		a.Date, a.CheckIn, a.CheckOut, a.Status, a.Location, a.Notes, a.ID)
	return err
}

func (r *AttendanceRepo) Delete(ctx context.Context, id uint64) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM attendance WHERE id = ?", id))
}

// List returns rows newest date first.
func (r *AttendanceRepo) List(ctx context.Context, f AttendanceFilter) ([]model.Attendance, error) {
	var w where
	if f.UserID != 0 {
		w.eq("user_id", f.UserID)
	}
	if f.Status != "" {
		w.eq("status", f.Status)
	}
	if !f.From.IsZero() {
		w.add("date >= ?", f.From)
	}
	if !f.To.IsZero() {
		w.add("date <= ?", f.To)
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+attendanceCols+" FROM attendance"+w.String()+" ORDER BY date DESC, id DESC", w.args...)
	return collect(rows, err, scanAttendance)
}

// CountByStatus tallies rows per status over the same filter List accepts.
func (r *AttendanceRepo) CountByStatus(ctx context.Context, f AttendanceFilter) (map[model.AttendanceStatus]int, error) {
	var w where
	if f.UserID != 0 {
		w.eq("user_id", f.UserID)
	}
	if !f.From.IsZero() {
		w.add("date >= ?", f.From)
	}
	if !f.To.IsZero() {
		w.add("date <= ?", f.To)
	}
	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM attendance"+w.String()+" GROUP BY status", w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[model.AttendanceStatus]int{}
	for rows.Next() {
		var (
			st model.AttendanceStatus
			n  int
		)
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		out[st] = n
	}
	return out, rows.Err()
}
