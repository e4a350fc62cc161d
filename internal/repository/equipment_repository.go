package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/fieldops/internal/model"
)

type EquipmentFilter struct {
	Status model.EquipmentStatus
	Type   string
	Search string
}

type DispatchFilter struct {
	Status      model.DispatchStatus
	ProjectID   uint64
	EquipmentID uint64
}

// EquipmentRepo covers equipment and equipment_dispatches.
type EquipmentRepo struct{ db DBTX }

func NewEquipmentRepo(db DBTX) *EquipmentRepo { return &EquipmentRepo{db: db} }

func (r *EquipmentRepo) WithTx(tx *sql.Tx) *EquipmentRepo { return &EquipmentRepo{db: tx} }

const equipmentCols = "id, name, type, serial_number, status, location, last_maintenance, notes, creation_time"

func scanEquipment(s scanner) (model.Equipment, error) {
	var e model.Equipment
	err := s.Scan(&e.ID, &e.Name, &e.Type, &e.SerialNumber, &e.Status, &e.Location, &e.LastMaintenance, &e.Notes, &e.CreationTime)
	return e, err
}

func (r *EquipmentRepo) Create(ctx context.Context, e *model.Equipment) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO equipment (name, type, serial_number, status, location, last_maintenance, notes, creation_time)
		 VALUES (?,?,?,?,?,?,?,?)`,
		e.Name, e.Type, e.SerialNumber, e.Status, e.Location, e.LastMaintenance, e.Notes, e.CreationTime)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

func (r *EquipmentRepo) GetByID(ctx context.Context, id uint64) (model.Equipment, error) {
	e, err := scanEquipment(r.db.QueryRowContext(ctx, "SELECT "+equipmentCols+" FROM equipment WHERE id = ?", id))
	return e, notFound(err)
}

func (r *EquipmentRepo) Update(ctx context.Context, e *model.Equipment) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE equipment SET name=?, type=?, serial_number=?, status=?, location=?, last_maintenance=?, notes=? WHERE id=?",
		e.Name, e.Type, e.SerialNumber, e.Status, e.Location, e.LastMaintenance, e.Notes, e.ID)
	return err
}

func (r *EquipmentRepo) SetStatus(ctx context.Context, id uint64, st model.EquipmentStatus) error {
	_, err := r.db.ExecContext(ctx, "UPDATE equipment SET status=? WHERE id=?", st, id)
	return err
}

func (r *EquipmentRepo) Delete(ctx context.Context, id uint64) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM equipment WHERE id = ?", id))
}

func (r *EquipmentRepo) List(ctx context.Context, f EquipmentFilter) ([]model.Equipment, error) {
	var w where
	if f.Status != "" {
		w.eq("status", f.Status)
	}
	if f.Type != "" {
		w.eq("type", f.Type)
	}
	w.search(f.Search, "name", "serial_number", "location")
	rows, err := r.db.QueryContext(ctx, "SELECT "+equipmentCols+" FROM equipment"+w.String()+" ORDER BY name, id", w.args...)
	return collect(rows, err, scanEquipment)
}

// CountByStatus returns the number of equipment rows per status.
func (r *EquipmentRepo) CountByStatus(ctx context.Context) (map[model.EquipmentStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM equipment GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[model.EquipmentStatus]int{}
	for rows.Next() {
		var (
			st model.EquipmentStatus
			n  int
		)
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		out[st] = n
	}
	return out, rows.Err()
}

func (r *EquipmentRepo) NamesByID(ctx context.Context, ids []uint64) (map[uint64]string, error) {
	return lookupNames(ctx, r.db, "equipment", "name", ids)
}

// ---- Dispatches ----

const dispatchCols = `id, equipment_id, project_id, requested_by, approved_by, status,
	dispatch_date, return_date, returned_at, notes, creation_time`

func scanDispatch(s scanner) (model.EquipmentDispatch, error) {
	var d model.EquipmentDispatch
	err := s.Scan(&d.ID, &d.EquipmentID, &d.ProjectID, &d.RequestedBy, &d.ApprovedBy, &d.Status,
		&d.DispatchDate, &d.ReturnDate, &d.ReturnedAt, &d.Notes, &d.CreationTime)
	return d, err
}

func (r *EquipmentRepo) CreateDispatch(ctx context.Context, d *model.EquipmentDispatch) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO equipment_dispatches (equipment_id, project_id, requested_by, approved_by, status,
		 dispatch_date, return_date, returned_at, notes, creation_time) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		d.EquipmentID, d.ProjectID, d.RequestedBy, d.ApprovedBy, d.Status,
		d.DispatchDate, d.ReturnDate, d.ReturnedAt, d.Notes, d.CreationTime)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	return nil
}

func (r *EquipmentRepo) GetDispatch(ctx context.Context, id uint64) (model.EquipmentDispatch, error) {
	d, err := scanDispatch(r.db.QueryRowContext(ctx, "SELECT "+dispatchCols+" FROM equipment_dispatches WHERE id = ?", id))
	return d, notFound(err)
}

func (r *EquipmentRepo) UpdateDispatch(ctx context.Context, d *model.EquipmentDispatch) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE equipment_dispatches SET approved_by=?, status=?, dispatch_date=?, return_date=?, returned_at=?, notes=?
		 WHERE id=?`,
		d.ApprovedBy, d.Status, d.DispatchDate, d.ReturnDate, d.ReturnedAt, d.Notes, d.ID)
	return err
}

func (r *EquipmentRepo) DeleteDispatch(ctx context.Context, id uint64) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM equipment_dispatches WHERE id = ?", id))
}

// ListDispatches returns dispatches newest first.
func (r *EquipmentRepo) ListDispatches(ctx context.Context, f DispatchFilter) ([]model.EquipmentDispatch, error) {
	var w where
	if f.Status != "" {
		w.eq("status", f.Status)
	}
	if f.ProjectID != 0 {
		w.eq("project_id", f.ProjectID)
	}
	if f.EquipmentID != 0 {
		w.eq("equipment_id", f.EquipmentID)
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+dispatchCols+" FROM equipment_dispatches"+w.String()+" ORDER BY creation_time DESC, id DESC", w.args...)
	return collect(rows, err, scanDispatch)
}
