package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/fieldops/internal/model"
)

type ItemFilter struct {
	Category string
	Location string
	Search   string
	LowStock bool
}

type LogFilter struct {
	ItemID uint64
	Type   model.InventoryLogType
}

type RequestFilter struct {
	Status      model.RequestStatus
	ProjectID   uint64
	RequestedBy uint64
}

// InventoryRepo covers inventory_items, the inventory_logs ledger and
// inventory_requests.
type InventoryRepo struct{ db DBTX }

func NewInventoryRepo(db DBTX) *InventoryRepo { return &InventoryRepo{db: db} }

func (r *InventoryRepo) WithTx(tx *sql.Tx) *InventoryRepo { return &InventoryRepo{db: tx} }

const itemCols = "id, name, sku, category, unit, quantity, min_quantity, location, unit_cost, creation_time"

func scanItem(s scanner) (model.InventoryItem, error) {
	var i model.InventoryItem
	err := s.Scan(&i.ID, &i.Name, &i.SKU, &i.Category, &i.Unit, &i.Quantity, &i.MinQuantity, &i.Location, &i.UnitCost, &i.CreationTime)
	return i, err
}

func (r *InventoryRepo) CreateItem(ctx context.Context, i *model.InventoryItem) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO inventory_items (name, sku, category, unit, quantity, min_quantity, location, unit_cost, creation_time)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		i.Name, i.SKU, i.Category, i.Unit, i.Quantity, i.MinQuantity, i.Location, i.UnitCost, i.CreationTime)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	i.ID = uint64(id)
	return nil
}

func (r *InventoryRepo) GetItem(ctx context.Context, id uint64) (model.InventoryItem, error) {
	i, err := scanItem(r.db.QueryRowContext(ctx, "SELECT "+itemCols+" FROM inventory_items WHERE id = ?", id))
	return i, notFound(err)
}

// FindItemAt returns the item with the given name stored at location.
func (r *InventoryRepo) FindItemAt(ctx context.Context, name, location string) (model.InventoryItem, error) {
	i, err := scanItem(r.db.QueryRowContext(ctx,
		"SELECT "+itemCols+" FROM inventory_items WHERE name = ? AND location = ? ORDER BY id LIMIT 1", name, location))
	return i, notFound(err)
}

// UpdateItem writes descriptive columns only; quantity goes through SetQuantity.
func (r *InventoryRepo) UpdateItem(ctx context.Context, i *model.InventoryItem) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE inventory_items SET name=?, sku=?, category=?, unit=?, min_quantity=?, location=?, unit_cost=? WHERE id=?",
		i.Name, i.SKU, i.Category, i.Unit, i.MinQuantity, i.Location, i.UnitCost, i.ID)
	return err
}

func (r *InventoryRepo) SetQuantity(ctx context.Context, id uint64, qty int64) error {
	_, err := r.db.ExecContext(ctx, "UPDATE inventory_items SET quantity=? WHERE id=?", qty, id)
	return err
}

func (r *InventoryRepo) DeleteItem(ctx context.Context, id uint64) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM inventory_items WHERE id = ?", id))
}

func (r *InventoryRepo) ListItems(ctx context.Context, f ItemFilter) ([]model.InventoryItem, error) {
	var w where
	if f.Category != "" {
		w.eq("category", f.Category)
	}
	if f.Location != "" {
		w.eq("location", f.Location)
	}
	if f.LowStock {
		w.add("quantity <= min_quantity")
	}
	w.search(f.Search, "name", "sku")
	rows, err := r.db.QueryContext(ctx, "SELECT "+itemCols+" FROM inventory_items"+w.String()+" ORDER BY name, id", w.args...)
	return collect(rows, err, scanItem)
}

// ItemsByID loads the given items keyed by id; missing ids are absent.
func (r *InventoryRepo) ItemsByID(ctx context.Context, ids []uint64) (map[uint64]model.InventoryItem, error) {
	out := make(map[uint64]model.InventoryItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+itemCols+" FROM inventory_items WHERE id IN ("+inList(len(ids))+")", uint64Args(ids)...)
	items, err := collect(rows, err, scanItem)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		out[it.ID] = it
	}
	return out, nil
}

func (r *InventoryRepo) ItemNamesByID(ctx context.Context, ids []uint64) (map[uint64]string, error) {
	return lookupNames(ctx, r.db, "inventory_items", "name", ids)
}

// ---- Ledger ----

const logCols = "id, item_id, type, quantity_changed, quantity_after, reason, user_id, from_location, to_location, project_id, creation_time"

func scanLog(s scanner) (model.InventoryLog, error) {
	var l model.InventoryLog
	err := s.Scan(&l.ID, &l.ItemID, &l.Type, &l.QuantityChanged, &l.QuantityAfter, &l.Reason, &l.UserID,
		&l.FromLocation, &l.ToLocation, &l.ProjectID, &l.CreationTime)
	return l, err
}

// AppendLog inserts an immutable ledger row.  There is no update or delete.
func (r *InventoryRepo) AppendLog(ctx context.Context, l *model.InventoryLog) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO inventory_logs (item_id, type, quantity_changed, quantity_after, reason, user_id,
		 from_location, to_location, project_id, creation_time) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		l.ItemID, l.Type, l.QuantityChanged, l.QuantityAfter, l.Reason, l.UserID,
		l.FromLocation, l.ToLocation, l.ProjectID, l.CreationTime)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

// ListLogs returns ledger rows newest first.
func (r *InventoryRepo) ListLogs(ctx context.Context, f LogFilter) ([]model.InventoryLog, error) {
	var w where
	if f.ItemID != 0 {
		w.eq("item_id", f.ItemID)
	}
	if f.Type != "" {
		w.eq("type", f.Type)
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+logCols+" FROM inventory_logs"+w.String()+" ORDER BY creation_time DESC, id DESC", w.args...)
	return collect(rows, err, scanLog)
}

// ---- Requests ----

const requestCols = "id, items, requested_by, approved_by, project_id, status, notes, fulfilled_at, creation_time"

func scanRequest(s scanner) (model.InventoryRequest, error) {
	var q model.InventoryRequest
	err := s.Scan(&q.ID, &q.Items, &q.RequestedBy, &q.ApprovedBy, &q.ProjectID, &q.Status, &q.Notes, &q.FulfilledAt, &q.CreationTime)
	return q, err
}

func (r *InventoryRepo) CreateRequest(ctx context.Context, q *model.InventoryRequest) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO inventory_requests (items, requested_by, approved_by, project_id, status, notes, fulfilled_at, creation_time)
		 VALUES (?,?,?,?,?,?,?,?)`,
		q.Items, q.RequestedBy, q.ApprovedBy, q.ProjectID, q.Status, q.Notes, q.FulfilledAt, q.CreationTime)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	q.ID = uint64(id)
	return nil
}

func (r *InventoryRepo) GetRequest(ctx context.Context, id uint64) (model.InventoryRequest, error) {
	q, err := scanRequest(r.db.QueryRowContext(ctx, "SELECT "+requestCols+" FROM inventory_requests WHERE id = ?", id))
	return q, notFound(err)
}

func (r *InventoryRepo) UpdateRequest(ctx context.Context, q *model.InventoryRequest) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE inventory_requests SET approved_by=?, status=?, notes=?, fulfilled_at=? WHERE id=?",
		q.ApprovedBy, q.Status, q.Notes, q.FulfilledAt, q.ID)
	return err
}

func (r *InventoryRepo) DeleteRequest(ctx context.Context, id uint64) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM inventory_requests WHERE id = ?", id))
}

func (r *InventoryRepo) ListRequests(ctx context.Context, f RequestFilter) ([]model.InventoryRequest, error) {
	var w where
	if f.Status != "" {
		w.eq("status", f.Status)
	}
	if f.ProjectID != 0 {
		w.eq("project_id", f.ProjectID)
	}
	if f.RequestedBy != 0 {
		w.eq("requested_by", f.RequestedBy)
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+requestCols+" FROM inventory_requests"+w.String()+" ORDER BY creation_time DESC, id DESC", w.args...)
	return collect(rows, err, scanRequest)
}
