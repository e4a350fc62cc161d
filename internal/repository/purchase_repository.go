package repository

import (
	"context"

	"github.com/iliyamo/fieldops/internal/model"
)

type PurchaseFilter struct {
	Status      model.PurchaseStatus
	ProjectID   uint64
	RequestedBy uint64
}

type PurchaseRepo struct{ db DBTX }

func NewPurchaseRepo(db DBTX) *PurchaseRepo { return &PurchaseRepo{db: db} }

const purchaseCols = `id, title, items, total_estimated_cost, status, justification,
	requested_by, approved_by, approved_at, project_id, creation_time`

func scanPurchase(s scanner) (model.PurchaseRequest, error) {
	var p model.PurchaseRequest
	err := s.Scan(&p.ID, &p.Title, &p.Items, &p.TotalEstimatedCost, &p.Status, &p.Justification,
		&p.RequestedBy, &p.ApprovedBy, &p.ApprovedAt, &p.ProjectID, &p.CreationTime)
	return p, err
}

func (r *PurchaseRepo) Create(ctx context.Context, p *model.PurchaseRequest) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO purchase_requests (title, items, total_estimated_cost, status, justification,
		 requested_by, approved_by, approved_at, project_id, creation_time) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		p.Title, p.Items, p.TotalEstimatedCost, p.Status, p.Justification,
		p.RequestedBy, p.ApprovedBy, p.ApprovedAt, p.ProjectID, p.CreationTime)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

func (r *PurchaseRepo) GetByID(ctx context.Context, id uint64) (model.PurchaseRequest, error) {
	p, err := scanPurchase(r.db.QueryRowContext(ctx, "SELECT "+purchaseCols+" FROM purchase_requests WHERE id = ?", id))
	return p, notFound(err)
}

// Update never touches items or total_estimated_cost; both are fixed at creation.
func (r *PurchaseRepo) Update(ctx context.Context, p *model.PurchaseRequest) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE purchase_requests SET title=?, status=?, justification=?, approved_by=?, approved_at=?, project_id=? WHERE id=?",
		p.Title, p.Status, p.Justification, p.ApprovedBy, p.ApprovedAt, p.ProjectID, p.ID)
	return err
}

func (r *PurchaseRepo) Delete(ctx context.Context, id uint64) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM purchase_requests WHERE id = ?", id))
}

// List returns purchase requests newest first.
func (r *PurchaseRepo) List(ctx context.Context, f PurchaseFilter) ([]model.PurchaseRequest, error) {
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
		"SELECT "+purchaseCols+" FROM purchase_requests"+w.String()+" ORDER BY creation_time DESC, id DESC", w.args...)
	return collect(rows, err, scanPurchase)
}

// CountByStatus returns the number of purchase requests per status.
func (r *PurchaseRepo) CountByStatus(ctx context.Context) (map[model.PurchaseStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM purchase_requests GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[model.PurchaseStatus]int{}
	for rows.Next() {
		var (
			st model.PurchaseStatus
			n  int
		)
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		out[st] = n
	}
	return out, rows.Err()
}
