package repository

import (
	"context"

	"github.com/iliyamo/fieldops/internal/model"
)

type ContractorFilter struct {
	Status    model.ContractorStatus
	Specialty string
	ProjectID uint64
	Search    string
}

type ContractorRepo struct{ db DBTX }

func NewContractorRepo(db DBTX) *ContractorRepo { return &ContractorRepo{db: db} }

const contractorCols = "id, name, company, specialty, contact_person, email, phone, status, project_id, creation_time"

func scanContractor(s scanner) (model.Contractor, error) {
	var c model.Contractor
	err := s.Scan(&c.ID, &c.Name, &c.Company, &c.Specialty, &c.ContactPerson, &c.Email, &c.Phone, &c.Status, &c.ProjectID, &c.CreationTime)
	return c, err
}

func (r *ContractorRepo) Create(ctx context.Context, c *model.Contractor) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO contractors (name, company, specialty, contact_person, email, phone, status, project_id, creation_time)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		c.Name, c.Company, c.Specialty, c.ContactPerson, c.Email, c.Phone, c.Status, c.ProjectID, c.CreationTime)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

func (r *ContractorRepo) GetByID(ctx context.Context, id uint64) (model.Contractor, error) {
	c, err := scanContractor(r.db.QueryRowContext(ctx, "SELECT "+contractorCols+" FROM contractors WHERE id = ?", id))
	return c, notFound(err)
}

func (r *ContractorRepo) Update(ctx context.Context, c *model.Contractor) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE contractors SET name=?, company=?, specialty=?, contact_person=?, email=?, phone=?, status=?, project_id=?
		 WHERE id=?`,
		c.Name, c.Company, c.Specialty, c.ContactPerson, c.Email, c.Phone, c.Status, c.ProjectID, c.ID)
	return err
}

func (r *ContractorRepo) Delete(ctx context.Context, id uint64) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM contractors WHERE id = ?", id))
}

func (r *ContractorRepo) List(ctx context.Context, f ContractorFilter) ([]model.Contractor, error) {
	var w where
	if f.Status != "" {
		w.eq("status", f.Status)
	}
	if f.Specialty != "" {
		w.eq("specialty", f.Specialty)
	}
	if f.ProjectID != 0 {
		w.eq("project_id", f.ProjectID)
	}
	w.search(f.Search, "name", "company", "contact_person")
	rows, err := r.db.QueryContext(ctx, "SELECT "+contractorCols+" FROM contractors"+w.String()+" ORDER BY name, id", w.args...)
	return collect(rows, err, scanContractor)
}
