package repository

import (
	"context"
	"strconv"

	"github.com/iliyamo/fieldops/internal/model"
)

// CommunicationFilter narrows List.  Recipient and Sender match the
// to_user_ids set and the from_user_id column respectively.
type CommunicationFilter struct {
	Type      model.CommunicationType
	Priority  model.Priority
	ProjectID uint64
	Sender    uint64
	Recipient uint64
}

type CommunicationRepo struct{ db DBTX }

func NewCommunicationRepo(db DBTX) *CommunicationRepo { return &CommunicationRepo{db: db} }

const communicationCols = "id, type, title, content, priority, from_user_id, to_user_ids, read_by, project_id, creation_time"

func scanCommunication(s scanner) (model.Communication, error) {
	var c model.Communication
	err := s.Scan(&c.ID, &c.Type, &c.Title, &c.Content, &c.Priority, &c.FromUserID, &c.ToUserIDs, &c.ReadBy, &c.ProjectID, &c.CreationTime)
	return c, err
}

func (r *CommunicationRepo) Create(ctx context.Context, c *model.Communication) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO communications (type, title, content, priority, from_user_id, to_user_ids, read_by, project_id, creation_time)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		c.Type, c.Title, c.Content, c.Priority, c.FromUserID, c.ToUserIDs, c.ReadBy, c.ProjectID, c.CreationTime)
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

func (r *CommunicationRepo) GetByID(ctx context.Context, id uint64) (model.Communication, error) {
	c, err := scanCommunication(r.db.QueryRowContext(ctx, "SELECT "+communicationCols+" FROM communications WHERE id = ?", id))
	return c, notFound(err)
}

// SetReadBy overwrites the read_by set.
func (r *CommunicationRepo) SetReadBy(ctx context.Context, id uint64, readBy model.IDSet) error {
	_, err := r.db.ExecContext(ctx, "UPDATE communications SET read_by = ? WHERE id = ?", readBy, id)
	return err
}

func (r *CommunicationRepo) Delete(ctx context.Context, id uint64) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM communications WHERE id = ?", id))
}

// List returns matching rows newest first.  The recipient filter is a
// coarse LIKE on the JSON text; callers re-check membership on the decoded set.
func (r *CommunicationRepo) List(ctx context.Context, f CommunicationFilter) ([]model.Communication, error) {
	var w where
	if f.Type != "" {
		w.eq("type", f.Type)
	}
	if f.Priority != "" {
		w.eq("priority", f.Priority)
	}
	if f.ProjectID != 0 {
		w.eq("project_id", f.ProjectID)
	}
	if f.Sender != 0 {
		w.eq("from_user_id", f.Sender)
	}
	if f.Recipient != 0 {
		w.add("to_user_ids LIKE ?", "%"+strconv.FormatUint(f.Recipient, 10)+"%")
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+communicationCols+" FROM communications"+w.String()+" ORDER BY creation_time DESC, id DESC", w.args...)
	out, err := collect(rows, err, scanCommunication)
	if err != nil || f.Recipient == 0 {
		return out, err
	}
	kept := out[:0]
	for _, c := range out {
		if c.IsRecipient(f.Recipient) {
			kept = append(kept, c)
		}
	}
	return kept, nil
}
