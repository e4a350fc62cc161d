package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/fieldops/internal/model"
	"github.com/iliyamo/fieldops/internal/queue"
	"github.com/iliyamo/fieldops/internal/repository"
)

type EquipmentInput struct {
	Name            string  `json:"name"`
	Type            string  `json:"type"`
	SerialNumber    string  `json:"serial_number"`
	Status          string  `json:"status"`
	Location        string  `json:"location"`
	LastMaintenance *string `json:"last_maintenance"`
	Notes           string  `json:"notes"`
}

type EquipmentPatch struct {
	Name            *string `json:"name"`
	Type            *string `json:"type"`
	SerialNumber    *string `json:"serial_number"`
	Status          *string `json:"status"`
	Location        *string `json:"location"`
	LastMaintenance *string `json:"last_maintenance"`
	Notes           *string `json:"notes"`
}

type EquipmentFilter struct {
	Status string
	Type   string
	Search string
}

type DispatchInput struct {
	EquipmentID  uint64  `json:"equipment_id"`
	ProjectID    uint64  `json:"project_id"`
	RequestedBy  uint64  `json:"requested_by"`
	DispatchDate string  `json:"dispatch_date"`
	ReturnDate   *string `json:"return_date"`
	Notes        string  `json:"notes"`
}

type DispatchFilter struct {
	Status      string
	ProjectID   uint64
	EquipmentID uint64
}

type DispatchView struct {
	model.EquipmentDispatch
	EquipmentName   string  `json:"equipment_name"`
	ProjectName     string  `json:"project_name"`
	RequestedByName string  `json:"requested_by_name"`
	ApprovedByName  *string `json:"approved_by_name"`
}

func (s *Service) CreateEquipment(ctx context.Context, in EquipmentInput) (uint64, error) {
	e := model.Equipment{
		Type:         strings.TrimSpace(in.Type),
		SerialNumber: strings.TrimSpace(in.SerialNumber),
		Location:     strings.TrimSpace(in.Location),
		Notes:        strings.TrimSpace(in.Notes),
	}
	var err error
	if e.Name, err = required("name", in.Name); err != nil {
		return 0, err
	}
	if e.Status, err = enumOr("status", in.Status, model.EquipmentAvailable, model.ParseEquipmentStatus, model.EquipmentStatuses); err != nil {
		return 0, err
	}
	if e.LastMaintenance, err = optDate("last_maintenance", in.LastMaintenance); err != nil {
		return 0, err
	}
	e.CreationTime = s.nowMillis()
	if err := s.equipment.Create(ctx, &e); err != nil {
		return 0, err
	}
	return e.ID, nil
}

func (s *Service) GetEquipment(ctx context.Context, id uint64) (model.Equipment, error) {
	e, err := s.equipment.GetByID(ctx, id)
	return e, lift(err, "equipment", id)
}

func (s *Service) UpdateEquipment(ctx context.Context, id uint64, p EquipmentPatch) (model.Equipment, error) {
	e, err := s.equipment.GetByID(ctx, id)
	if err != nil {
		return e, lift(err, "equipment", id)
	}
	if p.Name != nil {
		if e.Name, err = required("name", *p.Name); err != nil {
			return e, err
		}
	}
	if p.Status != nil {
		if e.Status, err = enum("status", *p.Status, model.ParseEquipmentStatus, model.EquipmentStatuses); err != nil {
			return e, err
		}
	}
	if p.LastMaintenance != nil {
		if e.LastMaintenance, err = optDate("last_maintenance", p.LastMaintenance); err != nil {
			return e, err
		}
	}
	setTrim(&e.Type, p.Type)
	setTrim(&e.SerialNumber, p.SerialNumber)
	setTrim(&e.Location, p.Location)
	setTrim(&e.Notes, p.Notes)
	if err := s.equipment.Update(ctx, &e); err != nil {
		return e, err
	}
	return e, nil
}

func (s *Service) DeleteEquipment(ctx context.Context, id uint64) error {
	return lift(s.equipment.Delete(ctx, id), "equipment", id)
}

func (s *Service) ListEquipment(ctx context.Context, f EquipmentFilter) ([]model.Equipment, error) {
	rf := repository.EquipmentFilter{Type: f.Type, Search: f.Search}
	if f.Status != "" {
		st, err := enum("status", f.Status, model.ParseEquipmentStatus, model.EquipmentStatuses)
		if err != nil {
			return nil, err
		}
		rf.Status = st
	}
	return s.equipment.List(ctx, rf)
}

// CreateDispatch books equipment for a project.  Only Available equipment
// can be requested; the new dispatch starts Pending.
func (s *Service) CreateDispatch(ctx context.Context, in DispatchInput) (uint64, error) {
	day, err := date("dispatch_date", in.DispatchDate)
	if err != nil {
		return 0, err
	}
	ret, err := optDate("return_date", in.ReturnDate)
	if err != nil {
		return 0, err
	}
	if ret != nil && ret.Before(day) {
		return 0, invalid("return_date must not be before dispatch_date")
	}
	if in.EquipmentID == 0 {
		return 0, invalid("equipment_id is required")
	}
	e, err := s.equipment.GetByID(ctx, in.EquipmentID)
	if err != nil {
		return 0, lift(err, "equipment", in.EquipmentID)
	}
	if err := s.projectMustExist(ctx, s.projects, in.ProjectID); err != nil {
		return 0, err
	}
	if err := s.userMustExist(ctx, s.users, "requested_by", in.RequestedBy); err != nil {
		return 0, err
	}
	if e.Status != model.EquipmentAvailable {
		return 0, conflict("equipment %q is %s", e.Name, e.Status)
	}
	d := model.EquipmentDispatch{
		EquipmentID:  in.EquipmentID,
		ProjectID:    in.ProjectID,
		RequestedBy:  in.RequestedBy,
		Status:       model.DispatchPending,
		DispatchDate: day,
		ReturnDate:   ret,
		Notes:        strings.TrimSpace(in.Notes),
		CreationTime: s.nowMillis(),
	}
	if err := s.equipment.CreateDispatch(ctx, &d); err != nil {
		return 0, err
	}
	return d.ID, nil
}

// UpdateDispatchStatus moves a dispatch to status and applies the matching
// equipment status change in the same transaction.  Any status may follow
// any other; see equipmentStatusFor for which moves touch the equipment.
func (s *Service) UpdateDispatchStatus(ctx context.Context, id uint64, status string, actorID uint64) (model.EquipmentDispatch, error) {
	st, err := enum("status", status, model.ParseDispatchStatus, model.DispatchStatuses)
	if err != nil {
		return model.EquipmentDispatch{}, err
	}
	if err := s.userMustExist(ctx, s.users, "actor", actorID); err != nil {
		return model.EquipmentDispatch{}, err
	}
	var (
		d    model.EquipmentDispatch
		from model.DispatchStatus
	)
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		repo := s.equipment.WithTx(tx)
		if d, err = repo.GetDispatch(ctx, id); err != nil {
			return lift(err, "dispatch", id)
		}
		from = d.Status
		d.Status = st
		switch st {
		case model.DispatchApproved:
			d.ApprovedBy = &actorID
		case model.DispatchReturned:
			d.ReturnedAt = ptr(s.nowMillis())
		}
		if err := repo.UpdateDispatch(ctx, &d); err != nil {
			return err
		}
		if es, ok := equipmentStatusFor(from, st); ok {
			return repo.SetStatus(ctx, d.EquipmentID, es)
		}
		return nil
	})
	if err != nil {
		return model.EquipmentDispatch{}, err
	}
	s.publish(ctx, queue.Event{
		Type:      queue.DispatchStatusChanged,
		EntityID:  d.ID,
		ActorID:   actorID,
		ProjectID: &d.ProjectID,
		From:      string(from),
		To:        string(st),
	})
	return d, nil
}

// equipmentStatusFor maps a dispatch transition to the status its equipment
// takes on.  Only a dispatch leaving Dispatched releases its equipment;
// cancelling one that never went out leaves the equipment status alone.
func equipmentStatusFor(from, to model.DispatchStatus) (model.EquipmentStatus, bool) {
	switch {
	case to == model.DispatchDispatched:
		return model.EquipmentInUse, true
	case from == model.DispatchDispatched && (to == model.DispatchReturned || to == model.DispatchCancelled):
		return model.EquipmentAvailable, true
	}
	return "", false
}

func (s *Service) GetDispatch(ctx context.Context, id uint64) (DispatchView, error) {
	d, err := s.equipment.GetDispatch(ctx, id)
	if err != nil {
		return DispatchView{}, lift(err, "dispatch", id)
	}
	views, err := s.dispatchViews(ctx, []model.EquipmentDispatch{d})
	if err != nil {
		return DispatchView{}, err
	}
	return views[0], nil
}

func (s *Service) DeleteDispatch(ctx context.Context, id uint64) error {
	return lift(s.equipment.DeleteDispatch(ctx, id), "dispatch", id)
}

func (s *Service) ListDispatches(ctx context.Context, f DispatchFilter) ([]DispatchView, error) {
	rf := repository.DispatchFilter{ProjectID: f.ProjectID, EquipmentID: f.EquipmentID}
	if f.Status != "" {
		st, err := enum("status", f.Status, model.ParseDispatchStatus, model.DispatchStatuses)
		if err != nil {
			return nil, err
		}
		rf.Status = st
	}
	rows, err := s.equipment.ListDispatches(ctx, rf)
	if err != nil {
		return nil, err
	}
	return s.dispatchViews(ctx, rows)
}

func (s *Service) dispatchViews(ctx context.Context, rows []model.EquipmentDispatch) ([]DispatchView, error) {
	var r refs
	for _, d := range rows {
		r.equip(d.EquipmentID)
		r.project(d.ProjectID)
		r.user(d.RequestedBy)
		r.optUser(d.ApprovedBy)
	}
	n, err := s.resolve(ctx, r)
	if err != nil {
		return nil, err
	}
	out := make([]DispatchView, len(rows))
	for i, d := range rows {
		out[i] = DispatchView{
			EquipmentDispatch: d,
			EquipmentName:     n.equipmentName(d.EquipmentID),
			ProjectName:       n.project(d.ProjectID),
			RequestedByName:   n.user(d.RequestedBy),
			ApprovedByName:    n.optUser(d.ApprovedBy),
		}
	}
	return out, nil
}
