package service

import (
	"context"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/fieldops/internal/model"
	"github.com/iliyamo/fieldops/internal/queue"
	"github.com/iliyamo/fieldops/internal/repository"
)

type PurchaseInput struct {
	Title         string               `json:"title"`
	Items         []model.PurchaseLine `json:"items"`
	Justification string               `json:"justification"`
	RequestedBy   uint64               `json:"requested_by"`
	ProjectID     *uint64              `json:"project_id"`
}

type PurchaseFilter struct {
	Status      string
	ProjectID   uint64
	RequestedBy uint64
}

type PurchaseView struct {
	model.PurchaseRequest
	RequestedByName string  `json:"requested_by_name"`
	ApprovedByName  *string `json:"approved_by_name"`
	ProjectName     *string `json:"project_name"`
}

// PurchaseTotal sums quantity times unit cost over lines.
func PurchaseTotal(lines []model.PurchaseLine) decimal.Decimal {
	return lo.Reduce(lines, func(acc decimal.Decimal, l model.PurchaseLine, _ int) decimal.Decimal {
		return acc.Add(l.LineTotal())
	}, decimal.Zero)
}

// CreatePurchaseRequest stores a Pending request.  The total is computed
// here once and never recomputed.
func (s *Service) CreatePurchaseRequest(ctx context.Context, in PurchaseInput) (uint64, error) {
	if len(in.Items) == 0 {
		return 0, invalid("items is required")
	}
	lines := make([]model.PurchaseLine, len(in.Items))
	for i, l := range in.Items {
		name, err := required("item name", l.Name)
		if err != nil {
			return 0, err
		}
		if err := positive("quantity", l.Quantity); err != nil {
			return 0, err
		}
		if err := nonNegative("estimated_cost", l.EstimatedCost); err != nil {
			return 0, err
		}
		lines[i] = model.PurchaseLine{Name: name, Quantity: l.Quantity, Unit: strings.TrimSpace(l.Unit), EstimatedCost: l.EstimatedCost}
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = lines[0].Name
	}
	if err := s.userMustExist(ctx, s.users, "requested_by", in.RequestedBy); err != nil {
		return 0, err
	}
	if err := s.optProjectMustExist(ctx, in.ProjectID); err != nil {
		return 0, err
	}
	p := model.PurchaseRequest{
		Title:              title,
		Items:              model.PurchaseLines(lines),
		TotalEstimatedCost: PurchaseTotal(lines),
		Status:             model.PurchasePending,
		Justification:      strings.TrimSpace(in.Justification),
		RequestedBy:        in.RequestedBy,
		ProjectID:          in.ProjectID,
		CreationTime:       s.nowMillis(),
	}
	if err := s.purchases.Create(ctx, &p); err != nil {
		return 0, err
	}
	return p.ID, nil
}

// UpdatePurchaseRequestStatus sets the status.  Approving or rejecting
// records who decided and when.
func (s *Service) UpdatePurchaseRequestStatus(ctx context.Context, id uint64, status string, actorID uint64) (model.PurchaseRequest, error) {
	st, err := enum("status", status, model.ParsePurchaseStatus, model.PurchaseStatuses)
	if err != nil {
		return model.PurchaseRequest{}, err
	}
	if err := s.userMustExist(ctx, s.users, "actor", actorID); err != nil {
		return model.PurchaseRequest{}, err
	}
	p, err := s.purchases.GetByID(ctx, id)
	if err != nil {
		return p, lift(err, "purchase request", id)
	}
	from := p.Status
	p.Status = st
	if st == model.PurchaseApproved || st == model.PurchaseRejected {
		p.ApprovedBy = &actorID
		p.ApprovedAt = ptr(s.nowMillis())
	}
	if err := s.purchases.Update(ctx, &p); err != nil {
		return p, err
	}
	s.publish(ctx, queue.Event{
		Type:      queue.PurchaseRequestStatusChange,
		EntityID:  p.ID,
		ActorID:   actorID,
		ProjectID: p.ProjectID,
		From:      string(from),
		To:        string(st),
		Summary:   p.Title + " " + p.TotalEstimatedCost.StringFixed(2),
	})
	return p, nil
}

func (s *Service) GetPurchaseRequest(ctx context.Context, id uint64) (PurchaseView, error) {
	p, err := s.purchases.GetByID(ctx, id)
	if err != nil {
		return PurchaseView{}, lift(err, "purchase request", id)
	}
	views, err := s.purchaseViews(ctx, []model.PurchaseRequest{p})
	if err != nil {
		return PurchaseView{}, err
	}
	return views[0], nil
}

func (s *Service) DeletePurchaseRequest(ctx context.Context, id uint64) error {
	return lift(s.purchases.Delete(ctx, id), "purchase request", id)
}

func (s *Service) ListPurchaseRequests(ctx context.Context, f PurchaseFilter) ([]PurchaseView, error) {
	rf := repository.PurchaseFilter{ProjectID: f.ProjectID, RequestedBy: f.RequestedBy}
	if f.Status != "" {
		st, err := enum("status", f.Status, model.ParsePurchaseStatus, model.PurchaseStatuses)
		if err != nil {
			return nil, err
		}
		rf.Status = st
	}
	rows, err := s.purchases.List(ctx, rf)
	if err != nil {
		return nil, err
	}
	return s.purchaseViews(ctx, rows)
}

func (s *Service) purchaseViews(ctx context.Context, rows []model.PurchaseRequest) ([]PurchaseView, error) {
	var r refs
	for _, p := range rows {
		r.user(p.RequestedBy)
		r.optUser(p.ApprovedBy)
		r.optProject(p.ProjectID)
	}
	n, err := s.resolve(ctx, r)
	if err != nil {
		return nil, err
	}
	return lo.Map(rows, func(p model.PurchaseRequest, _ int) PurchaseView {
		return PurchaseView{
			PurchaseRequest: p,
			RequestedByName: n.user(p.RequestedBy),
			ApprovedByName:  n.optUser(p.ApprovedBy),
			ProjectName:     n.optProject(p.ProjectID),
		}
	}), nil
}
