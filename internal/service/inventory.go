package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/fieldops/internal/model"
	"github.com/iliyamo/fieldops/internal/queue"
	"github.com/iliyamo/fieldops/internal/repository"
)

type ItemInput struct {
	Name        string          `json:"name"`
	SKU         string          `json:"sku"`
	Category    string          `json:"category"`
	Unit        string          `json:"unit"`
	Quantity    int64           `json:"quantity"`
	MinQuantity int64           `json:"min_quantity"`
	Location    string          `json:"location"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	CreatedBy   uint64          `json:"created_by"`
}

// ItemPatch never touches quantity; stock moves go through the ledger
// operations below.
type ItemPatch struct {
	Name        *string          `json:"name"`
	SKU         *string          `json:"sku"`
	Category    *string          `json:"category"`
	Unit        *string          `json:"unit"`
	MinQuantity *int64           `json:"min_quantity"`
	Location    *string          `json:"location"`
	UnitCost    *decimal.Decimal `json:"unit_cost"`
}

type ItemFilter struct {
	Category string
	Location string
	Search   string
	LowStock bool
}

type ItemView struct {
	model.InventoryItem
	LowStock bool `json:"low_stock"`
}

// StockInput moves Quantity units of ItemID.  For AdjustStock Quantity is
// the new absolute level.
type StockInput struct {
	ItemID    uint64  `json:"item_id"`
	Quantity  int64   `json:"quantity"`
	Reason    string  `json:"reason"`
	UserID    uint64  `json:"user_id"`
	ProjectID *uint64 `json:"project_id"`
}

type TransferInput struct {
	ItemID     uint64 `json:"item_id"`
	Quantity   int64  `json:"quantity"`
	ToLocation string `json:"to_location"`
	Reason     string `json:"reason"`
	UserID     uint64 `json:"user_id"`
}

type LogFilter struct {
	ItemID uint64
	Type   string
}

type LogView struct {
	model.InventoryLog
	ItemName    string  `json:"item_name"`
	UserName    string  `json:"user_name"`
	ProjectName *string `json:"project_name"`
}

type InventoryRequestInput struct {
	Items       []model.InventoryRequestLine `json:"items"`
	RequestedBy uint64                       `json:"requested_by"`
	ProjectID   *uint64                      `json:"project_id"`
	Notes       string                       `json:"notes"`
}

type RequestFilter struct {
	Status      string
	ProjectID   uint64
	RequestedBy uint64
}

type RequestLineView struct {
	model.InventoryRequestLine
	ItemName string `json:"item_name"`
}

type InventoryRequestView struct {
	model.InventoryRequest
	Lines           []RequestLineView `json:"lines"`
	RequestedByName string            `json:"requested_by_name"`
	ApprovedByName  *string           `json:"approved_by_name"`
	ProjectName     *string           `json:"project_name"`
}

// ---- Items ----

// CreateItem inserts an item.  Opening stock is written to the ledger as an
// addition so the log always explains the current quantity.
func (s *Service) CreateItem(ctx context.Context, in ItemInput) (uint64, error) {
	it := model.InventoryItem{
		SKU:         strings.TrimSpace(in.SKU),
		Category:    strings.TrimSpace(in.Category),
		Unit:        strings.TrimSpace(in.Unit),
		Quantity:    in.Quantity,
		MinQuantity: in.MinQuantity,
		Location:    strings.TrimSpace(in.Location),
		UnitCost:    in.UnitCost,
	}
	var err error
	if it.Name, err = required("name", in.Name); err != nil {
		return 0, err
	}
	if in.Quantity < 0 || in.MinQuantity < 0 {
		return 0, invalid("quantity and min_quantity must not be negative")
	}
	if err := nonNegative("unit_cost", in.UnitCost); err != nil {
		return 0, err
	}
	if err := s.userMustExist(ctx, s.users, "created_by", in.CreatedBy); err != nil {
		return 0, err
	}
	it.CreationTime = s.nowMillis()
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		repo := s.inventory.WithTx(tx)
		if err := repo.CreateItem(ctx, &it); err != nil {
			return err
		}
		if it.Quantity == 0 {
			return nil
		}
		return repo.AppendLog(ctx, &model.InventoryLog{
			ItemID:          it.ID,
			Type:            model.LogAddition,
			QuantityChanged: it.Quantity,
			QuantityAfter:   it.Quantity,
			Reason:          "opening stock",
			UserID:          in.CreatedBy,
			CreationTime:    it.CreationTime,
		})
	})
	if err != nil {
		return 0, err
	}
	return it.ID, nil
}

func (s *Service) GetItem(ctx context.Context, id uint64) (ItemView, error) {
	it, err := s.inventory.GetItem(ctx, id)
	if err != nil {
		return ItemView{}, lift(err, "inventory item", id)
	}
	return ItemView{InventoryItem: it, LowStock: it.LowStock()}, nil
}

func (s *Service) UpdateItem(ctx context.Context, id uint64, p ItemPatch) (model.InventoryItem, error) {
	it, err := s.inventory.GetItem(ctx, id)
	if err != nil {
		return it, lift(err, "inventory item", id)
	}
	if p.Name != nil {
		if it.Name, err = required("name", *p.Name); err != nil {
			return it, err
		}
	}
	if p.MinQuantity != nil && *p.MinQuantity < 0 {
		return it, invalid("min_quantity must not be negative")
	}
	if p.UnitCost != nil {
		if err := nonNegative("unit_cost", *p.UnitCost); err != nil {
			return it, err
		}
	}
	setTrim(&it.SKU, p.SKU)
	setTrim(&it.Category, p.Category)
	setTrim(&it.Unit, p.Unit)
	setTrim(&it.Location, p.Location)
	set(&it.MinQuantity, p.MinQuantity)
	set(&it.UnitCost, p.UnitCost)
	if err := s.inventory.UpdateItem(ctx, &it); err != nil {
		return it, err
	}
	return it, nil
}

func (s *Service) DeleteItem(ctx context.Context, id uint64) error {
	return lift(s.inventory.DeleteItem(ctx, id), "inventory item", id)
}

func (s *Service) ListItems(ctx context.Context, f ItemFilter) ([]ItemView, error) {
	rows, err := s.inventory.ListItems(ctx, repository.ItemFilter(f))
	if err != nil {
		return nil, err
	}
	return lo.Map(rows, func(it model.InventoryItem, _ int) ItemView {
		return ItemView{InventoryItem: it, LowStock: it.LowStock()}
	}), nil
}

// ---- Ledger operations ----

// move changes one item's quantity by delta and appends the ledger row.
// It must run inside a transaction; repo is bound to it.
func (s *Service) move(ctx context.Context, repo *repository.InventoryRepo, it *model.InventoryItem, delta int64, l model.InventoryLog) error {
	after := it.Quantity + delta
	if after < 0 {
		return invalid("insufficient stock for %q: have %d, need %d", it.Name, it.Quantity, -delta)
	}
	if err := repo.SetQuantity(ctx, it.ID, after); err != nil {
		return err
	}
	it.Quantity = after
	l.ItemID = it.ID
	l.QuantityChanged = delta
	l.QuantityAfter = after
	l.CreationTime = s.nowMillis()
	return repo.AppendLog(ctx, &l)
}

// stockChange loads the item and applies fn to it in one transaction, then
// publishes an inventory.adjusted event.
func (s *Service) stockChange(ctx context.Context, in StockInput, typ model.InventoryLogType, delta func(model.InventoryItem) (int64, error)) (model.InventoryItem, error) {
	if err := s.userMustExist(ctx, s.users, "user_id", in.UserID); err != nil {
		return model.InventoryItem{}, err
	}
	if err := s.optProjectMustExist(ctx, in.ProjectID); err != nil {
		return model.InventoryItem{}, err
	}
	var (
		it model.InventoryItem
		d  int64
	)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		repo := s.inventory.WithTx(tx)
		var err error
		if it, err = repo.GetItem(ctx, in.ItemID); err != nil {
			return lift(err, "inventory item", in.ItemID)
		}
		if d, err = delta(it); err != nil {
			return err
		}
		return s.move(ctx, repo, &it, d, model.InventoryLog{
			Type:      typ,
			Reason:    strings.TrimSpace(in.Reason),
			UserID:    in.UserID,
			ProjectID: in.ProjectID,
		})
	})
	if err != nil {
		return model.InventoryItem{}, err
	}
	s.publish(ctx, queue.Event{
		Type:      queue.InventoryAdjusted,
		EntityID:  it.ID,
		ActorID:   in.UserID,
		ProjectID: in.ProjectID,
		Summary:   fmt.Sprintf("%s %+d %s -> %d (%s)", it.Name, d, typ, it.Quantity, strings.TrimSpace(in.Reason)),
	})
	return it, nil
}

// DeductStock removes stock.  Going below zero is a ValidationError and
// nothing is written.
func (s *Service) DeductStock(ctx context.Context, in StockInput) (model.InventoryItem, error) {
	return s.stockChange(ctx, in, model.LogDeduction, func(model.InventoryItem) (int64, error) {
		if err := positive("quantity", in.Quantity); err != nil {
			return 0, err
		}
		return -in.Quantity, nil
	})
}

func (s *Service) AddStock(ctx context.Context, in StockInput) (model.InventoryItem, error) {
	return s.stockChange(ctx, in, model.LogAddition, func(model.InventoryItem) (int64, error) {
		if err := positive("quantity", in.Quantity); err != nil {
			return 0, err
		}
		return in.Quantity, nil
	})
}

// AdjustStock sets the absolute quantity after a stock count.  The ledger
// row carries the signed difference.
func (s *Service) AdjustStock(ctx context.Context, in StockInput) (model.InventoryItem, error) {
	return s.stockChange(ctx, in, model.LogAdjustment, func(it model.InventoryItem) (int64, error) {
		if in.Quantity < 0 {
			return 0, invalid("quantity must not be negative")
		}
		if _, err := required("reason", in.Reason); err != nil {
			return 0, err
		}
		return in.Quantity - it.Quantity, nil
	})
}

// TransferStock moves stock to the same-named item at ToLocation, creating
// that item when the destination has none.  Both sides get a transfer row.
// It returns the source and destination after the move.
func (s *Service) TransferStock(ctx context.Context, in TransferInput) (model.InventoryItem, model.InventoryItem, error) {
	var src, dst model.InventoryItem
	if err := positive("quantity", in.Quantity); err != nil {
		return src, dst, err
	}
	to, err := required("to_location", in.ToLocation)
	if err != nil {
		return src, dst, err
	}
	if err := s.userMustExist(ctx, s.users, "user_id", in.UserID); err != nil {
		return src, dst, err
	}
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		repo := s.inventory.WithTx(tx)
		var err error
		if src, err = repo.GetItem(ctx, in.ItemID); err != nil {
			return lift(err, "inventory item", in.ItemID)
		}
		if src.Location == to {
			return invalid("item %q is already at %s", src.Name, to)
		}
		dst, err = repo.FindItemAt(ctx, src.Name, to)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			dst = src
			dst.ID, dst.Quantity, dst.Location = 0, 0, to
			dst.CreationTime = s.nowMillis()
			if err := repo.CreateItem(ctx, &dst); err != nil {
				return err
			}
		case err != nil:
			return err
		}
		l := model.InventoryLog{
			Type:         model.LogTransfer,
			Reason:       strings.TrimSpace(in.Reason),
			UserID:       in.UserID,
			FromLocation: src.Location,
			ToLocation:   to,
		}
		if err := s.move(ctx, repo, &src, -in.Quantity, l); err != nil {
			return err
		}
		return s.move(ctx, repo, &dst, in.Quantity, l)
	})
	if err != nil {
		return model.InventoryItem{}, model.InventoryItem{}, err
	}
	s.publish(ctx, queue.Event{
		Type:     queue.InventoryAdjusted,
		EntityID: src.ID,
		ActorID:  in.UserID,
		From:     src.Location,
		To:       dst.Location,
		Summary:  fmt.Sprintf("%s transfer of %d", src.Name, in.Quantity),
	})
	return src, dst, nil
}

func (s *Service) ListInventoryLogs(ctx context.Context, f LogFilter) ([]LogView, error) {
	rf := repository.LogFilter{ItemID: f.ItemID}
	if f.Type != "" {
		t, err := enum("type", f.Type, model.ParseInventoryLogType, model.InventoryLogTypes)
		if err != nil {
			return nil, err
		}
		rf.Type = t
	}
	rows, err := s.inventory.ListLogs(ctx, rf)
	if err != nil {
		return nil, err
	}
	var r refs
	for _, l := range rows {
		r.item(l.ItemID)
		r.user(l.UserID)
		r.optProject(l.ProjectID)
	}
	n, err := s.resolve(ctx, r)
	if err != nil {
		return nil, err
	}
	return lo.Map(rows, func(l model.InventoryLog, _ int) LogView {
		return LogView{InventoryLog: l, ItemName: n.item(l.ItemID), UserName: n.user(l.UserID), ProjectName: n.optProject(l.ProjectID)}
	}), nil
}

// ---- Requests ----

func (s *Service) CreateInventoryRequest(ctx context.Context, in InventoryRequestInput) (uint64, error) {
	if len(in.Items) == 0 {
		return 0, invalid("items is required")
	}
	for _, l := range in.Items {
		if l.ItemID == 0 {
			return 0, invalid("item_id is required on every line")
		}
		if err := positive("quantity", l.Quantity); err != nil {
			return 0, err
		}
	}
	ids := lo.Uniq(lo.Map(in.Items, func(l model.InventoryRequestLine, _ int) uint64 { return l.ItemID }))
	found, err := s.inventory.ItemsByID(ctx, ids)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return 0, notFound("inventory item %d not found", id)
		}
	}
	if err := s.userMustExist(ctx, s.users, "requested_by", in.RequestedBy); err != nil {
		return 0, err
	}
	if err := s.optProjectMustExist(ctx, in.ProjectID); err != nil {
		return 0, err
	}
	q := model.InventoryRequest{
		Items:        model.InventoryRequestLines(in.Items),
		RequestedBy:  in.RequestedBy,
		ProjectID:    in.ProjectID,
		Status:       model.RequestPending,
		Notes:        strings.TrimSpace(in.Notes),
		CreationTime: s.nowMillis(),
	}
	if err := s.inventory.CreateRequest(ctx, &q); err != nil {
		return 0, err
	}
	return q.ID, nil
}

// UpdateInventoryRequestStatus sets the status.  The first move into
// Fulfilled (FulfilledAt is never cleared) deducts every line from stock in the same transaction; if any
// line is short nothing is written.
func (s *Service) UpdateInventoryRequestStatus(ctx context.Context, id uint64, status string, actorID uint64) (model.InventoryRequest, error) {
	st, err := enum("status", status, model.ParseRequestStatus, model.RequestStatuses)
	if err != nil {
		return model.InventoryRequest{}, err
	}
	if err := s.userMustExist(ctx, s.users, "actor", actorID); err != nil {
		return model.InventoryRequest{}, err
	}
	var (
		q    model.InventoryRequest
		from model.RequestStatus
	)
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		repo := s.inventory.WithTx(tx)
		var err error
		if q, err = repo.GetRequest(ctx, id); err != nil {
			return lift(err, "inventory request", id)
		}
		from = q.Status
		q.Status = st
		switch st {
		case model.RequestApproved, model.RequestRejected:
			q.ApprovedBy = &actorID
		case model.RequestFulfilled:
			if q.FulfilledAt != nil {
				break
			}
			for _, line := range q.Items {
				it, err := repo.GetItem(ctx, line.ItemID)
				if err != nil {
					return lift(err, "inventory item", line.ItemID)
				}
				err = s.move(ctx, repo, &it, -line.Quantity, model.InventoryLog{
					Type:      model.LogDeduction,
					Reason:    fmt.Sprintf("inventory request #%d", q.ID),
					UserID:    actorID,
					ProjectID: q.ProjectID,
				})
				if err != nil {
					return err
				}
			}
			q.FulfilledAt = ptr(s.nowMillis())
			if q.ApprovedBy == nil {
				q.ApprovedBy = &actorID
			}
		}
		return repo.UpdateRequest(ctx, &q)
	})
	if err != nil {
		return model.InventoryRequest{}, err
	}
	s.publish(ctx, queue.Event{
		Type:      queue.InventoryRequestStatusChange,
		EntityID:  q.ID,
		ActorID:   actorID,
		ProjectID: q.ProjectID,
		From:      string(from),
		To:        string(st),
	})
	return q, nil
}

func (s *Service) GetInventoryRequest(ctx context.Context, id uint64) (InventoryRequestView, error) {
	q, err := s.inventory.GetRequest(ctx, id)
	if err != nil {
		return InventoryRequestView{}, lift(err, "inventory request", id)
	}
	views, err := s.requestViews(ctx, []model.InventoryRequest{q})
	if err != nil {
		return InventoryRequestView{}, err
	}
	return views[0], nil
}

func (s *Service) DeleteInventoryRequest(ctx context.Context, id uint64) error {
	return lift(s.inventory.DeleteRequest(ctx, id), "inventory request", id)
}

func (s *Service) ListInventoryRequests(ctx context.Context, f RequestFilter) ([]InventoryRequestView, error) {
	rf := repository.RequestFilter{ProjectID: f.ProjectID, RequestedBy: f.RequestedBy}
	if f.Status != "" {
		st, err := enum("status", f.Status, model.ParseRequestStatus, model.RequestStatuses)
		if err != nil {
			return nil, err
		}
		rf.Status = st
	}
	rows, err := s.inventory.ListRequests(ctx, rf)
	if err != nil {
		return nil, err
	}
	return s.requestViews(ctx, rows)
}

func (s *Service) requestViews(ctx context.Context, rows []model.InventoryRequest) ([]InventoryRequestView, error) {
	var r refs
	for _, q := range rows {
		r.user(q.RequestedBy)
		r.optUser(q.ApprovedBy)
		r.optProject(q.ProjectID)
		for _, l := range q.Items {
			r.item(l.ItemID)
		}
	}
	n, err := s.resolve(ctx, r)
	if err != nil {
		return nil, err
	}
	out := make([]InventoryRequestView, len(rows))
	for i, q := range rows {
		out[i] = InventoryRequestView{
			InventoryRequest: q,
			Lines: lo.Map(q.Items, func(l model.InventoryRequestLine, _ int) RequestLineView {
				return RequestLineView{InventoryRequestLine: l, ItemName: n.item(l.ItemID)}
			}),
			RequestedByName: n.user(q.RequestedBy),
			ApprovedByName:  n.optUser(q.ApprovedBy),
			ProjectName:     n.optProject(q.ProjectID),
		}
	}
	return out, nil
}
