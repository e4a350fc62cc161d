package service

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/iliyamo/fieldops/internal/model"
	"github.com/iliyamo/fieldops/internal/queue"
	"github.com/iliyamo/fieldops/internal/repository"
)

// CommunicationInput is the body of createNotice and sendMessage.  Priority
// is ignored for messages.
type CommunicationInput struct {
	FromUserID uint64   `json:"from_user_id"`
	ToUserIDs  []uint64 `json:"to_user_ids"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Priority   string   `json:"priority"`
	ProjectID  *uint64  `json:"project_id"`
}

type BroadcastInput struct {
	FromUserID uint64  `json:"from_user_id"`
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	Priority   string  `json:"priority"`
	ProjectID  *uint64 `json:"project_id"`
}

type CommunicationFilter struct {
	Type      string
	Priority  string
	ProjectID uint64
}

// CommunicationView adds the sender's display name and, for inbox views,
// whether the reader has opened the row.
type CommunicationView struct {
	model.Communication
	FromUserName string  `json:"from_user_name"`
	ProjectName  *string `json:"project_name"`
	IsRead       *bool   `json:"is_read,omitempty"`
}

// CreateNotice stores a notice with its priority normalized to
// low/medium/high.
func (s *Service) CreateNotice(ctx context.Context, in CommunicationInput) (uint64, error) {
	prio, ok := model.NormalizePriority(in.Priority)
	if !ok {
		return 0, invalid("invalid priority %q (allowed: low, medium, high)", in.Priority)
	}
	if len(in.ToUserIDs) == 0 {
		return 0, invalid("to_user_ids is required")
	}
	return s.createCommunication(ctx, model.CommNotice, prio, in)
}

func (s *Service) SendMessage(ctx context.Context, in CommunicationInput) (uint64, error) {
	if len(in.ToUserIDs) == 0 {
		return 0, invalid("to_user_ids is required")
	}
	return s.createCommunication(ctx, model.CommMessage, model.PriorityMedium, in)
}

// BroadcastAnnouncement addresses every user that is active right now.  The
// recipient list is frozen on the row.
func (s *Service) BroadcastAnnouncement(ctx context.Context, in BroadcastInput) (uint64, error) {
	prio, ok := model.NormalizePriority(in.Priority)
	if !ok {
		return 0, invalid("invalid priority %q (allowed: low, medium, high)", in.Priority)
	}
	active, err := s.users.ActiveIDs(ctx)
	if err != nil {
		return 0, err
	}
	return s.createCommunication(ctx, model.CommAnnouncement, prio, CommunicationInput{
		FromUserID: in.FromUserID,
		ToUserIDs:  active,
		Title:      in.Title,
		Content:    in.Content,
		ProjectID:  in.ProjectID,
	})
}

func (s *Service) createCommunication(ctx context.Context, typ model.CommunicationType, prio model.Priority, in CommunicationInput) (uint64, error) {
	content, err := required("content", in.Content)
	if err != nil {
		return 0, err
	}
	if err := s.userMustExist(ctx, s.users, "from_user_id", in.FromUserID); err != nil {
		return 0, err
	}
	to := model.NewOrderedSet(in.ToUserIDs...)
	if to.Len() > 0 {
		found, err := s.users.ExistingIDs(ctx, to)
		if err != nil {
			return 0, err
		}
		if missing, ok := lo.Find(to, func(id uint64) bool { return !found[id] }); ok {
			return 0, notFound("user %d not found", missing)
		}
	}
	if err := s.optProjectMustExist(ctx, in.ProjectID); err != nil {
		return 0, err
	}
	c := model.Communication{
		Type:         typ,
		Title:        strings.TrimSpace(in.Title),
		Content:      content,
		Priority:     prio,
		FromUserID:   in.FromUserID,
		ToUserIDs:    to,
		ReadBy:       model.IDSet{},
		ProjectID:    in.ProjectID,
		CreationTime: s.nowMillis(),
	}
	if err := s.comms.Create(ctx, &c); err != nil {
		return 0, err
	}
	s.publish(ctx, queue.Event{
		Type:      queue.CommunicationCreated,
		EntityID:  c.ID,
		ActorID:   c.FromUserID,
		ProjectID: c.ProjectID,
		Summary:   string(typ) + " to " + lo.Ternary(to.Len() == 1, "1 recipient", strconv.Itoa(to.Len())+" recipients"),
	})
	return c.ID, nil
}

// MarkAsRead adds userID to the read set.  Repeating the call is a no-op;
// callers outside the recipient set get an AuthorizationError.
func (s *Service) MarkAsRead(ctx context.Context, id, userID uint64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		comms := repository.NewCommunicationRepo(tx)
		c, err := comms.GetByID(ctx, id)
		if err != nil {
			return lift(err, "communication", id)
		}
		if !c.IsRecipient(userID) {
			return forbidden("user %d is not a recipient of communication %d", userID, id)
		}
		readBy, added := c.ReadBy.Add(userID)
		if !added {
			return nil
		}
		return comms.SetReadBy(ctx, id, readBy)
	})
}

func (s *Service) GetCommunication(ctx context.Context, id uint64) (CommunicationView, error) {
	c, err := s.comms.GetByID(ctx, id)
	if err != nil {
		return CommunicationView{}, lift(err, "communication", id)
	}
	views, err := s.communicationViews(ctx, []model.Communication{c}, 0)
	if err != nil {
		return CommunicationView{}, err
	}
	return views[0], nil
}

func (s *Service) DeleteCommunication(ctx context.Context, id uint64) error {
	return lift(s.comms.Delete(ctx, id), "communication", id)
}

// ListNotices returns communications newest first.  Without a type filter
// every kind is returned.
func (s *Service) ListNotices(ctx context.Context, f CommunicationFilter) ([]CommunicationView, error) {
	rf := repository.CommunicationFilter{ProjectID: f.ProjectID}
	var err error
	if f.Type != "" {
		if rf.Type, err = enum("type", f.Type, model.ParseCommunicationType, model.CommunicationTypes); err != nil {
			return nil, err
		}
	}
	if f.Priority != "" {
		p, ok := model.NormalizePriority(f.Priority)
		if !ok {
			return nil, invalid("invalid priority %q (allowed: low, medium, high)", f.Priority)
		}
		rf.Priority = p
	}
	rows, err := s.comms.List(ctx, rf)
	if err != nil {
		return nil, err
	}
	return s.communicationViews(ctx, rows, 0)
}

// ListInbox returns what userID received, newest first, each flagged with
// IsRead for that user.
func (s *Service) ListInbox(ctx context.Context, userID uint64, unreadOnly bool) ([]CommunicationView, error) {
	rows, err := s.comms.List(ctx, repository.CommunicationFilter{Recipient: userID})
	if err != nil {
		return nil, err
	}
	if unreadOnly {
		rows = lo.Filter(rows, func(c model.Communication, _ int) bool { return !c.ReadBy.Contains(userID) })
	}
	return s.communicationViews(ctx, rows, userID)
}

func (s *Service) UnreadCount(ctx context.Context, userID uint64) (int, error) {
	rows, err := s.comms.List(ctx, repository.CommunicationFilter{Recipient: userID})
	if err != nil {
		return 0, err
	}
	return lo.CountBy(rows, func(c model.Communication) bool { return !c.ReadBy.Contains(userID) }), nil
}

func (s *Service) ListSent(ctx context.Context, userID uint64) ([]CommunicationView, error) {
	rows, err := s.comms.List(ctx, repository.CommunicationFilter{Sender: userID})
	if err != nil {
		return nil, err
	}
	return s.communicationViews(ctx, rows, 0)
}

// communicationViews joins sender and project names.  A non-zero reader
// sets IsRead on every view.
func (s *Service) communicationViews(ctx context.Context, rows []model.Communication, reader uint64) ([]CommunicationView, error) {
	var r refs
	for _, c := range rows {
		r.user(c.FromUserID)
		r.optProject(c.ProjectID)
	}
	n, err := s.resolve(ctx, r)
	if err != nil {
		return nil, err
	}
	out := make([]CommunicationView, len(rows))
	for i, c := range rows {
		v := CommunicationView{Communication: c, FromUserName: n.user(c.FromUserID), ProjectName: n.optProject(c.ProjectID)}
		if reader != 0 {
			v.IsRead = ptr(c.ReadBy.Contains(reader))
		}
		out[i] = v
	}
	return out, nil
}
