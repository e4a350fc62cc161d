package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/fieldops/internal/model"
	"github.com/iliyamo/fieldops/internal/queue"
)

func TestNoticePriorityIsNormalized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	from := f.user(t, "pm@site.test", "manager")
	to := f.user(t, "crew@site.test", "staff")

	cases := map[string]model.Priority{
		"Critical": model.PriorityHigh,
		"urgent":   model.PriorityHigh,
		"Low":      model.PriorityLow,
		"Normal":   model.PriorityMedium,
		"":         model.PriorityMedium,
	}
	for raw, want := range cases {
		id, err := f.svc.CreateNotice(ctx, CommunicationInput{FromUserID: from, ToUserIDs: []uint64{to}, Title: "t", Content: "c", Priority: raw})
		require.NoError(t, err, raw)
		got, err := f.svc.GetCommunication(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Priority, raw)
	}

	_, err := f.svc.CreateNotice(ctx, CommunicationInput{FromUserID: from, ToUserIDs: []uint64{to}, Content: "c", Priority: "whenever"})
	assert.True(t, isValidation(err), "got %v", err)
}

func TestNoticeRejectsUnknownRecipient(t *testing.T) {
	f := newFixture(t)
	from := f.user(t, "pm@site.test", "manager")

	_, err := f.svc.CreateNotice(context.Background(), CommunicationInput{FromUserID: from, ToUserIDs: []uint64{from, 77}, Content: "c"})
	assert.True(t, isNotFound(err), "got %v", err)
}

func TestMarkAsReadIsIdempotentAndRecipientOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	from := f.user(t, "pm@site.test", "manager")
	a := f.user(t, "a@site.test", "staff")
	b := f.user(t, "b@site.test", "staff")
	outsider := f.user(t, "out@site.test", "staff")

	id, err := f.svc.SendMessage(ctx, CommunicationInput{FromUserID: from, ToUserIDs: []uint64{a, b, a}, Content: "pour at 7"})
	require.NoError(t, err)

	require.NoError(t, f.svc.MarkAsRead(ctx, id, a))
	require.NoError(t, f.svc.MarkAsRead(ctx, id, a))

	err = f.svc.MarkAsRead(ctx, id, outsider)
	assert.True(t, isForbidden(err), "got %v", err)

	got, err := f.svc.GetCommunication(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.IDSet{a, b}, got.ToUserIDs)
	assert.Equal(t, model.IDSet{a}, got.ReadBy)
	assert.Equal(t, model.PriorityMedium, got.Priority)
	assert.Equal(t, "pm", got.FromUserName)

	err = f.svc.MarkAsRead(ctx, 999, a)
	assert.True(t, isNotFound(err), "got %v", err)
}

func TestBroadcastFreezesActiveUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "u1@site.test", "manager")
	u2 := f.user(t, "u2@site.test", "staff")
	gone := f.user(t, "gone@site.test", "staff")
	inactive := false
	_, err := f.svc.UpdateUser(ctx, gone, UserPatch{IsActive: &inactive}, 4)
	require.NoError(t, err)

	id, err := f.svc.BroadcastAnnouncement(ctx, BroadcastInput{FromUserID: u1, Title: "Site closed", Content: "Storm warning", Priority: "Critical"})
	require.NoError(t, err)

	got, err := f.svc.GetCommunication(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.CommAnnouncement, got.Type)
	assert.Equal(t, model.IDSet{u1, u2}, got.ToUserIDs)
	assert.Empty(t, got.ReadBy)
	assert.Equal(t, model.PriorityHigh, got.Priority)

	// users added later do not receive it
	late := f.user(t, "late@site.test", "staff")
	inbox, err := f.svc.ListInbox(ctx, late, false)
	require.NoError(t, err)
	assert.Empty(t, inbox)

	evs := f.events.ofType(queue.CommunicationCreated)
	require.Len(t, evs, 1)
	assert.Equal(t, id, evs[0].EntityID)
}

func TestInboxUnreadAndSent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	from := f.user(t, "pm@site.test", "manager")
	to := f.user(t, "crew@site.test", "staff")

	first, err := f.svc.SendMessage(ctx, CommunicationInput{FromUserID: from, ToUserIDs: []uint64{to}, Content: "one"})
	require.NoError(t, err)
	_, err = f.svc.SendMessage(ctx, CommunicationInput{FromUserID: from, ToUserIDs: []uint64{to}, Content: "two"})
	require.NoError(t, err)

	n, err := f.svc.UnreadCount(ctx, to)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, f.svc.MarkAsRead(ctx, first, to))

	n, err = f.svc.UnreadCount(ctx, to)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	unread, err := f.svc.ListInbox(ctx, to, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "two", unread[0].Content)
	require.NotNil(t, unread[0].IsRead)
	assert.False(t, *unread[0].IsRead)

	sent, err := f.svc.ListSent(ctx, from)
	require.NoError(t, err)
	assert.Len(t, sent, 2)
}

func TestMessageRequiresRecipients(t *testing.T) {
	f := newFixture(t)
	from := f.user(t, "pm@site.test", "manager")

	_, err := f.svc.SendMessage(context.Background(), CommunicationInput{FromUserID: from, Content: "hello"})
	assert.True(t, isValidation(err), "got %v", err)
}
