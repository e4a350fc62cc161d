package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePriority(t *testing.T) {
	cases := map[string]Priority{
		"Critical": PriorityHigh,
		"URGENT":   PriorityHigh,
		"high":     PriorityHigh,
		" Normal ": PriorityMedium,
		"medium":   PriorityMedium,
		"":         PriorityMedium,
		"Low":      PriorityLow,
	}
	for in, want := range cases {
		got, ok := NormalizePriority(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := NormalizePriority("soon")
	assert.False(t, ok)
}

func TestParseEnumIsExact(t *testing.T) {
	st, ok := ParseProjectStatus("On Hold")
	assert.True(t, ok)
	assert.Equal(t, ProjectOnHold, st)

	_, ok = ParseProjectStatus("on hold")
	assert.False(t, ok)

	r, ok := ParseRole(" manager ")
	assert.True(t, ok)
	assert.Equal(t, RoleManager, r)
}

func TestOrderedSet(t *testing.T) {
	s := NewOrderedSet[uint64](3, 1, 3, 2, 1)
	assert.Equal(t, IDSet{3, 1, 2}, s)

	s, added := s.Add(1)
	assert.False(t, added)
	assert.Equal(t, 3, s.Len())

	s, added = s.Add(9)
	assert.True(t, added)
	assert.Equal(t, IDSet{3, 1, 2, 9}, s)

	s, removed := s.Remove(1)
	assert.True(t, removed)
	assert.Equal(t, IDSet{3, 2, 9}, s)

	_, removed = s.Remove(1)
	assert.False(t, removed)
}

func TestOrderedSetJSON(t *testing.T) {
	var empty RefSet
	b, err := json.Marshal(empty)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))

	var s RefSet
	require.NoError(t, json.Unmarshal([]byte(`["a","b","a"]`), &s))
	assert.Equal(t, RefSet{"a", "b"}, s)

	var scanned IDSet
	require.NoError(t, scanned.Scan([]byte(`[4,4,5]`)))
	assert.Equal(t, IDSet{4, 5}, scanned)
	require.NoError(t, scanned.Scan(nil))
	assert.Equal(t, IDSet{}, scanned)
	assert.Error(t, scanned.Scan(42))
}

func TestNextMilestone(t *testing.T) {
	ms := []ProjectMilestone{
		{ID: 1, DueDate: "2025-01-10", Status: MilestoneCompleted},
		{ID: 2, DueDate: "2025-05-01", Status: MilestonePending},
		{ID: 3, DueDate: "2025-03-01", Status: MilestoneDelayed},
		{ID: 4, DueDate: "2025-03-01", Status: MilestoneInProgress},
	}
	next := NextMilestone(ms)
	require.NotNil(t, next)
	assert.Equal(t, uint64(3), next.ID)

	assert.Nil(t, NextMilestone(ms[:1]))
	assert.Nil(t, NextMilestone(nil))
}

func TestDocumentCount(t *testing.T) {
	p := Project{Drawings: RefSet{"a", "b"}, SafetyCerts: RefSet{"c"}}
	assert.Equal(t, 3, p.DocumentCount())

	docs := p.Documents(DocBOQ)
	require.NotNil(t, docs)
	*docs, _ = docs.Add("boq-1")
	assert.Equal(t, 4, p.DocumentCount())
	assert.Nil(t, p.Documents("photos"))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, Date("2025-03-10"), d)

	d, err = ParseDate("2025-03-10T23:30:00-02:00")
	require.NoError(t, err)
	assert.Equal(t, Date("2025-03-11"), d)

	_, err = ParseDate("10/03/2025")
	assert.Error(t, err)

	assert.True(t, Date("2025-01-31").Before("2025-02-01"))
	assert.False(t, Date("2025-02-01").Before("2025-02-01"))
}

func TestWholeDays(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, 9, WholeDaysUntil("2025-03-20", now))
	assert.Equal(t, 0, WholeDaysUntil("2025-03-10", now))
	assert.Equal(t, 0, WholeDaysUntil("2024-12-31", now))

	day := int64(24 * time.Hour / time.Millisecond)
	assert.Equal(t, 2, WholeDaysBetween(0, 2*day+day/2))
	assert.Equal(t, 0, WholeDaysBetween(5*day, day))
}

func TestPurchaseLineTotal(t *testing.T) {
	l := PurchaseLine{Quantity: 3, EstimatedCost: decimal.RequireFromString("19.99")}
	assert.Equal(t, "59.97", l.LineTotal().StringFixed(2))
}
