package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/fieldops/internal/model"
)

func TestCreateProjectDefaultsAndRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.user(t, "admin@site.test", "admin")

	id, err := f.svc.CreateProject(ctx, ProjectInput{
		Name:      "Riverside Tower",
		ProjectID: "RT-001",
		Client:    model.ClientInfo{Name: "Acme Holdings"},
		Location:  "Pier 4",
		StartDate: "2025-01-01",
		EndDate:   "2025-12-31",
		Budget:    decimal.RequireFromString("500000"),
		Drawings:  []string{"d1", "d2", "d1"},
		CreatedBy: admin,
	})
	require.NoError(t, err)

	got, err := f.svc.GetProject(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Riverside Tower", got.Name)
	assert.Equal(t, "RT-001", got.ProjectID)
	assert.Equal(t, "Acme Holdings", got.Client.Name)
	assert.Equal(t, model.Date("2025-01-01"), got.StartDate)
	assert.Equal(t, model.Date("2025-12-31"), got.EndDate)
	assert.True(t, decimal.RequireFromString("500000").Equal(got.Budget))
	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, model.ProjectPlanning, got.Status)
	assert.Equal(t, model.RefSet{"d1", "d2"}, got.Drawings)
	assert.Equal(t, "admin", got.CreatedByName)
	assert.Empty(t, got.Assignments)
	assert.Empty(t, got.Milestones)
}

func TestCreateProjectValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.user(t, "admin@site.test", "admin")

	cases := map[string]ProjectInput{
		"missing name":     {StartDate: "2025-01-01", EndDate: "2025-02-01", CreatedBy: admin},
		"end before start": {Name: "x", StartDate: "2025-02-01", EndDate: "2025-01-01", CreatedBy: admin},
		"bad date":         {Name: "x", StartDate: "01/02/2025", EndDate: "2025-01-01", CreatedBy: admin},
		"bad status":       {Name: "x", StartDate: "2025-01-01", EndDate: "2025-02-01", Status: "Paused", CreatedBy: admin},
		"negative budget":  {Name: "x", StartDate: "2025-01-01", EndDate: "2025-02-01", Budget: decimal.NewFromInt(-1), CreatedBy: admin},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CreateProject(ctx, in)
			assert.True(t, isValidation(err), "got %v", err)
		})
	}

	_, err := f.svc.CreateProject(ctx, ProjectInput{Name: "x", StartDate: "2025-01-01", EndDate: "2025-02-01", CreatedBy: 999})
	assert.True(t, isNotFound(err), "got %v", err)
}

func TestUpdateProjectKeepsRangeValid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.user(t, "admin@site.test", "admin")
	id := f.project(t, admin, "2025-01-01", "2025-06-30")

	early := "2024-12-01"
	_, err := f.svc.UpdateProject(ctx, id, ProjectPatch{EndDate: &early})
	assert.True(t, isValidation(err), "got %v", err)

	active := "Active"
	p, err := f.svc.UpdateProject(ctx, id, ProjectPatch{Status: &active})
	require.NoError(t, err)
	assert.Equal(t, model.ProjectActive, p.Status)
	assert.Equal(t, model.Date("2025-06-30"), p.EndDate)
}

func TestDeleteMissingProject(t *testing.T) {
	f := newFixture(t)
	assert.True(t, isNotFound(f.svc.DeleteProject(context.Background(), 42)))
}

func TestProjectDocumentsAreASet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.user(t, "admin@site.test", "admin")
	id := f.project(t, admin, "2025-01-01", "2025-06-30")

	refs, err := f.svc.AddProjectDocument(ctx, id, "drawings", "ref-1")
	require.NoError(t, err)
	assert.Equal(t, model.RefSet{"ref-1"}, refs)

	refs, err = f.svc.AddProjectDocument(ctx, id, "drawings", "ref-1")
	require.NoError(t, err)
	assert.Equal(t, model.RefSet{"ref-1"}, refs)

	_, err = f.svc.AddProjectDocument(ctx, id, "safetyCerts", "cert-9")
	require.NoError(t, err)

	st, err := f.svc.GetProjectDashboardStats(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, st.DocumentCount)

	refs, err = f.svc.RemoveProjectDocument(ctx, id, "drawings", "ref-1")
	require.NoError(t, err)
	assert.Empty(t, refs)

	_, err = f.svc.RemoveProjectDocument(ctx, id, "drawings", "ref-1")
	assert.True(t, isNotFound(err), "got %v", err)

	_, err = f.svc.AddProjectDocument(ctx, id, "photos", "p1")
	assert.True(t, isValidation(err), "got %v", err)
}

type fakeObjects map[string]bool

func (o fakeObjects) Exists(_ context.Context, ref string) (bool, error) { return o[ref], nil }

func TestProjectDocumentMustExistInStore(t *testing.T) {
	f := newFixture(t, WithObjectStore(fakeObjects{"stored": true}))
	ctx := context.Background()
	admin := f.user(t, "admin@site.test", "admin")
	id := f.project(t, admin, "2025-01-01", "2025-06-30")

	_, err := f.svc.AddProjectDocument(ctx, id, "boq", "missing")
	assert.True(t, isNotFound(err), "got %v", err)

	refs, err := f.svc.AddProjectDocument(ctx, id, "boq", "stored")
	require.NoError(t, err)
	assert.Equal(t, model.RefSet{"stored"}, refs)
}

func TestDashboardStatsDays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.user(t, "admin@site.test", "admin")

	// now is 2025-03-10T10:30Z
	running := f.project(t, admin, "2025-03-01", "2025-03-20")
	st, err := f.svc.GetProjectDashboardStats(ctx, running)
	require.NoError(t, err)
	assert.Equal(t, 9, st.DaysRemaining)
	assert.Equal(t, 9, st.DaysElapsed)
	assert.Equal(t, 19, st.TotalDays)
	assert.Equal(t, "USD", st.Currency)

	finished := f.project(t, admin, "2024-01-01", "2024-02-01")
	st, err = f.svc.GetProjectDashboardStats(ctx, finished)
	require.NoError(t, err)
	assert.Equal(t, 0, st.DaysRemaining)

	future := f.project(t, admin, "2026-01-01", "2026-02-01")
	st, err = f.svc.GetProjectDashboardStats(ctx, future)
	require.NoError(t, err)
	assert.Equal(t, 0, st.DaysElapsed)
}

func TestMilestonesNextAndProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.user(t, "admin@site.test", "admin")
	pid := f.project(t, admin, "2025-01-01", "2025-12-31")

	mk := func(title, due, status string) uint64 {
		id, err := f.svc.CreateProjectMilestone(ctx, MilestoneInput{ProjectID: pid, Title: title, DueDate: due, Status: status})
		require.NoError(t, err)
		return id
	}
	mk("Foundations", "2025-02-01", "Completed")
	frame := mk("Frame", "2025-04-01", "In Progress")
	mk("Roof", "2025-06-01", "")

	next, err := f.svc.GetNextMilestone(ctx, pid)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, frame, next.ID)

	st, err := f.svc.GetProjectDashboardStats(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, 3, st.MilestoneCount)
	assert.Equal(t, 1, st.CompletedMilestones)
	assert.Equal(t, 33, st.MilestoneProgress)
	require.NotNil(t, st.NextMilestone)
	assert.Equal(t, "Frame", st.NextMilestone.Title)
}

func TestNextMilestoneNilWhenAllCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.user(t, "admin@site.test", "admin")
	pid := f.project(t, admin, "2025-01-01", "2025-12-31")

	_, err := f.svc.CreateProjectMilestone(ctx, MilestoneInput{ProjectID: pid, Title: "Only", DueDate: "2025-02-01", Status: "Completed"})
	require.NoError(t, err)

	next, err := f.svc.GetNextMilestone(ctx, pid)
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestCompletingMilestoneStampsDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.user(t, "admin@site.test", "admin")
	pid := f.project(t, admin, "2025-01-01", "2025-12-31")

	id, err := f.svc.CreateProjectMilestone(ctx, MilestoneInput{ProjectID: pid, Title: "Slab", DueDate: "2025-03-15"})
	require.NoError(t, err)

	done := "Completed"
	m, err := f.svc.UpdateProjectMilestone(ctx, id, MilestonePatch{Status: &done})
	require.NoError(t, err)
	require.NotNil(t, m.CompletedDate)
	assert.Equal(t, model.Date("2025-03-10"), *m.CompletedDate)

	explicit := "2025-03-08"
	m, err = f.svc.UpdateProjectMilestone(ctx, id, MilestonePatch{CompletedDate: &explicit})
	require.NoError(t, err)
	assert.Equal(t, model.Date("2025-03-08"), *m.CompletedDate)
}

func TestAssignmentsOutliveTheirProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.user(t, "admin@site.test", "admin")
	worker := f.user(t, "worker@site.test", "staff")
	pid := f.project(t, admin, "2025-01-01", "2025-12-31")

	_, err := f.svc.CreateProjectAssignment(ctx, AssignmentInput{ProjectID: pid, Role: "Site Engineer", UserID: &worker})
	require.NoError(t, err)
	_, err = f.svc.CreateProjectAssignment(ctx, AssignmentInput{ProjectID: pid, Role: "Surveyor", Name: "External Co", Contact: "555-0100"})
	require.NoError(t, err)

	_, err = f.svc.CreateProjectAssignment(ctx, AssignmentInput{ProjectID: pid, Role: "Nobody"})
	assert.True(t, isValidation(err), "got %v", err)

	views, err := f.svc.ListProjectAssignments(ctx, pid)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "Harbour Bridge Retrofit", views[0].ProjectName)

	require.NoError(t, f.svc.DeleteProject(ctx, pid))

	views, err = f.svc.ListProjectAssignments(ctx, 0)
	require.NoError(t, err)
	require.Len(t, views, 2)
	for _, v := range views {
		assert.Equal(t, model.UnknownProject, v.ProjectName)
	}
}
