package applications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"helpmate-backend/internal/domain"
	"helpmate-backend/internal/infrastructure/database"
	"helpmate-backend/internal/pkg/constants"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls []domain.Application
	err   error
}

func (n *recordingNotifier) NotifyDecision(_ context.Context, _ domain.Project, a domain.Application) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, a)
	return n.err
}

type fixture struct {
	svc       *Service
	store     *database.Store
	notifier  *recordingNotifier
	organizer *domain.Principal
	project   *domain.Project
}

func setup(t *testing.T, maxVolunteers int, policy Policy) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))

	store := database.NewStore(db)
	organizer := &domain.Principal{ID: uuid.New(), Role: constants.Organizer, Fullname: "Org One", Email: "org@example.com"}
	project := &domain.Project{
		OrganizerID:   organizer.ID,
		Title:         "Shelter renovation",
		Status:        domain.ProjectActive,
		Priority:      domain.PriorityHigh,
		MaxVolunteers: maxVolunteers,
	}
	require.NoError(t, store.CreateProject(context.Background(), project))

	notifier := &recordingNotifier{}
	svc := NewService(store, nil, notifier, policy)
	svc.Now = func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) }
	return &fixture{svc: svc, store: store, notifier: notifier, organizer: organizer, project: project}
}

func (f *fixture) volunteer(t *testing.T, complete bool) *domain.Principal {
	t.Helper()
	p := &domain.Principal{ID: uuid.New(), Role: constants.Volunteer, Fullname: "Ana Pop", Email: uuid.NewString() + "@example.com"}
	v := &domain.Volunteer{VolunteerID: p.ID, Fullname: p.Fullname, Email: p.Email}
	if complete {
		v.Phone, v.City, v.Skills = "0712345678", "Cluj", datatypes.JSONSlice[string]{"carpentry"}
	}
	v.RefreshProfileComplete()
	require.NoError(t, f.store.CreateVolunteer(context.Background(), v))
	return p
}

func (f *fixture) reload(t *testing.T) *domain.Project {
	t.Helper()
	p, err := f.store.Project(context.Background(), f.project.ProjectID)
	require.NoError(t, err)
	return p
}

func (f *fixture) volunteerDoc(t *testing.T, id uuid.UUID) *domain.Volunteer {
	t.Helper()
	v, err := f.store.Volunteer(context.Background(), id)
	require.NoError(t, err)
	return v
}

func assertExclusive(t *testing.T, v *domain.Volunteer, projectID uuid.UUID) {
	t.Helper()
	n := 0
	for _, l := range []domain.RefList{v.PendingProjects, v.ApprovedProjects, v.RefusedProjects} {
		if l.Contains(projectID) {
			n++
		}
	}
	assert.LessOrEqual(t, n, 1, "project id in more than one list")
}

func TestApply_CreatesPendingRecord(t *testing.T) {
	f := setup(t, 3, Policy{CheckCapacityOnApply: true})
	ctx := context.Background()
	vol := f.volunteer(t, true)

	app, created, err := f.svc.Apply(ctx, vol, f.project.ProjectID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.ApplicationPending, app.Status)
	assert.Equal(t, "Ana Pop", app.ApplicantName)
	assert.Equal(t, vol.Email, app.ApplicantEmail)

	v := f.volunteerDoc(t, vol.ID)
	assert.True(t, v.PendingProjects.Contains(f.project.ProjectID))
	assertExclusive(t, v, f.project.ProjectID)
}

func TestApply_IsIdempotent(t *testing.T) {
	f := setup(t, 3, Policy{CheckCapacityOnApply: true})
	ctx := context.Background()
	vol := f.volunteer(t, true)

	first, created, err := f.svc.Apply(ctx, vol, f.project.ProjectID)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := f.svc.Apply(ctx, vol, f.project.ProjectID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ApplicationID, second.ApplicationID)
	assert.Equal(t, domain.ApplicationPending, second.Status)

	all, err := f.store.Applications(ctx, f.project.ProjectID, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestApply_ReturnsTerminalRecordUnchanged(t *testing.T) {
	f := setup(t, 3, Policy{})
	ctx := context.Background()
	vol := f.volunteer(t, true)

	_, _, err := f.svc.Apply(ctx, vol, f.project.ProjectID)
	require.NoError(t, err)
	_, err = f.svc.Decide(ctx, f.organizer, f.project.ProjectID, vol.ID, domain.DecisionRefuse)
	require.NoError(t, err)

	app, created, err := f.svc.Apply(ctx, vol, f.project.ProjectID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, domain.ApplicationRefused, app.Status)
	assert.Equal(t, domain.ApplicationRefused, f.volunteerDoc(t, vol.ID).StatusFor(f.project.ProjectID))
}

func TestApply_Failures(t *testing.T) {
	f := setup(t, 1, Policy{CheckCapacityOnApply: true})
	ctx := context.Background()

	_, _, err := f.svc.Apply(ctx, nil, f.project.ProjectID)
	assert.ErrorIs(t, err, domain.ErrAuthenticationRequired)

	_, _, err = f.svc.Apply(ctx, f.organizer, f.project.ProjectID)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	vol := f.volunteer(t, true)
	_, _, err = f.svc.Apply(ctx, vol, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	incomplete := f.volunteer(t, false)
	_, _, err = f.svc.Apply(ctx, incomplete, f.project.ProjectID)
	assert.ErrorIs(t, err, domain.ErrProfileIncomplete)

	f.project.CurrentVolunteers = 1
	require.NoError(t, f.store.SaveProject(ctx, f.project))
	_, _, err = f.svc.Apply(ctx, vol, f.project.ProjectID)
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)

	_, err = f.store.Application(ctx, f.project.ProjectID, vol.ID)
	assert.ErrorIs(t, err, domain.ErrApplicationNotFound)
	assert.Empty(t, f.volunteerDoc(t, vol.ID).PendingProjects)
}

func TestApply_CapacityCheckCanBeDeferred(t *testing.T) {
	f := setup(t, 1, Policy{CheckCapacityOnApply: false})
	ctx := context.Background()
	f.project.CurrentVolunteers = 1
	require.NoError(t, f.store.SaveProject(ctx, f.project))

	vol := f.volunteer(t, true)
	_, created, err := f.svc.Apply(ctx, vol, f.project.ProjectID)
	require.NoError(t, err)
	assert.True(t, created)

	_, err = f.svc.Decide(ctx, f.organizer, f.project.ProjectID, vol.ID, domain.DecisionApprove)
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
}

func TestApply_ClosedProject(t *testing.T) {
	f := setup(t, 3, Policy{})
	ctx := context.Background()
	f.project.Status = domain.ProjectCancelled
	require.NoError(t, f.store.SaveProject(ctx, f.project))

	_, _, err := f.svc.Apply(ctx, f.volunteer(t, true), f.project.ProjectID)
	assert.ErrorIs(t, err, domain.ErrProjectClosed)
}

func TestDecide_ApproveTransition(t *testing.T) {
	f := setup(t, 3, Policy{CheckCapacityOnApply: true})
	ctx := context.Background()
	vol := f.volunteer(t, true)

	status, err := f.svc.StatusFor(ctx, vol, f.project.ProjectID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationNone, status)

	_, _, err = f.svc.Apply(ctx, vol, f.project.ProjectID)
	require.NoError(t, err)
	status, err = f.svc.StatusFor(ctx, vol, f.project.ProjectID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationPending, status)

	app, err := f.svc.Decide(ctx, f.organizer, f.project.ProjectID, vol.ID, domain.DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationApproved, app.Status)
	require.NotNil(t, app.DecidedBy)
	assert.Equal(t, f.organizer.ID, *app.DecidedBy)

	project := f.reload(t)
	assert.Equal(t, 1, project.CurrentVolunteers)

	v := f.volunteerDoc(t, vol.ID)
	assert.False(t, v.PendingProjects.Contains(f.project.ProjectID))
	assert.True(t, v.ApprovedProjects.Contains(f.project.ProjectID))
	assertExclusive(t, v, f.project.ProjectID)

	roster, err := f.svc.Roster(ctx, f.organizer, f.project.ProjectID)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, vol.ID, roster[0].VolunteerID)

	pending, err := f.svc.PendingRequests(ctx, f.organizer, f.project.ProjectID)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.Len(t, f.notifier.calls, 1)
	assert.Equal(t, domain.ApplicationApproved, f.notifier.calls[0].Status)
}

func TestDecide_Refuse(t *testing.T) {
	f := setup(t, 3, Policy{})
	ctx := context.Background()
	vol := f.volunteer(t, true)
	_, _, err := f.svc.Apply(ctx, vol, f.project.ProjectID)
	require.NoError(t, err)

	app, err := f.svc.Decide(ctx, f.organizer, f.project.ProjectID, vol.ID, domain.DecisionRefuse)
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationRefused, app.Status)

	project := f.reload(t)
	assert.Equal(t, 0, project.CurrentVolunteers)
	v := f.volunteerDoc(t, vol.ID)
	assert.True(t, v.RefusedProjects.Contains(f.project.ProjectID))
	assertExclusive(t, v, f.project.ProjectID)

	roster, err := f.store.Roster(ctx, f.project.ProjectID)
	require.NoError(t, err)
	assert.Empty(t, roster)
}

func TestDecide_CapacityExceededLeavesStateUnchanged(t *testing.T) {
	f := setup(t, 2, Policy{CheckCapacityOnApply: false})
	ctx := context.Background()
	vol := f.volunteer(t, true)
	_, _, err := f.svc.Apply(ctx, vol, f.project.ProjectID)
	require.NoError(t, err)

	f.project.CurrentVolunteers = 2
	require.NoError(t, f.store.SaveProject(ctx, f.project))

	_, err = f.svc.Decide(ctx, f.organizer, f.project.ProjectID, vol.ID, domain.DecisionApprove)
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)

	project := f.reload(t)
	assert.Equal(t, 2, project.CurrentVolunteers)
	app, err := f.store.Application(ctx, f.project.ProjectID, vol.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationPending, app.Status)
	assert.True(t, f.volunteerDoc(t, vol.ID).PendingProjects.Contains(f.project.ProjectID))
	assert.Empty(t, f.notifier.calls)
}

func TestDecide_Failures(t *testing.T) {
	f := setup(t, 3, Policy{})
	ctx := context.Background()
	vol := f.volunteer(t, true)

	_, err := f.svc.Decide(ctx, f.organizer, f.project.ProjectID, vol.ID, domain.DecisionApprove)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, _, err = f.svc.Apply(ctx, vol, f.project.ProjectID)
	require.NoError(t, err)

	other := &domain.Principal{ID: uuid.New(), Role: constants.Organizer}
	_, err = f.svc.Decide(ctx, other, f.project.ProjectID, vol.ID, domain.DecisionApprove)
	assert.ErrorIs(t, err, domain.ErrNotProjectOwner)

	_, err = f.svc.Decide(ctx, vol, f.project.ProjectID, vol.ID, domain.DecisionApprove)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	_, err = f.svc.Decide(ctx, nil, f.project.ProjectID, vol.ID, domain.DecisionApprove)
	assert.ErrorIs(t, err, domain.ErrAuthenticationRequired)

	_, err = f.svc.Decide(ctx, f.organizer, f.project.ProjectID, vol.ID, domain.Decision("maybe"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.Decide(ctx, f.organizer, f.project.ProjectID, vol.ID, domain.DecisionApprove)
	require.NoError(t, err)
	_, err = f.svc.Decide(ctx, f.organizer, f.project.ProjectID, vol.ID, domain.DecisionRefuse)
	assert.ErrorIs(t, err, domain.ErrApplicationNotPending)

	project := f.reload(t)
	assert.Equal(t, 1, project.CurrentVolunteers)
}

func TestDecide_NotifierFailureIsNotSurfaced(t *testing.T) {
	f := setup(t, 3, Policy{})
	f.notifier.err = errors.New("smtp down")
	ctx := context.Background()
	vol := f.volunteer(t, true)
	_, _, err := f.svc.Apply(ctx, vol, f.project.ProjectID)
	require.NoError(t, err)

	_, err = f.svc.Decide(ctx, f.organizer, f.project.ProjectID, vol.ID, domain.DecisionApprove)
	assert.NoError(t, err)
}

func TestReapply(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled by policy", func(t *testing.T) {
		f := setup(t, 3, Policy{AllowReapply: false})
		_, err := f.svc.Reapply(ctx, f.volunteer(t, true), f.project.ProjectID)
		assert.ErrorIs(t, err, domain.ErrReapplyNotAllowed)
	})

	t.Run("only refused records", func(t *testing.T) {
		f := setup(t, 3, Policy{AllowReapply: true})
		vol := f.volunteer(t, true)
		_, err := f.svc.Reapply(ctx, vol, f.project.ProjectID)
		assert.ErrorIs(t, err, domain.ErrApplicationNotFound)

		_, _, err = f.svc.Apply(ctx, vol, f.project.ProjectID)
		require.NoError(t, err)
		_, err = f.svc.Reapply(ctx, vol, f.project.ProjectID)
		assert.ErrorIs(t, err, domain.ErrApplicationNotRefused)
	})

	t.Run("refused back to pending", func(t *testing.T) {
		f := setup(t, 3, Policy{AllowReapply: true})
		vol := f.volunteer(t, true)
		_, _, err := f.svc.Apply(ctx, vol, f.project.ProjectID)
		require.NoError(t, err)
		_, err = f.svc.Decide(ctx, f.organizer, f.project.ProjectID, vol.ID, domain.DecisionRefuse)
		require.NoError(t, err)

		app, err := f.svc.Reapply(ctx, vol, f.project.ProjectID)
		require.NoError(t, err)
		assert.Equal(t, domain.ApplicationPending, app.Status)
		assert.Nil(t, app.DecidedAt)

		v := f.volunteerDoc(t, vol.ID)
		assert.True(t, v.PendingProjects.Contains(f.project.ProjectID))
		assert.False(t, v.RefusedProjects.Contains(f.project.ProjectID))
		assertExclusive(t, v, f.project.ProjectID)

		all, err := f.store.Applications(ctx, f.project.ProjectID, "")
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func TestPendingRequests_OwnerOnly(t *testing.T) {
	f := setup(t, 3, Policy{})
	ctx := context.Background()
	a, b := f.volunteer(t, true), f.volunteer(t, true)
	_, _, err := f.svc.Apply(ctx, a, f.project.ProjectID)
	require.NoError(t, err)
	_, _, err = f.svc.Apply(ctx, b, f.project.ProjectID)
	require.NoError(t, err)

	pending, err := f.svc.PendingRequests(ctx, f.organizer, f.project.ProjectID)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = f.svc.PendingRequests(ctx, &domain.Principal{ID: uuid.New(), Role: constants.Organizer}, f.project.ProjectID)
	assert.ErrorIs(t, err, domain.ErrNotProjectOwner)
}

// racingStore simulates a concurrent writer: outside the unit of work the
// pair already has a record, and writes inside it fail as configured.
type racingStore struct {
	domain.Store
	inTx             bool
	existing         *domain.Application
	createErr        error
	saveVolunteerErr error
}

func (r *racingStore) Atomically(ctx context.Context, fn func(tx domain.Store) error) error {
	return r.Store.Atomically(ctx, func(tx domain.Store) error {
		return fn(&racingStore{Store: tx, inTx: true, existing: r.existing, createErr: r.createErr, saveVolunteerErr: r.saveVolunteerErr})
	})
}

func (r *racingStore) Application(ctx context.Context, projectID, volunteerID uuid.UUID) (*domain.Application, error) {
	if !r.inTx {
		return r.existing, nil
	}
	return r.Store.Application(ctx, projectID, volunteerID)
}

func (r *racingStore) CreateApplication(ctx context.Context, a *domain.Application) error {
	if r.createErr != nil {
		return r.createErr
	}
	return r.Store.CreateApplication(ctx, a)
}

func (r *racingStore) SaveVolunteer(ctx context.Context, v *domain.Volunteer) error {
	if r.saveVolunteerErr != nil {
		return r.saveVolunteerErr
	}
	return r.Store.SaveVolunteer(ctx, v)
}

func TestApply_LostRaceReturnsWinningRecord(t *testing.T) {
	f := setup(t, 3, Policy{})
	vol := f.volunteer(t, true)
	winner := &domain.Application{ApplicationID: uuid.New(), ProjectID: f.project.ProjectID, VolunteerID: vol.ID, Status: domain.ApplicationPending}
	f.svc.Store = &racingStore{Store: f.store, existing: winner, createErr: domain.ErrApplicationExists}

	app, created, err := f.svc.Apply(context.Background(), vol, f.project.ProjectID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, winner.ApplicationID, app.ApplicationID)
}

func TestApply_StoreFailureIsNotMasked(t *testing.T) {
	f := setup(t, 3, Policy{})
	vol := f.volunteer(t, true)
	diskFull := errors.New("disk full")
	existing := &domain.Application{ApplicationID: uuid.New(), ProjectID: f.project.ProjectID, VolunteerID: vol.ID, Status: domain.ApplicationPending}
	f.svc.Store = &racingStore{Store: f.store, existing: existing, saveVolunteerErr: diskFull}

	app, created, err := f.svc.Apply(context.Background(), vol, f.project.ProjectID)
	assert.ErrorIs(t, err, diskFull)
	assert.Nil(t, app)
	assert.False(t, created)

	_, err = f.store.Application(context.Background(), f.project.ProjectID, vol.ID)
	assert.ErrorIs(t, err, domain.ErrApplicationNotFound)
}

func TestCreateApplication_DuplicatePair(t *testing.T) {
	f := setup(t, 3, Policy{})
	ctx := context.Background()
	vol := f.volunteer(t, true)
	_, _, err := f.svc.Apply(ctx, vol, f.project.ProjectID)
	require.NoError(t, err)

	err = f.store.CreateApplication(ctx, &domain.Application{
		ProjectID: f.project.ProjectID, VolunteerID: vol.ID, Status: domain.ApplicationPending, AppliedAt: time.Now(),
	})
	assert.ErrorIs(t, err, domain.ErrApplicationExists)
}

func TestRemoveVolunteer(t *testing.T) {
	f := setup(t, 2, Policy{CheckCapacityOnApply: true})
	ctx := context.Background()
	vol, pending := f.volunteer(t, true), f.volunteer(t, true)
	for _, v := range []*domain.Principal{vol, pending} {
		_, _, err := f.svc.Apply(ctx, v, f.project.ProjectID)
		require.NoError(t, err)
	}
	_, err := f.svc.Decide(ctx, f.organizer, f.project.ProjectID, vol.ID, domain.DecisionApprove)
	require.NoError(t, err)
	require.NoError(t, f.store.CreateTask(ctx, &domain.Task{ProjectID: f.project.ProjectID, Title: "Sort boxes", AssignedVolunteerID: &vol.ID}))

	other := &domain.Principal{ID: uuid.New(), Role: constants.Organizer}
	assert.ErrorIs(t, f.svc.RemoveVolunteer(ctx, other, f.project.ProjectID, vol.ID), domain.ErrNotProjectOwner)
	assert.ErrorIs(t, f.svc.RemoveVolunteer(ctx, vol, f.project.ProjectID, vol.ID), domain.ErrOrganizerRoleRequired)
	assert.ErrorIs(t, f.svc.RemoveVolunteer(ctx, f.organizer, f.project.ProjectID, pending.ID), domain.ErrApplicationNotApproved)
	assert.ErrorIs(t, f.svc.RemoveVolunteer(ctx, f.organizer, f.project.ProjectID, uuid.New()), domain.ErrApplicationNotApproved)

	require.NoError(t, f.svc.RemoveVolunteer(ctx, f.organizer, f.project.ProjectID, vol.ID))

	assert.Equal(t, 0, f.reload(t).CurrentVolunteers)
	roster, err := f.svc.Roster(ctx, f.organizer, f.project.ProjectID)
	require.NoError(t, err)
	assert.Empty(t, roster)
	status, err := f.svc.StatusFor(ctx, vol, f.project.ProjectID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationNone, status)
	assertExclusive(t, f.volunteerDoc(t, vol.ID), f.project.ProjectID)

	tasks, err := f.store.Tasks(ctx, f.project.ProjectID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Nil(t, tasks[0].AssignedVolunteerID)

	// the volunteer may apply again
	app, created, err := f.svc.Apply(ctx, vol, f.project.ProjectID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.ApplicationPending, app.Status)
}
