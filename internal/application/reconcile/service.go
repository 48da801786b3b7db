package reconcile

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"helpmate-backend/internal/domain"
	"helpmate-backend/internal/infrastructure/cache"
	"helpmate-backend/internal/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const hoursTolerance = 1e-6

// Fields a drift can be reported on.
const (
	FieldTotalDonations    = "total_donations"
	FieldDonationCount     = "donation_count"
	FieldLastDonationAt    = "last_donation_at"
	FieldCurrentVolunteers = "current_volunteers"
	FieldTotalTasks        = "total_tasks"
	FieldCompletedTasks    = "completed_tasks"
	FieldTotalHours        = "total_hours"
	FieldProgress          = "progress"
	FieldVolunteerLists    = "volunteer_lists"
)

// Drift is one derived field that disagrees with its source records.
type Drift struct {
	ProjectID uuid.UUID `json:"project_id"`
	Field     string    `json:"field"`
	Stored    string    `json:"stored"`
	Actual    string    `json:"actual"`
}

// Report summarises one reconciler run.
type Report struct {
	Projects int           `json:"projects"`
	Drift    []Drift       `json:"drift"`
	Repaired bool          `json:"repaired"`
	Took     time.Duration `json:"took"`
}

// Service recomputes every derived project field from source rows and
// reports, and optionally repairs, what has drifted.
type Service struct {
	Store domain.Store
	Cache cache.Cache
}

func NewService(store domain.Store, c cache.Cache) *Service {
	return &Service{Store: store, Cache: c}
}

// Run checks all projects. With repair set, drifted fields are overwritten
// with their recomputed values, one project per unit of work.
func (s *Service) Run(ctx context.Context, repair bool) (*Report, error) {
	start := time.Now()
	projects, err := s.Store.ListProjects(ctx, domain.ProjectFilter{})
	if err != nil {
		metrics.ReconcileRuns.WithLabelValues("error").Inc()
		return nil, err
	}

	report := &Report{Projects: len(projects), Repaired: repair, Drift: []Drift{}}
	for _, p := range projects {
		var drift []Drift
		err := s.Store.Atomically(ctx, func(tx domain.Store) error {
			var err error
			drift, err = checkProject(ctx, tx, p.ProjectID, repair)
			return err
		})
		if err != nil {
			metrics.ReconcileRuns.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("reconcile project %s: %w", p.ProjectID, err)
		}
		report.Drift = append(report.Drift, drift...)
	}
	for _, d := range report.Drift {
		metrics.ReconcileDrift.WithLabelValues(d.Field).Inc()
	}
	if repair && len(report.Drift) > 0 {
		if err := cache.InvalidateStats(ctx, s.Cache); err != nil {
			log.Warn().Err(err).Msg("stats cache invalidation failed")
		}
	}
	report.Took = time.Since(start)
	metrics.ReconcileRuns.WithLabelValues("ok").Inc()

	ev := log.Info()
	if len(report.Drift) > 0 {
		ev = log.Warn()
	}
	ev.Int("projects", report.Projects).Int("drift", len(report.Drift)).Bool("repair", repair).Dur("took", report.Took).Msg("reconcile finished")
	return report, nil
}

func checkProject(ctx context.Context, tx domain.Store, id uuid.UUID, repair bool) ([]Drift, error) {
	project, err := tx.LockProject(ctx, id)
	if err != nil {
		return nil, err
	}
	var drift []Drift
	note := func(field string, stored, actual interface{}) {
		drift = append(drift, Drift{ProjectID: id, Field: field, Stored: fmt.Sprint(stored), Actual: fmt.Sprint(actual)})
	}

	ledger, err := tx.Donations(ctx, id, 0)
	if err != nil {
		return nil, err
	}
	// sum in append order so the result matches the incremental total exactly
	sort.Slice(ledger, func(i, j int) bool { return ledger[i].Sequence < ledger[j].Sequence })
	total, last := domain.LedgerTotals(ledger)
	if project.TotalDonations != total {
		note(FieldTotalDonations, project.TotalDonations, total)
		project.TotalDonations = total
	}
	if project.DonationCount != len(ledger) {
		note(FieldDonationCount, project.DonationCount, len(ledger))
		project.DonationCount = len(ledger)
	}
	if !sameTime(project.LastDonationAt, last) {
		note(FieldLastDonationAt, timeString(project.LastDonationAt), timeString(last))
		project.LastDonationAt = last
	}

	approved, err := tx.Applications(ctx, id, domain.ApplicationApproved)
	if err != nil {
		return nil, err
	}
	if project.CurrentVolunteers != len(approved) {
		note(FieldCurrentVolunteers, project.CurrentVolunteers, len(approved))
		project.CurrentVolunteers = len(approved)
	}

	tasks, err := tx.Tasks(ctx, id)
	if err != nil {
		return nil, err
	}
	completed, hours := 0, 0.0
	for i := range tasks {
		if tasks[i].IsCompleted() {
			completed++
		}
		hours += tasks[i].ActualHours
	}
	if project.TotalTasks != len(tasks) {
		note(FieldTotalTasks, project.TotalTasks, len(tasks))
		project.TotalTasks = len(tasks)
	}
	if project.CompletedTasks != completed {
		note(FieldCompletedTasks, project.CompletedTasks, completed)
		project.CompletedTasks = completed
	}
	if math.Abs(project.TotalHours-hours) > hoursTolerance {
		note(FieldTotalHours, project.TotalHours, hours)
		project.TotalHours = hours
	}
	if want := domain.RecomputeProgress(project.CompletedTasks, project.TotalTasks); project.Progress != want {
		note(FieldProgress, project.Progress, want)
		project.Progress = want
	}

	if repair && len(drift) > 0 {
		if err := tx.SaveProject(ctx, project); err != nil {
			return nil, err
		}
	}

	listDrift, err := checkVolunteerLists(ctx, tx, id, repair)
	if err != nil {
		return nil, err
	}
	for _, d := range listDrift {
		note(FieldVolunteerLists, d.stored, d.actual)
	}
	return drift, nil
}

type listMismatch struct {
	stored, actual string
}

// checkVolunteerLists compares each applicant's reference lists with the
// application record, which is authoritative.
func checkVolunteerLists(ctx context.Context, tx domain.Store, projectID uuid.UUID, repair bool) ([]listMismatch, error) {
	apps, err := tx.Applications(ctx, projectID, "")
	if err != nil {
		return nil, err
	}
	var out []listMismatch
	for _, a := range apps {
		v, err := tx.Volunteer(ctx, a.VolunteerID)
		if errors.Is(err, domain.ErrVolunteerNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		lists := 0
		for _, l := range []domain.RefList{v.PendingProjects, v.ApprovedProjects, v.RefusedProjects} {
			if l.Contains(projectID) {
				lists++
			}
		}
		if got := v.StatusFor(projectID); got == a.Status && lists == 1 {
			continue
		}
		out = append(out, listMismatch{
			stored: fmt.Sprintf("%s:%s", a.VolunteerID, v.StatusFor(projectID)),
			actual: fmt.Sprintf("%s:%s", a.VolunteerID, a.Status),
		})
		if repair {
			v.MoveTo(projectID, a.Status)
			if err := tx.SaveVolunteer(ctx, v); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func timeString(t *time.Time) string {
	if t == nil {
		return "<nil>"
	}
	return t.UTC().Format(time.RFC3339Nano)
}
