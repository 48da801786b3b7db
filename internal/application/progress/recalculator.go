package progress

import (
	"math"

	"helpmate-backend/internal/domain"
)

// hoursEpsilon absorbs float drift when replacement deltas cancel out.
const hoursEpsilon = 1e-9

// Settle recomputes the stored progress and completes the project when it
// reaches 100. It reports whether the project was auto-completed. Cancelled
// and already completed projects keep their status.
func Settle(project *domain.Project) bool {
	if project.RefreshProgress() != 100 {
		return false
	}
	if !domain.ProjectFlow.CanTransition(project.Status, domain.ProjectCompleted) {
		return false
	}
	project.Status = domain.ProjectCompleted
	return true
}

// OnTaskStatusChange moves task to newStatus and adjusts the project's
// completed-task counter when the task enters or leaves Completed. The
// counter never passes TotalTasks.
func OnTaskStatusChange(project *domain.Project, task *domain.Task, newStatus domain.TaskStatus) (autoCompleted bool) {
	was, now := task.IsCompleted(), newStatus == domain.TaskCompleted
	task.Status = newStatus
	switch {
	case now && !was && project.CompletedTasks < project.TotalTasks:
		project.CompletedTasks++
	case was && !now && project.CompletedTasks > 0:
		project.CompletedTasks--
	}
	return Settle(project)
}

// OnHoursLogged adds delta, which may be negative for a replacement, to the
// project's total hours. A result below zero is rejected and leaves the
// project untouched.
func OnHoursLogged(project *domain.Project, delta float64) error {
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return domain.NewError(domain.ErrInvalidInput, "hours must be a finite number")
	}
	total := project.TotalHours + delta
	if total < 0 {
		if total < -hoursEpsilon {
			return domain.ErrNegativeHours
		}
		total = 0
	}
	project.TotalHours = total
	return nil
}
