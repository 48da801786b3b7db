package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Domain counters, registered once on the default registry and exposed on
// /metrics next to the HTTP metrics.
var (
	// Applications by outcome: applied, reapplied, approved, refused, removed, rejected_capacity.
	Applications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "helpmate_applications_total",
		Help: "Volunteer application events by outcome",
	}, []string{"outcome"})

	Donations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "helpmate_donations_total",
		Help: "Total number of donations recorded",
	})

	DonationAmount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "helpmate_donation_amount_total",
		Help: "Sum of all recorded donation amounts",
	})

	ProjectTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "helpmate_project_transitions_total",
		Help: "Project status changes made by organizers, by target status",
	}, []string{"status"})

	ProjectsAutoCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "helpmate_projects_auto_completed_total",
		Help: "Projects completed automatically when progress reached 100",
	})

	// Drift found by the reconciler, labelled by the field that disagreed.
	ReconcileDrift = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "helpmate_reconcile_drift_total",
		Help: "Derived fields found out of sync with their source records",
	}, []string{"field"})

	ReconcileRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "helpmate_reconcile_runs_total",
		Help: "Reconciler runs by result",
	}, []string{"result"})
)

// Application outcomes.
const (
	OutcomeApplied          = "applied"
	OutcomeReapplied        = "reapplied"
	OutcomeApproved         = "approved"
	OutcomeRefused          = "refused"
	OutcomeRemoved          = "removed"
	OutcomeRejectedCapacity = "rejected_capacity"
)
