package domain

import "errors"

// Error kinds. Every rule error returned by the services unwraps to exactly
// one of these, so callers branch with errors.Is.
var (
	ErrAuthenticationRequired = errors.New("Authentication required")
	ErrPermissionDenied       = errors.New("Permission denied")
	ErrNotFound               = errors.New("Not found")
	ErrInvalidState           = errors.New("Invalid state")
	ErrCapacityExceeded       = errors.New("Project has reached the maximum number of volunteers")
	ErrInvalidAmount          = errors.New("Donation amount must be a positive number")
	ErrInvalidInput           = errors.New("Invalid input")
)

type ruleError struct {
	kind error
	msg  string
}

func (e *ruleError) Error() string { return e.msg }
func (e *ruleError) Unwrap() error { return e.kind }

// NewError returns an error with message msg that matches kind under errors.Is.
func NewError(kind error, msg string) error {
	return &ruleError{kind: kind, msg: msg}
}

var (
	ErrProjectNotFound     = NewError(ErrNotFound, "Project not found")
	ErrVolunteerNotFound   = NewError(ErrNotFound, "Volunteer not found")
	ErrApplicationNotFound = NewError(ErrNotFound, "Application not found")
	ErrTaskNotFound        = NewError(ErrNotFound, "Task not found")
	ErrUserNotFound        = NewError(ErrNotFound, "User not found")

	ErrVolunteerRoleRequired = NewError(ErrPermissionDenied, "Only volunteers can perform this action")
	ErrOrganizerRoleRequired = NewError(ErrPermissionDenied, "Only organizers can perform this action")
	ErrNotProjectOwner       = NewError(ErrPermissionDenied, "Only the project organizer can perform this action")
	ErrNotTaskParticipant    = NewError(ErrPermissionDenied, "Only the project organizer or the assigned volunteer can update this task")
	ErrProfileIncomplete     = NewError(ErrPermissionDenied, "Volunteer profile must be completed before applying")

	ErrApplicationNotPending  = NewError(ErrInvalidState, "No pending application found for this volunteer")
	ErrApplicationNotRefused  = NewError(ErrInvalidState, "Only refused applications can be resubmitted")
	ErrReapplyNotAllowed      = NewError(ErrInvalidState, "Re-applying to a project is not allowed")
	ErrProjectClosed          = NewError(ErrInvalidState, "Project is not accepting changes")
	ErrInvalidTransition      = NewError(ErrInvalidState, "Status transition not allowed")
	ErrNegativeHours          = NewError(ErrInvalidState, "Total hours cannot be negative")
	ErrCountersOutOfRange     = NewError(ErrInvalidState, "Project counters are out of range")
	ErrDonationImmutable      = NewError(ErrInvalidState, "Donations cannot be modified once recorded")
	ErrApplicationNotApproved = NewError(ErrInvalidState, "Volunteer is not on the project roster")
	ErrApplicationExists      = NewError(ErrInvalidState, "An application for this project already exists")
	ErrProjectInUse           = NewError(ErrInvalidState, "Projects with approved volunteers or donations cannot be deleted")
)

var kinds = []error{
	ErrAuthenticationRequired,
	ErrPermissionDenied,
	ErrNotFound,
	ErrInvalidState,
	ErrCapacityExceeded,
	ErrInvalidAmount,
	ErrInvalidInput,
}

// KindOf returns the kind sentinel err belongs to, or nil for errors that are
// not rule errors (store failures and the like).
func KindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
