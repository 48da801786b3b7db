package constants

const (
	ViewData           = "view_data"
	ApplyToProject     = "apply_to_project"
	ManageProfile      = "manage_profile"
	CreateProject      = "create_project"
	ManageProject      = "manage_project"
	DecideApplications = "decide_applications"
	ManageTasks        = "manage_tasks"
	UpdateTaskProgress = "update_task_progress"
	Donate             = "donate"
)

// PermissionRoles maps each permission to the roles allowed to perform it.
// Ownership of a specific project is checked by the services, not here.
var PermissionRoles = map[string][]string{
	ViewData:           {Volunteer, Organizer},
	ApplyToProject:     {Volunteer},
	ManageProfile:      {Volunteer},
	CreateProject:      {Organizer},
	ManageProject:      {Organizer},
	DecideApplications: {Organizer},
	ManageTasks:        {Organizer},
	UpdateTaskProgress: {Volunteer, Organizer},
	Donate:             {Volunteer, Organizer},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	roles, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
