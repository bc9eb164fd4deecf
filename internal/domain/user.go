package domain

// User is the viewer identity this subsystem reads from the device
// session blob. It is consumed read-only: login and profile management
// live elsewhere in the app.
type User struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	ClientID   string   `json:"client_id"`
	UserType   UserType `json:"user_type"`
	ProjectIDs []string `json:"project_ids,omitempty"`
}

// IsAdmin reports whether the viewer sees all client activity.
func (u *User) IsAdmin() bool {
	return u.UserType == UserTypeAdmin
}

// CanSeeProject reports whether the viewer's feed may include activity
// for the given project. Admins see every project under their client;
// staff only the projects they are assigned to. Records with no
// project id (e.g. client-wide admin updates) are visible to everyone.
func (u *User) CanSeeProject(projectID string) bool {
	if u.IsAdmin() || projectID == "" {
		return true
	}
	for _, id := range u.ProjectIDs {
		if id == projectID {
			return true
		}
	}
	return false
}
