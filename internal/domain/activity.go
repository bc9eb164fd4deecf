package domain

import "fmt"

// ActivityType enumerates the domain events that produce notifications.
type ActivityType string

const (
	ActivityMaterialAdded       ActivityType = "material_added"
	ActivityMaterialUsed        ActivityType = "material_used"
	ActivityMaterialTransferred ActivityType = "material_transferred"
	ActivityLaborAdded          ActivityType = "labor_added"
	ActivityStaffAdded          ActivityType = "staff_added"
	ActivityStaffRemoved        ActivityType = "staff_removed"
	ActivityProjectCreated      ActivityType = "project_created"
	ActivityAdminUpdate         ActivityType = "admin_update"
)

// KnownActivityTypes lists every recognized activity type.
var KnownActivityTypes = []ActivityType{
	ActivityMaterialAdded,
	ActivityMaterialUsed,
	ActivityMaterialTransferred,
	ActivityLaborAdded,
	ActivityStaffAdded,
	ActivityStaffRemoved,
	ActivityProjectCreated,
	ActivityAdminUpdate,
}

// Known reports whether the activity type is one of the enumerated
// variants. Unknown types still render, via the generic fallback.
func (t ActivityType) Known() bool {
	switch t {
	case ActivityMaterialAdded, ActivityMaterialUsed, ActivityMaterialTransferred,
		ActivityLaborAdded, ActivityStaffAdded, ActivityStaffRemoved,
		ActivityProjectCreated, ActivityAdminUpdate:
		return true
	}
	return false
}

// Title resolves the display title for an activity type. The strings
// must stay byte-identical to what the app renders today.
func (t ActivityType) Title() string {
	switch t {
	case ActivityMaterialAdded:
		return "📦 Materials Imported"
	case ActivityMaterialUsed:
		return "🔨 Materials Used"
	case ActivityMaterialTransferred:
		return "🚚 Materials Transferred"
	case ActivityLaborAdded:
		return "👷 Labor Logged"
	case ActivityStaffAdded:
		return "👥 Staff Added"
	case ActivityStaffRemoved:
		return "👥 Staff Removed"
	case ActivityProjectCreated:
		return "🏗️ Project Created"
	case ActivityAdminUpdate:
		return "📢 Admin Update"
	}
	return "Activity Update"
}

// verb resolves the body verb phrase for an activity type.
func (t ActivityType) verb() string {
	switch t {
	case ActivityMaterialAdded:
		return "added materials to"
	case ActivityMaterialUsed:
		return "used materials on"
	case ActivityMaterialTransferred:
		return "transferred materials for"
	case ActivityLaborAdded:
		return "logged labor on"
	case ActivityStaffAdded:
		return "added staff to"
	case ActivityStaffRemoved:
		return "removed staff from"
	case ActivityProjectCreated:
		return "created project"
	case ActivityAdminUpdate:
		return "posted an update for"
	}
	return "updated"
}

// FormatBody renders the notification body for an activity. Details
// are appended when present.
func (t ActivityType) FormatBody(staffName, projectName, details string) string {
	actor := staffName
	if actor == "" {
		actor = "Someone"
	}
	target := projectName
	if target == "" {
		target = "a project"
	}
	body := fmt.Sprintf("%s %s %s", actor, t.verb(), target)
	if details != "" {
		body += ": " + details
	}
	return body
}
