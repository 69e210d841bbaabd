package domain

// Role represents user role in the system
type Role string

const (
	RoleEmployee Role = "employee"
	RoleHR       Role = "hr"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleHR, RoleAdmin:
		return true
	}
	return false
}

// CanReviewRegistrations reports whether r may approve or reject registrations
func (r Role) CanReviewRegistrations() bool {
	return r == RoleAdmin || r == RoleHR
}

// RequestStatus is the lifecycle state of a registration request
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// Valid reports whether s is a known status
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Reserved reports whether a request in this state blocks another
// submission for the same email
func (s RequestStatus) Reserved() bool {
	return s == StatusPending || s == StatusApproved
}

// DefaultRejectionReason is recorded when a reviewer gives no reason
const DefaultRejectionReason = "Registration request rejected by administrator"

// NotificationType classifies admin inbox entries
type NotificationType string

const (
	NotificationRegistrationRequest NotificationType = "registration_request"
)

// EmployeeSequence is the name of the sequence employee ids are drawn from
const EmployeeSequence = "employee_id"
