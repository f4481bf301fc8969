package auth

// Destination is a landing view path.
type Destination string

const (
	DestinationLogin               Destination = "/login"
	DestinationAdminPanel          Destination = "/admin"
	DestinationCustomerDashboard   Destination = "/customer/dashboard"
	DestinationContractorDashboard Destination = "/contractor/dashboard"
	DestinationCalendar            Destination = "/calendar"
)

// Route maps an identity to its landing destination.
// It is total: roles without a landing view, and unknown roles, go to the login entry point.
func Route(id Identity) Destination {
	switch id.Role {
	case RoleCustomer:
		return DestinationCustomerDashboard
	case RoleContractor:
		return DestinationContractorDashboard
	case RoleServiceEngineer:
		return DestinationCalendar
	case RoleAdmin:
		return DestinationAdminPanel
	case RoleManager, RoleEmployee:
		return DestinationLogin
	default:
		return DestinationLogin
	}
}
