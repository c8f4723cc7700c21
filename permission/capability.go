package permission

// Capability names a feature gate of the inventory client.
type Capability string

const (
	// ManageProducts allows creating, editing and stocking products.
	ManageProducts Capability = "manage_products"
	// ManageOrders allows placing and receiving purchase orders.
	ManageOrders Capability = "manage_orders"
	// ViewReports allows opening the reports.
	ViewReports Capability = "view_reports"
	// ManageUsers allows administering accounts.
	ManageUsers Capability = "manage_users"
)

var capabilityRoles = map[Capability]Role{
	ManageProducts: Operator,
	ManageOrders:   Operator,
	ViewReports:    Manager,
	ManageUsers:    Admin,
}

// MinRole returns the lowest role granted c.
func (c Capability) MinRole() (Role, bool) {
	r, ok := capabilityRoles[c]
	return r, ok
}

// Grants reports whether holder has capability c. Unknown capabilities are
// never granted.
func Grants(holder Role, c Capability) bool {
	required, ok := c.MinRole()
	if !ok {
		return false
	}
	return Allows(holder, required)
}
