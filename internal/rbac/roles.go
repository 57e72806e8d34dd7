package rbac

// Role names follow the partner hierarchy. Keep these stable; they are part
// of auth/RBAC contracts and appear on ledger and audit rows.
const (
	RoleRetailer          = "retailer"
	RoleDistributor       = "distributor"
	RoleMasterDistributor = "master_distributor"
	RoleFinance           = "finance"
	RoleAdmin             = "admin"
	RoleSuperAdmin        = "super_admin"
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

// IsPrivileged reports whether the role may trigger reversals and other
// balance-mutating admin operations.
func IsPrivileged(role string) bool {
	return role == RoleAdmin || role == RoleSuperAdmin
}

// IsPartner reports whether the role sits in the commission fan-out chain.
func IsPartner(role string) bool {
	switch role {
	case RoleRetailer, RoleDistributor, RoleMasterDistributor:
		return true
	default:
		return false
	}
}
