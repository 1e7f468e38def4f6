// Package security defines the closed role set and the capability table
// that gates every privileged operation.
package security

// Role is a closed set. Sales is the lowest-privilege role; pricing below
// the suggested price or converting such a quote requires a supervisor.
type Role string

const (
	RoleSales      Role = "sales"
	RoleSupervisor Role = "supervisor"
	RoleAdmin      Role = "admin"
)

// ParseRole validates a stored role string against the closed set.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleSales, RoleSupervisor, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// IsElevated reports whether the role may approve below-suggested pricing.
func (r Role) IsElevated() bool {
	return r == RoleSupervisor || r == RoleAdmin
}

// Capability identifies a gated operation.
type Capability string

const (
	CapQuoteCreate     Capability = "quote:create"
	CapQuoteRead       Capability = "quote:read"
	CapQuoteApprove    Capability = "quote:approve"
	CapQuoteConvert    Capability = "quote:convert"
	CapSupplyPurchase  Capability = "supply:purchase"
	CapSupplyManage    Capability = "supply:manage"
	CapProductManage   Capability = "product:manage"
	CapProductRead     Capability = "product:read"
	CapCustomerResolve Capability = "customer:resolve"
)

// capabilities is the explicit per-operation role table. Ad-hoc role string
// comparisons in handlers are forbidden; everything goes through Can.
var capabilities = map[Capability][]Role{
	CapQuoteCreate:     {RoleSales, RoleSupervisor, RoleAdmin},
	CapQuoteRead:       {RoleSales, RoleSupervisor, RoleAdmin},
	CapQuoteApprove:    {RoleSupervisor, RoleAdmin},
	CapQuoteConvert:    {RoleSales, RoleSupervisor, RoleAdmin},
	CapSupplyPurchase:  {RoleSupervisor, RoleAdmin},
	CapSupplyManage:    {RoleSupervisor, RoleAdmin},
	CapProductManage:   {RoleSupervisor, RoleAdmin},
	CapProductRead:     {RoleSales, RoleSupervisor, RoleAdmin},
	CapCustomerResolve: {RoleSales, RoleSupervisor, RoleAdmin},
}

// Can reports whether the role holds the capability.
func Can(role Role, cap Capability) bool {
	for _, r := range capabilities[cap] {
		if r == role {
			return true
		}
	}
	return false
}
