package accesscontrol

// Administrative permissions guarding the engine's own endpoints.
const (
	PermRolesView       = "roles.view.all"
	PermRolesEdit       = "roles.edit.all"
	PermPermissionsView = "permissions.view.all"
	PermPermissionsEdit = "permissions.edit.all"
	PermPrincipalsView  = "principals.view.all"
	PermPrincipalsEdit  = "principals.edit.all"
	PermAuditView       = "audit.view.all"
)

// Resource types protected by ownership-scoped permissions.
const (
	ResourceAgreement = "agreement"
	ResourceCustomer  = "customer"
)

// SeedCatalog returns the permissions registered at setup time. The bypass
// role does not depend on this list: it always resolves to whatever the
// catalog currently holds, including codes registered later.
func SeedCatalog() []Permission {
	perms := []Permission{
		{Code: PermRolesView, Description: "List roles and their permissions"},
		{Code: PermRolesEdit, Description: "Create, edit and delete roles"},
		{Code: PermPermissionsView, Description: "List the permission catalog"},
		{Code: PermPermissionsEdit, Description: "Register permissions and edit descriptions"},
		{Code: PermPrincipalsView, Description: "List principal accounts"},
		{Code: PermPrincipalsEdit, Description: "Manage principal accounts, roles and overrides"},
		{Code: PermAuditView, Description: "Read the audit trail"},
	}
	for _, resource := range []string{ResourceAgreement, ResourceCustomer} {
		for _, action := range []Action{ActionView, ActionEdit, ActionDelete} {
			for _, scope := range []Scope{ScopeAll, ScopeOwn} {
				perms = append(perms, Permission{
					Code:        Code(resource, action, scope),
					Description: "Capability " + Code(resource, action, scope),
				})
			}
		}
	}
	return perms
}
