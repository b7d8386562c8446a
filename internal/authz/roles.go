package authz

const (
	RoleSales      = 10
	RoleOperations = 20
	RoleAudit      = 30
	RoleManagement = 40
	RoleAdmin      = 50
)

func IsElevated(roleID int) bool {
	return roleID == RoleOperations || roleID == RoleManagement || roleID == RoleAdmin
}

func IsReadOnly(roleID int) bool {
	return roleID == RoleAudit
}

func KnownRole(roleID int) bool {
	switch roleID {
	case RoleSales, RoleOperations, RoleAudit, RoleManagement, RoleAdmin:
		return true
	}
	return false
}

// Principal is the caller on whose behalf an operation runs.
type Principal struct {
	UserID int
	RoleID int
}

// System is used for internal calls that are not tied to a user.
var System = Principal{RoleID: RoleAdmin}

func (p Principal) CanWrite() bool {
	return KnownRole(p.RoleID) && !IsReadOnly(p.RoleID)
}

// CanRead reports whether p may see a record owned by ownerID.
func (p Principal) CanRead(ownerID int) bool {
	return IsElevated(p.RoleID) || IsReadOnly(p.RoleID) || p.UserID == ownerID
}

// CanModify reports whether p may change a record owned by ownerID.
func (p Principal) CanModify(ownerID int) bool {
	if !p.CanWrite() {
		return false
	}
	return IsElevated(p.RoleID) || p.UserID == ownerID
}

// SeesAll is true when list queries must not be scoped to the caller.
func (p Principal) SeesAll() bool {
	return IsElevated(p.RoleID) || IsReadOnly(p.RoleID)
}
