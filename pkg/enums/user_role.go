package enums

// UserRole is the account role carried in access tokens.
type UserRole string

const (
	UserRoleBuyer  UserRole = "buyer"
	UserRoleSeller UserRole = "seller"
	UserRoleDealer UserRole = "dealer"
	UserRoleAdmin  UserRole = "admin"
)

func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleBuyer, UserRoleSeller, UserRoleDealer, UserRoleAdmin:
		return true
	}
	return false
}

// CanSell reports whether the role may manage listings and read inquiries.
func (r UserRole) CanSell() bool {
	switch r {
	case UserRoleSeller, UserRoleDealer, UserRoleAdmin:
		return true
	}
	return false
}
