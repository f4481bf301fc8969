package testutil

import domainauth "github.com/almazgeobur/felix-portal/internal/domain/auth"

// IdentityFor returns a populated identity with the given role, for tests.
func IdentityFor(id int64, username string, role domainauth.Role) domainauth.Identity {
	return domainauth.Identity{
		ID:        id,
		Username:  username,
		Email:     username + "@almazgeobur.example",
		FirstName: "Test",
		LastName:  username,
		Role:      role,
		IsActive:  true,
	}
}

// AdminIdentity is the identity the development identity service returns for "admin".
func AdminIdentity() domainauth.Identity {
	return IdentityFor(1, "admin", domainauth.RoleAdmin)
}
