package service

import "github.com/metime/identity/internal/model"

// Capability predicates used by handlers and middleware when deciding
// whether a request may proceed. They read the user snapshot only; callers
// load a fresh user when staleness matters.

// IsActive reports whether the account is enabled.
func IsActive(user *model.User) bool {
	return user != nil && user.IsActive
}

// CanLogin reports whether the account may sign in: enabled and at least
// one identifier verified.
func CanLogin(user *model.User) bool {
	return IsActive(user) && user.CanLogin()
}

// IsOwner reports whether the user owns the resource identified by ownerID.
func IsOwner(user *model.User, ownerID uint) bool {
	return user != nil && user.ID == ownerID
}

// IsAdmin reports whether the user has staff or superuser rights.
func IsAdmin(user *model.User) bool {
	return user != nil && (user.IsStaff || user.IsSuperuser)
}

// IsOwnerOrAdmin reports whether the user may act on the resource.
func IsOwnerOrAdmin(user *model.User, ownerID uint) bool {
	return IsOwner(user, ownerID) || IsAdmin(user)
}
