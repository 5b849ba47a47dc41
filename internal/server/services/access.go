package services

import "github.com/blockvault/blockvault/internal/server/models"

// Access decisions are pure functions over the principal, the entity, and
// (for reads) whether an active grant exists. They are evaluated fresh on
// every request; nothing is cached between calls.

// CanRead reports whether principal may read file: the owner always can,
// anyone else needs an active grant. Admins get no implicit read access to
// content they were not granted.
func CanRead(principal *models.User, file *models.File, activeGrantExists bool) bool {
	if principal == nil || file == nil {
		return false
	}
	return principal.ID == file.UserID || activeGrantExists
}

// CanWrite reports whether principal may modify file metadata.
func CanWrite(principal *models.User, file *models.File) bool {
	return isOwnerOrAdmin(principal, file)
}

// CanDelete reports whether principal may delete file and its grants.
func CanDelete(principal *models.User, file *models.File) bool {
	return isOwnerOrAdmin(principal, file)
}

// CanShare reports whether principal may create grants for file.
func CanShare(principal *models.User, file *models.File) bool {
	return isOwnerOrAdmin(principal, file)
}

// CanRevoke reports whether principal may revoke the grant: the granting
// owner or an admin.
func CanRevoke(principal *models.User, share *models.Share) bool {
	if principal == nil || share == nil {
		return false
	}
	return principal.ID == share.UserID || principal.IsAdmin
}

func isOwnerOrAdmin(principal *models.User, file *models.File) bool {
	if principal == nil || file == nil {
		return false
	}
	return principal.ID == file.UserID || principal.IsAdmin
}
