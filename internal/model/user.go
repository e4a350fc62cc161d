package model

// User is a row of the `users` table.  Almost every other entity points
// at a user as creator, requester or assignee.
//
// Fields:
//
//	ID           – primary key.
//	Email        – unique, stored lower-cased.
//	FullName     – display name used by every denormalized join.
//	Role         – admin, manager, staff or contractor.
//	Department   – free text.
//	IsActive     – inactive users are skipped by broadcasts.
//	PasswordHash – bcrypt hash; empty for users created by an admin
//	               without a password (they cannot log in).
//	CreationTime – Unix milliseconds.
type User struct {
	ID           uint64 `json:"id"`            // users.id
	Email        string `json:"email"`         // users.email
	FullName     string `json:"full_name"`     // users.full_name
	Role         Role   `json:"role"`          // users.role
	Department   string `json:"department"`    // users.department
	IsActive     bool   `json:"is_active"`     // users.is_active
	PasswordHash string `json:"-"`             // users.password_hash
	CreationTime int64  `json:"creation_time"` // users.creation_time
}

// UnknownUser is shown wherever a referenced user no longer exists.
const UnknownUser = "Unknown User"

// UnknownProject is shown wherever a referenced project no longer exists.
const UnknownProject = "Unknown Project"

// UnknownEquipment is shown wherever a referenced equipment row no longer exists.
const UnknownEquipment = "Unknown Equipment"

// UnknownItem is shown wherever a referenced inventory item no longer exists.
const UnknownItem = "Unknown Item"
