package auth

import "time"

// MetadataPasswordKey is the reserved metadata key holding the bcrypt hash.
// It must never survive sanitization.
const MetadataPasswordKey = "password_hash"

// DefaultRoles is assigned to users created without explicit roles.
var DefaultRoles = []string{"user"}

// User is the persisted account record. Metadata carries the password hash
// under MetadataPasswordKey, so a raw User must never cross the public
// boundary; use Sanitize first.
type User struct {
	ID          string         `json:"id"`
	Email       string         `json:"email"`
	Name        string         `json:"name,omitempty"`
	Roles       []string       `json:"roles"`
	Permissions []string       `json:"permissions"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Sanitize returns a copy of the user safe for external exposure: the
// metadata map is cloned with the password hash removed, and nil role and
// permission slices are normalized to empty ones.
func (u User) Sanitize() User {
	out := u
	out.Metadata = make(map[string]any, len(u.Metadata))
	for k, v := range u.Metadata {
		if k == MetadataPasswordKey {
			continue
		}
		out.Metadata[k] = v
	}
	if len(out.Metadata) == 0 {
		out.Metadata = nil
	}
	out.Roles = append([]string(nil), u.Roles...)
	if out.Roles == nil {
		out.Roles = []string{}
	}
	out.Permissions = append([]string(nil), u.Permissions...)
	if out.Permissions == nil {
		out.Permissions = []string{}
	}
	return out
}

// passwordHash extracts the stored bcrypt hash, if any.
func (u User) passwordHash() (string, bool) {
	v, ok := u.Metadata[MetadataPasswordKey]
	if !ok {
		return "", false
	}
	hash, ok := v.(string)
	return hash, ok && hash != ""
}

// UserUpdate describes a partial user mutation. Nil fields are left
// untouched by the store.
type UserUpdate struct {
	Email       *string
	Name        *string
	Roles       []string
	Permissions []string
	Metadata    map[string]any
}
