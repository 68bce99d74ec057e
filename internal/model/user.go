package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is a marketplace participant type.
type Role string

const (
	RoleCustomer      Role = "CUSTOMER"
	RoleSeller        Role = "SELLER"
	RoleCompany       Role = "COMPANY"
	RoleDeliveryAgent Role = "DELIVERY_AGENT"
	RoleAdmin         Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleSeller, RoleCompany, RoleDeliveryAgent, RoleAdmin:
		return true
	}
	return false
}

// CanSell reports whether the role may list products.
func (r Role) CanSell() bool {
	return r == RoleSeller || r == RoleCompany || r == RoleAdmin
}

// UserStatus is the account state.
type UserStatus string

const (
	UserActive    UserStatus = "ACTIVE"
	UserSuspended UserStatus = "SUSPENDED"
)

// User represents a marketplace account.
type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	FullName     string     `json:"fullName" db:"full_name"`
	Phone        string     `json:"phone" db:"phone"`
	Role         Role       `json:"role" db:"role"`
	Status       UserStatus `json:"status" db:"status"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// AuthToken is a stored session; only the hash of the bearer token is kept.
type AuthToken struct {
	ID        uuid.UUID  `db:"id"`
	UserID    uuid.UUID  `db:"user_id"`
	TokenHash string     `db:"token_hash"`
	ExpiresAt time.Time  `db:"expires_at"`
	RevokedAt *time.Time `db:"revoked_at"`
	CreatedAt time.Time  `db:"created_at"`
}

// RegisterRequest is the payload for POST /api/auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	Role     Role   `json:"role"`
}

// LoginRequest is the payload for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries a freshly issued bearer token.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}

// UpdateProfileRequest is the payload for PATCH /api/auth/me.
type UpdateProfileRequest struct {
	FullName *string `json:"fullName,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Password *string `json:"password,omitempty"`
}

// UpdateUserRequest is the admin payload for PATCH /api/admin/users/{id}.
type UpdateUserRequest struct {
	Role   *Role       `json:"role,omitempty"`
	Status *UserStatus `json:"status,omitempty"`
}

// UserFilter narrows admin user listings.
type UserFilter struct {
	Role   Role
	Status UserStatus
	Page
}

// Page is a limit/offset window.
type Page struct {
	Limit  int
	Offset int
}

// Stats is the admin dashboard summary.
type Stats struct {
	UsersByRole     map[Role]int        `json:"usersByRole"`
	OrdersByStatus  map[OrderStatus]int `json:"ordersByStatus"`
	ApprovedRevenue string              `json:"approvedRevenue"`
}
