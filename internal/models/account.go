package models

import "time"

// Account is a registered identity. Accounts are never deleted; Disabled
// is the soft-delete switch.
type Account struct {
	ID                    string    `json:"id"`
	Email                 string    `json:"email"`
	Username              string    `json:"username"`
	PasswordHash          string    `json:"-"`
	Role                  string    `json:"role"`
	CanAccessUserFeatures bool      `json:"canAccessUserFeatures"`
	Disabled              bool      `json:"disabled"`
	PaymentCustomerID     string    `json:"-"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

func (a Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Principal is the password-free projection of an Account attached to a
// request once its session has been verified.
type Principal struct {
	ID                    string    `json:"id"`
	Email                 string    `json:"email"`
	Username              string    `json:"username"`
	Role                  string    `json:"role"`
	IsAdmin               bool      `json:"isAdmin"`
	CanAccessUserFeatures bool      `json:"canAccessUserFeatures"`
	CreatedAt             time.Time `json:"createdAt"`
}

func (a Account) Principal() Principal {
	return Principal{
		ID:                    a.ID,
		Email:                 a.Email,
		Username:              a.Username,
		Role:                  a.Role,
		IsAdmin:               a.IsAdmin(),
		CanAccessUserFeatures: a.CanAccessUserFeatures,
		CreatedAt:             a.CreatedAt,
	}
}
