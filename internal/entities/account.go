package entities

import "time"

type Role string

const (
	RoleAdmin   Role = "admin"
	RolePremium Role = "premium"
)

// Account is a login-eligible user stored in the users table.
type Account struct {
	Username     string     `gorm:"primaryKey;size:64" json:"username"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	Name         string     `gorm:"size:255" json:"name"`
	Email        string     `gorm:"size:255" json:"email,omitempty"`
	TxnRef       string     `gorm:"size:255" json:"txn_ref,omitempty"`
	Role         Role       `gorm:"size:20;not null" json:"role"`
	Verified     bool       `gorm:"not null;default:false" json:"verified"`
	CreatedAt    time.Time  `json:"created_at"`
	RequestedAt  *time.Time `json:"requested_at,omitempty"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty"`
}

func (Account) TableName() string {
	return "users"
}

func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// PendingAccount is a subscription request awaiting an admin decision.
// It shares the Account layout but lives in its own table.
type PendingAccount Account

func (PendingAccount) TableName() string {
	return "pending_users"
}
