package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountProfile holds who owns an account. Authentication is out of scope,
// so no credentials are stored here.
type AccountProfile struct {
	UserID    string    `gorm:"primaryKey" json:"user_id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Account holds the cash side of a user's trading state.
//
// Balance is the opening balance plus the net of completed trade cash flows
// minus order fees. Overdraft is NOT prevented anywhere: a buy larger than
// the balance drives it negative. Known gap, kept deliberately.
type Account struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	ProfileUserID string          `gorm:"uniqueIndex" json:"user_id"`
	Balance       decimal.Decimal `gorm:"type:decimal(14,2)" json:"balance"`
	OpenBalance   decimal.Decimal `gorm:"type:decimal(14,2)" json:"open_balance"`
	LoginCount    int             `json:"login_count"`
	LogoutCount   int             `json:"logout_count"`
	LastLogin     *time.Time      `json:"last_login,omitempty"`
	CreationDate  time.Time       `json:"creation_date"`
}

// NewAccount creates an account with the given opening balance.
func NewAccount(userID string, openBalance decimal.Decimal) *Account {
	return &Account{
		ProfileUserID: userID,
		Balance:       openBalance,
		OpenBalance:   openBalance,
		CreationDate:  time.Now(),
	}
}
