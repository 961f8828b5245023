package member

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

var ErrNotFound = errors.New("member not found")

var reAddress = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// Member links a ledger address to a messaging recipient.
type Member struct {
	ID              uint64    `gorm:"primaryKey;column:id" json:"-"`
	RecipientID     int64     `gorm:"column:recipient_id;uniqueIndex:ux_members_recipient" json:"telegramUserId"`
	Handle          string    `gorm:"size:32;column:handle" json:"telegramHandle"`
	CirclesAddress  string    `gorm:"size:42;column:circles_address;uniqueIndex:ux_members_circles_address" json:"circlesAddress"`
	CirclesUsername string    `gorm:"size:64;column:circles_username" json:"circlesUsername,omitempty"`
	ENSSubname      string    `gorm:"size:128;column:ens_subname" json:"ensSubname,omitempty"`
	EOAWallet       string    `gorm:"size:42;column:eoa_wallet;index:idx_members_eoa_wallet" json:"eoaWallet,omitempty"`
	JoinedAt        time.Time `gorm:"column:joined_at;autoCreateTime" json:"joinedAt"`
	LastUpdated     time.Time `gorm:"column:last_updated;autoUpdateTime" json:"lastUpdated"`
}

func (Member) TableName() string { return "members" }

// DisplayName prefers the Circles username, then the messaging handle.
func (m Member) DisplayName() string {
	switch {
	case m.CirclesUsername != "":
		return m.CirclesUsername
	case m.Handle != "":
		return "@" + m.Handle
	default:
		return ""
	}
}

// NormalizeAddress lowercases a 0x address, or returns "" when it is not one.
func NormalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if !reAddress.MatchString(addr) {
		return ""
	}
	return strings.ToLower(addr)
}
