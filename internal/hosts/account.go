// Package hosts tracks the monitored exchange accounts and keeps one
// running user-data stream per account.
package hosts

// Account is one row of the hosts table.
type Account struct {
	Alias         string
	APIKey        string
	SecretKey     string
	TelegramGroup string
}

// SameIdentity reports whether two rows describe the same account. The
// Telegram group is a mutable label, not part of the identity.
func (a Account) SameIdentity(b Account) bool {
	return a.Alias == b.Alias && a.APIKey == b.APIKey && a.SecretKey == b.SecretKey
}

// Change classifies what the reconciler observed about an account.
type Change int

const (
	// ChangeNone marks a newly discovered account.
	ChangeNone Change = iota
	// ChangeTelegram marks an account whose Telegram group was edited.
	ChangeTelegram
	// ChangeRemoved marks an account deleted from the hosts table.
	ChangeRemoved
)

func (c Change) String() string {
	switch c {
	case ChangeNone:
		return "none"
	case ChangeTelegram:
		return "tg_changed"
	case ChangeRemoved:
		return "removed"
	}
	return "unknown"
}

// Event is one reconciler observation. For ChangeTelegram the Account
// carries the new group.
type Event struct {
	Account Account
	Change  Change
}
