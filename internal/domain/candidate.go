package domain

// RecipientCandidate is one resolved delivery target: a device push token
// plus the owning user, if any. Guests have an empty UserID. A candidate
// with an empty Token stands for a targeted user that currently has no
// usable device; it survives resolution so the ledger can count it skipped.
type RecipientCandidate struct {
	Token    string
	Platform string
	UserID   string
}

func (c RecipientCandidate) Guest() bool {
	return c.UserID == ""
}

func (c RecipientCandidate) HasDevice() bool {
	return c.Token != ""
}

// Preferences are the per-user delivery toggles consulted by the gate.
// Absent rows default to allow-everything.
type Preferences struct {
	EnableNotifications   bool
	EnablePush            bool
	EnableAdvertisingPush bool
	EnableSecurityPush    bool
	EnableMaintenancePush bool
}

func DefaultPreferences() Preferences {
	return Preferences{
		EnableNotifications:   true,
		EnablePush:            true,
		EnableAdvertisingPush: true,
		EnableSecurityPush:    true,
		EnableMaintenancePush: true,
	}
}

// AllowsPush reports whether a push of the given category may be delivered.
func (p Preferences) AllowsPush(category Category) bool {
	if !p.EnableNotifications || !p.EnablePush {
		return false
	}
	switch category {
	case CategoryAdvertising:
		return p.EnableAdvertisingPush
	case CategorySecurity:
		return p.EnableSecurityPush
	case CategoryMaintenance:
		return p.EnableMaintenancePush
	}
	return true
}
