package domain

// TargetKind tags the audience mode of a notification. The four modes are
// mutually exclusive; NewTarget fixes the winner at construction time so
// later stages never re-decide precedence.
type TargetKind string

const (
	TargetExplicitUsers  TargetKind = "explicit_users"
	TargetRole           TargetKind = "role"
	TargetMotelFavorites TargetKind = "motel_favorites"
	TargetBroadcast      TargetKind = "broadcast"
)

type Target struct {
	Kind TargetKind

	// Set for TargetExplicitUsers.
	UserIDs []string
	// Set for TargetRole.
	Role Role
	// Set for TargetMotelFavorites.
	MotelID string
	// Broadcast only: whether anonymous guest devices are included.
	IncludeGuests bool
}

// NewTarget collapses the four optional request fields into a single tagged
// target. Precedence: explicit users, then role, then motel favorites, then
// broadcast.
func NewTarget(userIDs []string, role Role, motelID string, includeGuests bool) Target {
	switch {
	case len(userIDs) > 0:
		return Target{Kind: TargetExplicitUsers, UserIDs: userIDs}
	case role != "":
		return Target{Kind: TargetRole, Role: role}
	case motelID != "":
		return Target{Kind: TargetMotelFavorites, MotelID: motelID}
	default:
		return Target{Kind: TargetBroadcast, IncludeGuests: includeGuests}
	}
}

func ExplicitUsersTarget(userIDs []string) Target {
	return Target{Kind: TargetExplicitUsers, UserIDs: userIDs}
}

func RoleTarget(role Role) Target {
	return Target{Kind: TargetRole, Role: role}
}

func MotelFavoritesTarget(motelID string) Target {
	return Target{Kind: TargetMotelFavorites, MotelID: motelID}
}

func BroadcastTarget(includeGuests bool) Target {
	return Target{Kind: TargetBroadcast, IncludeGuests: includeGuests}
}
