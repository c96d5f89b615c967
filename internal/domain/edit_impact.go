package domain

// EditImpact is what a date edit does to the recorded approvals.
type EditImpact int

const (
	// ImpactNone: the date range did not change.
	ImpactNone EditImpact = iota
	// ImpactPreserve: the stay shrank or kept its bounds; approvals stand.
	ImpactPreserve
	// ImpactReset: the stay grew in either direction; approvals are void.
	ImpactReset
)

func (i EditImpact) String() string {
	switch i {
	case ImpactPreserve:
		return "preserve"
	case ImpactReset:
		return "reset"
	default:
		return "none"
	}
}

// ResolveEditImpact compares the previous and proposed range of an edit.
// Only the range matters: changes to any other field never reset approvals.
// Reopen does not go through here; it always resets.
func ResolveEditImpact(previous, proposed DateRange) EditImpact {
	if previous.Equal(proposed) {
		return ImpactNone
	}
	if previous.Contains(proposed) {
		return ImpactPreserve
	}
	return ImpactReset
}
