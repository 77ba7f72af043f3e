package store

// Prompter answers a permission prompt for kind. Concrete stores use it in
// place of the host's permission UI; it may block.
type Prompter func(kind EntityKind) (granted bool, err error)

// AutoGrant is a Prompter that always grants access.
func AutoGrant(EntityKind) (bool, error) { return true, nil }

// AutoDeny is a Prompter that always refuses access.
func AutoDeny(EntityKind) (bool, error) { return false, nil }
