package gate

// Verdict is the outcome of an authorization check.
type Verdict int

const (
	VerdictDeny Verdict = iota
	VerdictAllow
)

func (v Verdict) String() string {
	if v == VerdictAllow {
		return "allow"
	}
	return "deny"
}

// Decision carries the verdict of Gate.Require. Role is set when the
// principal's role was resolved; Reason is set on denial.
type Decision struct {
	Verdict Verdict
	Role    string
	Reason  error
}

// Allow builds an allowing decision for the given role.
func Allow(role string) Decision {
	return Decision{Verdict: VerdictAllow, Role: role}
}

// Deny builds a denying decision. A nil reason becomes ErrForbidden.
func Deny(reason error) Decision {
	if reason == nil {
		reason = ErrForbidden
	}
	return Decision{Verdict: VerdictDeny, Reason: reason}
}

func (d Decision) Allowed() bool { return d.Verdict == VerdictAllow }

// Err returns nil when allowed, the denial reason otherwise.
func (d Decision) Err() error {
	if d.Allowed() {
		return nil
	}
	return d.Reason
}
