package battle

import "fmt"

// SetupKind classifies a setup failure.
type SetupKind int

const (
	// KindParameters covers invalid run parameters such as the turn limit.
	KindParameters SetupKind = iota
	KindBattlefield
	// KindRoster covers malformed roster records, including bad dice notation.
	KindRoster
	KindDeployment
	KindThreat
)

var setupKindNames = [...]string{"parameters", "battlefield", "roster", "deployment", "threat scorer"}

func (k SetupKind) String() string {
	if int(k) >= 0 && int(k) < len(setupKindNames) {
		return setupKindNames[k]
	}
	return fmt.Sprintf("SetupKind(%d)", int(k))
}

// SetupError reports input rejected before the first turn. Subject names the
// offending unit, feature or parameter.
type SetupError struct {
	Kind    SetupKind
	Subject string
	Err     error
}

func (e *SetupError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("battle setup: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("battle setup: %s %s: %v", e.Kind, e.Subject, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }
