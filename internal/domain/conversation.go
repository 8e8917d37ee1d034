package domain

// TurnRole tags who authored a persisted conversation turn.
type TurnRole string

const (
	TurnRoleUser      TurnRole = RoleUser
	TurnRoleAssistant TurnRole = RoleAssistant
)

// Turn is a single persisted conversation message. Turns are append-only;
// nothing in this service updates or deletes them.
type Turn struct {
	// LeadID groups turns by end user. Nil when the caller sent no lead.
	LeadID  *string  `json:"lead_id"`
	Message string   `json:"message"`
	Role    TurnRole `json:"role"`
}

// NewTurn builds a Turn, treating an empty leadID as absent.
func NewTurn(leadID string, role TurnRole, message string) Turn {
	t := Turn{Message: message, Role: role}
	if leadID != "" {
		id := leadID
		t.LeadID = &id
	}
	return t
}

// Lead returns the lead id or "" when absent.
func (t Turn) Lead() string {
	if t.LeadID == nil {
		return ""
	}
	return *t.LeadID
}
