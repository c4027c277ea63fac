package audit

import "time"

// DecisionRecord is one persisted authorization verdict. The trail keeps
// the specific deny reason even though clients only ever see a uniform 403.
type DecisionRecord struct {
	ID          int64     `json:"id"`
	PrincipalID int64     `json:"principal_id"`
	Resource    string    `json:"resource"`
	Action      string    `json:"action"`
	Allowed     bool      `json:"allowed"`
	Reason      string    `json:"reason,omitempty"`
	At          time.Time `json:"at"`
}

// Filters narrows a trail listing. Zero values match everything.
type Filters struct {
	PrincipalID int64
	Resource    string
	DeniedOnly  bool
	From        time.Time
	To          time.Time
	Limit       int
}
