package types

import "time"

// VisitorProfile is a registered roster entry shown in the face database view.
type VisitorProfile struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Role       string     `json:"role"`
	Department string     `json:"department"`
	PhotoURL   string     `json:"photoUrl"`
	LastSeen   *time.Time `json:"lastSeen,omitempty"`
}
