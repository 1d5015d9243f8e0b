package model

import "time"

// Member is a roster record. Members are created implicitly the first time
// a free-typed name is used at check-in and are only ever deactivated.
type Member struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
