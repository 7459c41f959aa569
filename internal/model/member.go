package model

type Member struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Birthdate  string  `json:"birthdate,omitempty"`
	Timezone   string  `json:"timezone,omitempty"`
	IsAdmin    bool    `json:"is_admin"`
	CanEditAny bool    `json:"can_edit_any"`
	CanEditOwn bool    `json:"can_edit_own"`
	CanPost    bool    `json:"can_post"`
	Groups     []int64 `json:"groups"`
	HasToken   bool    `json:"has_token"`
}

// Implicit groups: every unauthenticated viewer is in GuestGroup and every
// signed-in member is in RegularGroup.
const (
	GuestGroup   int64 = -1
	RegularGroup int64 = 0
)
