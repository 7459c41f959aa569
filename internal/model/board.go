package model

// Board owns topics. Events linked to a board are visible to whoever can
// see the board; an empty Groups list means everyone can.
type Board struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Groups []int64 `json:"groups"`
}
