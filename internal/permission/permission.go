// Package permission answers what a single viewer may see and edit.
package permission

import (
	"fmt"

	"github.com/dukerupert/boardcal/internal/model"
)

type MemberSource interface {
	GetByID(id int64) (*model.Member, error)
}

type BoardSource interface {
	List() ([]model.Board, error)
}

// Checker loads a viewer's permission set from storage.
type Checker struct {
	members MemberSource
	boards  BoardSource
}

func NewChecker(members MemberSource, boards BoardSource) *Checker {
	return &Checker{members: members, boards: boards}
}

// For resolves the permission set of a member. An id of zero, or one that
// no longer exists, yields the guest set.
func (c *Checker) For(memberID int64) (*Set, error) {
	var member *model.Member
	if memberID > 0 {
		m, err := c.members.GetByID(memberID)
		if err != nil {
			return nil, fmt.Errorf("load member %d: %w", memberID, err)
		}
		member = m
	}

	boards, err := c.boards.List()
	if err != nil {
		return nil, fmt.Errorf("load boards: %w", err)
	}
	return NewSet(member, boards), nil
}

// Set is one viewer's resolved permissions. It is immutable once built.
type Set struct {
	member *model.Member
	groups map[int64]bool
	boards map[int64]bool
}

// NewSet builds a permission set from a member (nil for a guest) and the
// board list.
func NewSet(member *model.Member, boards []model.Board) *Set {
	s := &Set{
		member: member,
		groups: make(map[int64]bool),
		boards: make(map[int64]bool, len(boards)),
	}
	if member == nil {
		s.groups[model.GuestGroup] = true
	} else {
		s.groups[model.RegularGroup] = true
		for _, g := range member.Groups {
			s.groups[g] = true
		}
	}
	for _, b := range boards {
		if len(b.Groups) == 0 || s.IsInAnyGroup(b.Groups) {
			s.boards[b.ID] = true
		}
	}
	return s
}

// Guest is the permission set of an unauthenticated viewer.
func Guest() *Set {
	return NewSet(nil, nil)
}

func (s *Set) MemberID() int64 {
	if s.member == nil {
		return 0
	}
	return s.member.ID
}

func (s *Set) Member() *model.Member {
	return s.member
}

func (s *Set) IsAdmin() bool {
	return s.member != nil && s.member.IsAdmin
}

func (s *Set) CanViewBoard(boardID int64) bool {
	return s.IsAdmin() || s.boards[boardID]
}

func (s *Set) IsInAnyGroup(groups []int64) bool {
	for _, g := range groups {
		if s.groups[g] {
			return true
		}
	}
	return false
}

func (s *Set) CanPost() bool {
	return s.member != nil && (s.member.IsAdmin || s.member.CanPost)
}

// CanEdit reports whether the viewer may modify or remove ev.
func (s *Set) CanEdit(ev model.Event) bool {
	if s.member == nil {
		return false
	}
	if s.member.IsAdmin || s.member.CanEditAny {
		return true
	}
	return s.member.CanEditOwn && ev.MemberID == s.member.ID
}
