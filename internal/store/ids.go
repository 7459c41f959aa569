package store

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// parseIDList reads a group_concat result.
func parseIDList(s string) []int64 {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func replaceGroups(ex execer, table, column string, ownerID int64, groups []int64) error {
	if _, err := ex.Exec(`DELETE FROM `+table+` WHERE `+column+` = ?`, ownerID); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	seen := make(map[int64]bool, len(groups))
	for _, g := range groups {
		if seen[g] {
			continue
		}
		seen[g] = true
		if _, err := ex.Exec(`INSERT INTO `+table+` (`+column+`, group_id) VALUES (?, ?)`, ownerID, g); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
