package domain

import "strings"

// NormalizeDepartment canonicalizes a department key. Clients send both
// "room_service" and "room-service"; both are stored as "room-service".
func NormalizeDepartment(department string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(department)), "_", "-")
}

// NormalizeDepartments normalizes and de-duplicates a department list.
func NormalizeDepartments(departments []string) []string {
	if len(departments) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(departments))
	out := make([]string, 0, len(departments))
	for _, dept := range departments {
		normalized := NormalizeDepartment(dept)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}
