package catalog

import (
	"encoding/json"
	"strings"

	"github.com/aegisshield/case-dashboard/internal/models"
)

// Upstream sources disagree on how a transfer to the competent authority is
// recorded. Each alias below is checked independently so that any one of them
// can be removed once the sources agree on a single field.
var (
	transmittedFlagField = "transmis_autorite"

	authorityIDFields = []string{"authority", "autorite", "authority_id", "assigned_to"}

	authorityCodes = map[string]bool{
		"autorite_competente": true,
		"competent_authority": true,
	}

	legacyTransmittedFields = []string{
		"transmis",
		"transmitted",
		"is_transmitted",
		"sent_to_authority",
		"transmitted_to_authority",
	}

	transmissionObjectField = "transmission"
	transmissionFlagFields  = []string{"authority", "autorite", "to_authority"}

	transmittedStatuses = map[string]bool{
		"transmis":        true,
		StatusTransmitted: true,
		"transmitted":     true,
	}
)

// IsTransmittedToAuthority reports whether any of the known aliases marks the
// record as handed over to a competent authority.
func IsTransmittedToAuthority(record *models.CaseRecord) bool {
	if record == nil {
		return false
	}
	if transmittedStatuses[record.Status] {
		return true
	}
	if authorityCodes[record.AssignedTo] {
		return true
	}

	extra := record.Extra
	if len(extra) == 0 {
		return false
	}

	if truthy(extra[transmittedFlagField]) {
		return true
	}

	for _, field := range authorityIDFields {
		if code, ok := extra[field].(string); ok && authorityCodes[code] {
			return true
		}
	}

	for _, field := range legacyTransmittedFields {
		if truthy(extra[field]) {
			return true
		}
	}

	if nested, ok := extra[transmissionObjectField].(map[string]any); ok {
		for _, field := range transmissionFlagFields {
			if truthy(nested[field]) {
				return true
			}
		}
	}

	return false
}

// truthy accepts true, "true" and 1 in the shapes a JSON decoder produces
func truthy(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		s := strings.TrimSpace(strings.ToLower(val))
		return s == "true" || s == "1"
	case float64:
		return val == 1
	case float32:
		return val == 1
	case int:
		return val == 1
	case int64:
		return val == 1
	case json.Number:
		n, err := val.Float64()
		return err == nil && n == 1
	}
	return false
}
