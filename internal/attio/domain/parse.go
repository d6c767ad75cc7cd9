package domain

import (
	"strings"
	"time"

	"github.com/paylinelabs/payline/internal/numeric"
)

// The CRM returns records either flat or with attribute values nested under
// a "values" map of single-element arrays. Every extractor here walks a
// fallback chain and degrades to a zero value instead of failing, so one
// malformed record never aborts a batch.

// ParseMember extracts a workspace member from a raw payload. A record
// without a resolvable member id yields nil.
func ParseMember(raw map[string]any) *ParsedMember {
	if raw == nil {
		return nil
	}

	memberID := firstNonEmpty(
		nestedString(raw, "id", "workspace_member_id"),
		nestedString(raw, "id", "workspaceMemberId"),
		stringAt(raw, "id"),
		stringAt(raw, "workspace_member_id"),
		stringAt(raw, "workspaceMemberId"),
	)
	if memberID == "" {
		return nil
	}

	member := &ParsedMember{
		MemberID: memberID,
		Email: strings.ToLower(firstNonEmpty(
			stringAt(raw, "email_address"),
			stringAt(raw, "email"),
		)),
	}
	if v := firstNonEmpty(stringAt(raw, "first_name"), stringAt(raw, "firstName")); v != "" {
		member.FirstName = &v
	}
	if v := firstNonEmpty(stringAt(raw, "last_name"), stringAt(raw, "lastName")); v != "" {
		member.LastName = &v
	}
	return member
}

// ParseDeal extracts a deal from a raw payload. A record without a
// resolvable record id yields nil.
func ParseDeal(raw map[string]any) *ParsedDeal {
	if raw == nil {
		return nil
	}
	values := mapAt(raw, "values")

	recordID := firstNonEmpty(
		nestedString(raw, "id", "record_id"),
		nestedString(raw, "id", "recordId"),
		stringAt(raw, "id"),
		stringAt(raw, "record_id"),
		stringAt(raw, "recordId"),
		valueString(values, "record_id"),
	)
	if recordID == "" {
		return nil
	}

	deal := &ParsedDeal{
		RecordID: recordID,
		Name: firstNonEmpty(
			valueString(values, "name"),
			stringAt(raw, "name"),
			stringAt(raw, "deal_name"),
			stringAt(raw, "title"),
		),
		Amount:        parseAmount(raw, values),
		CloseDate:     parseCloseDate(raw, values),
		Status:        parseStatus(raw, values),
		OwnerMemberID: parseOwner(raw, values),
		Raw:           raw,
	}
	if account := firstNonEmpty(
		valueString(values, "associated_company"),
		stringAt(raw, "account_name"),
		stringAt(raw, "company_name"),
	); account != "" {
		deal.AccountName = &account
	}
	return deal
}

func parseAmount(raw, values map[string]any) float64 {
	if entry := valueEntry(values, "amount"); entry != nil {
		if v, ok := entry["currency_value"]; ok {
			return numeric.Normalize(v)
		}
		if v, ok := entry["value"]; ok {
			return numeric.Normalize(v)
		}
	}
	if entry := valueEntry(values, "deal_value_local"); entry != nil {
		if v, ok := entry["currency_value"]; ok {
			return numeric.Normalize(v)
		}
		if v, ok := entry["value"]; ok {
			return numeric.Normalize(v)
		}
	}
	for _, key := range []string{"amount", "deal_value", "value"} {
		if v, ok := raw[key]; ok {
			return numeric.Normalize(v)
		}
	}
	return 0
}

func parseCloseDate(raw, values map[string]any) *time.Time {
	candidates := []string{
		valueString(values, "won_loss_date"),
		valueString(values, "estimated_close_date"),
		stringAt(raw, "won_loss_date"),
		stringAt(raw, "estimated_close_date"),
		stringAt(raw, "close_date"),
		stringAt(raw, "closed_at"),
	}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if t, ok := parseTime(c); ok {
			return &t
		}
	}
	return nil
}

func parseTime(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	// Date-only values normalize to UTC midnight.
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func parseStatus(raw, values map[string]any) string {
	if entry := valueEntry(values, "stage"); entry != nil {
		if status := mapAt(entry, "status"); status != nil {
			if title := stringAt(status, "title"); title != "" {
				return normalizeStatus(title)
			}
		}
	}
	if entry := valueEntry(values, "deal_forecast"); entry != nil {
		if option := mapAt(entry, "option"); option != nil {
			if title := stringAt(option, "title"); title != "" {
				return normalizeStatus(title)
			}
		}
	}
	for _, key := range []string{"status", "stage", "deal_stage"} {
		if v := stringAt(raw, key); v != "" {
			return normalizeStatus(v)
		}
	}
	return ""
}

// normalizeStatus collapses any stage title containing "won" to the
// canonical "Won" so downstream filters match regardless of emoji or
// workspace-specific naming.
func normalizeStatus(title string) string {
	if IsWonStatus(title) {
		return "Won"
	}
	return title
}

// IsWonStatus is a case-insensitive substring match on "won".
func IsWonStatus(status string) bool {
	return strings.Contains(strings.ToLower(status), "won")
}

func parseOwner(raw, values map[string]any) *string {
	for _, entry := range valueEntries(values, "owner") {
		if stringAt(entry, "referenced_actor_type") != "workspace-member" {
			continue
		}
		if id := stringAt(entry, "referenced_actor_id"); id != "" {
			return &id
		}
	}
	if owner := mapAt(raw, "owner"); owner != nil {
		if id := firstNonEmpty(
			stringAt(owner, "workspace_member_id"),
			stringAt(owner, "workspaceMemberId"),
			stringAt(owner, "id"),
		); id != "" {
			return &id
		}
	}
	if id := firstNonEmpty(stringAt(raw, "owner_id"), stringAt(raw, "ownerId")); id != "" {
		return &id
	}
	return nil
}

// AttributeTruthy reports whether the named attribute on a raw deal record
// carries a truthy value. Shapes seen in the wild: a literal bool, the
// string "true", a single-element values array whose entry has a bool
// "value" or "checked", or a nested object with those fields.
func AttributeTruthy(raw map[string]any, attribute string) bool {
	if raw == nil || attribute == "" {
		return false
	}
	if values := mapAt(raw, "values"); values != nil {
		if entry := valueEntry(values, attribute); entry != nil {
			if truthy(entry["value"]) || truthy(entry["checked"]) {
				return true
			}
		}
		// Some shapes put the literal under the attribute key directly.
		if truthy(values[attribute]) {
			return true
		}
	}
	if v, ok := raw[attribute]; ok {
		if truthy(v) {
			return true
		}
		if nested, ok := v.(map[string]any); ok {
			if truthy(nested["value"]) || truthy(nested["checked"]) {
				return true
			}
		}
	}
	return false
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(strings.TrimSpace(t), "true")
	default:
		return false
	}
}

func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

func stringAt(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func mapAt(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	if nested, ok := m[key].(map[string]any); ok {
		return nested
	}
	return nil
}

func nestedString(m map[string]any, outer, inner string) string {
	return stringAt(mapAt(m, outer), inner)
}

// valueEntries returns the array of entry objects under values[key].
func valueEntries(values map[string]any, key string) []map[string]any {
	if values == nil {
		return nil
	}
	arr, ok := values[key].([]any)
	if !ok {
		return nil
	}
	entries := make([]map[string]any, 0, len(arr))
	for _, item := range arr {
		if entry, ok := item.(map[string]any); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

func valueEntry(values map[string]any, key string) map[string]any {
	entries := valueEntries(values, key)
	if len(entries) == 0 {
		return nil
	}
	return entries[0]
}

func valueString(values map[string]any, key string) string {
	entry := valueEntry(values, key)
	if entry == nil {
		return ""
	}
	return firstNonEmpty(
		stringAt(entry, "value"),
		stringAt(entry, "full_record_id"),
	)
}
