package timing

import (
	"encoding/json"
	"sort"
	"strings"
)

// ResolveDrivers fills the driver column for every row. A row keeps its
// existing non-empty name; otherwise the name is looked up, in order, in the
// JSON identity payload, the direct name column and finally the first and
// last name columns. A row with none of these ends up with an empty name.
// It returns the number of rows left without a name.
func ResolveDrivers(t *Table, config Config) int {
	names := make([]string, t.Len())

	if existing, ok := t.Text(config.DriverColumn); ok {
		copy(names, existing)
	}

	payloads, _ := t.Text(config.IdentityColumn)
	direct, _ := t.Text(config.NameColumn)
	firstNames, _ := t.Text(config.FirstNameColumn)
	lastNames, _ := t.Text(config.LastNameColumn)

	unresolved := 0

	for i := range names {
		if name := strings.TrimSpace(names[i]); name != "" && !missingText(name) {
			names[i] = name
			continue
		}

		name := ""

		if payloads != nil {
			name = nameFromPayload(payloads[i], config.IdentityKey)
		}

		if name == "" && direct != nil && !missingText(direct[i]) {
			name = strings.TrimSpace(direct[i])
		}

		if name == "" {
			name = joinNames(cell(firstNames, i), cell(lastNames, i))
		}

		if name == "" {
			unresolved++
		}

		names[i] = name
	}

	t.SetText(config.DriverColumn, names)

	return unresolved
}

func cell(values []string, i int) string {
	if values == nil {
		return ""
	}

	return values[i]
}

func joinNames(parts ...string) string {
	var present []string

	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" && !missingText(part) {
			present = append(present, part)
		}
	}

	return strings.Join(present, " ")
}

// nameFromPayload extracts key from a JSON document. Exports wrap the driver
// record in different ways, e.g. {"": {"driverName": "..."}} or a list of
// driver records, so nested objects and arrays are searched as well. Malformed
// payloads yield an empty name.
func nameFromPayload(payload, key string) string {
	payload = strings.TrimSpace(payload)

	if payload == "" || missingText(payload) {
		return ""
	}

	var doc interface{}

	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return ""
	}

	return findName(doc, key)
}

func findName(doc interface{}, key string) string {
	switch v := doc.(type) {
	case map[string]interface{}:
		if s, ok := v[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}

		keys := make([]string, 0, len(v))

		for k := range v {
			keys = append(keys, k)
		}

		// "" sorts first, which is the key exports use for the active driver.
		sort.Strings(keys)

		for _, k := range keys {
			if name := findName(v[k], key); name != "" {
				return name
			}
		}
	case []interface{}:
		for _, elem := range v {
			if name := findName(elem, key); name != "" {
				return name
			}
		}
	}

	return ""
}
