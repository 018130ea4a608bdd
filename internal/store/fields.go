// ABOUTME: JSON document helpers shared by store implementations
// ABOUTME: Partial merge via sjson and sort-key ordering via gjson

package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// newDocument encodes fields as a fresh JSON object, dropping reserved keys.
func newDocument(fields Fields) ([]byte, error) {
	return mergeFields([]byte("{}"), fields)
}

// mergeFields overlays fields onto doc. Only the top-level keys present in
// fields change; everything else in doc is preserved.
func mergeFields(doc []byte, fields Fields) ([]byte, error) {
	if len(doc) == 0 {
		doc = []byte("{}")
	}

	// Sorted for deterministic output
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if reservedFields[k] || k == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := append([]byte(nil), doc...)
	for _, k := range keys {
		var err error
		out, err = sjson.SetBytes(out, escapePath(k), fields[k])
		if err != nil {
			return nil, fmt.Errorf("setting field %q: %w", k, err)
		}
	}
	if !json.Valid(out) {
		return nil, fmt.Errorf("merged document is not valid JSON")
	}
	return out, nil
}

// escapePath escapes gjson/sjson path syntax so k addresses a single key.
func escapePath(k string) string {
	var b strings.Builder
	for _, r := range k {
		switch r {
		case '.', '*', '?', '\\', '|', '#', '@', ':':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// parseSortKey splits "-createdAt" into ("createdAt", true).
func parseSortKey(sortKey string) (field string, desc bool) {
	sortKey = strings.TrimSpace(sortKey)
	if strings.HasPrefix(sortKey, "-") {
		return sortKey[1:], true
	}
	return strings.TrimPrefix(sortKey, "+"), false
}

// SortRecords orders records in place by sortKey. An empty key keeps
// insertion order. created_date is accepted as an alias for createdAt.
func SortRecords(records []*Record, sortKey string) {
	field, desc := parseSortKey(sortKey)
	if field == "" {
		return
	}

	var less func(a, b *Record) bool
	switch field {
	case "createdAt", "created_date":
		less = func(a, b *Record) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case "updatedAt", "updated_date":
		less = func(a, b *Record) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	default:
		path := escapePath(field)
		less = func(a, b *Record) bool {
			return lessResult(gjson.GetBytes(a.Fields, path), gjson.GetBytes(b.Fields, path))
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		if desc {
			return less(records[j], records[i])
		}
		return less(records[i], records[j])
	})
}

// lessResult compares two document values; missing values sort first.
func lessResult(a, b gjson.Result) bool {
	if !a.Exists() || !b.Exists() {
		return !a.Exists() && b.Exists()
	}
	if a.Type == gjson.Number && b.Type == gjson.Number {
		return a.Float() < b.Float()
	}
	if a.Type == gjson.String && b.Type == gjson.String {
		if ta, errA := time.Parse(time.RFC3339, a.Str); errA == nil {
			if tb, errB := time.Parse(time.RFC3339, b.Str); errB == nil {
				return ta.Before(tb)
			}
		}
	}
	return a.String() < b.String()
}
