package migration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"inventory-vault/internal/schema"
)

// ParseJSON flattens a legacy JSON export into key-path records. Object
// keys join with dots, array elements contribute their index as a path
// segment, and every leaf value is carried as its raw string form.
// Structural problems with individual keys become rejects; only a payload
// that is not a JSON object at all fails the parse.
func ParseJSON(data []byte, provenance string) ([]LegacyRecord, []Reject, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	// Numbers stay in their source representation instead of going
	// through float64
	decoder.UseNumber()

	var root interface{}
	if err := decoder.Decode(&root); err != nil {
		return nil, nil, NewInvalidError("payload is not valid JSON", err)
	}

	rootMap, ok := root.(map[string]interface{})
	if !ok {
		return nil, nil, NewInvalidError(
			fmt.Sprintf("payload root must be a JSON object, got %T", root), nil)
	}

	var records []LegacyRecord
	var rejects []Reject
	flattenObject("", rootMap, provenance, &records, &rejects)
	return records, rejects, nil
}

// flattenObject walks map keys in sorted order so record order does not
// depend on map iteration
func flattenObject(prefix string, obj map[string]interface{}, provenance string, records *[]LegacyRecord, rejects *[]Reject) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if strings.TrimSpace(k) == "" {
			*rejects = append(*rejects, Reject{
				Key:        joinPath(prefix, "(empty)"),
				Reason:     "empty key segment",
				Provenance: provenance,
			})
			continue
		}
		flattenValue(joinPath(prefix, k), obj[k], provenance, records, rejects)
	}
}

func flattenValue(path string, v interface{}, provenance string, records *[]LegacyRecord, rejects *[]Reject) {
	switch value := v.(type) {
	case map[string]interface{}:
		flattenObject(path, value, provenance, records, rejects)

	case []interface{}:
		for i, elem := range value {
			flattenValue(joinPath(path, strconv.Itoa(i)), elem, provenance, records, rejects)
		}

	case json.Number:
		*records = append(*records, newLeafRecord(path, value.String(), provenance))

	case string:
		*records = append(*records, newLeafRecord(path, value, provenance))

	case bool:
		*records = append(*records, LegacyRecord{
			Key:        path,
			Value:      strconv.FormatBool(value),
			Provenance: provenance,
		})

	case nil:
		*records = append(*records, LegacyRecord{
			Key:        path,
			Provenance: provenance,
		})

	default:
		*rejects = append(*rejects, Reject{
			Key:        path,
			Reason:     fmt.Sprintf("unsupported value type %T", v),
			Provenance: provenance,
		})
	}
}

// newLeafRecord builds a record for a string leaf, attaching a parsed
// timestamp when the leaf is an update marker with a readable value
func newLeafRecord(path, value, provenance string) LegacyRecord {
	record := LegacyRecord{
		Key:        path,
		Value:      value,
		Provenance: provenance,
	}
	if leafName(path) == schema.UpdatedAtColumn {
		record.Timestamp = ParseLegacyTimestamp(value)
	}
	return record
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return prefix + "." + segment
}

func leafName(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i+1:]
	}
	return path
}

// ParseLegacyTimestamp reads the timestamp formats legacy exports use:
// RFC3339 with or without sub-second precision, the space-separated SQL
// form, and JavaScript epoch milliseconds or seconds. Returns nil when
// the value is none of these.
func ParseLegacyTimestamp(value string) *time.Time {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}

	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, trimmed); err == nil {
			t = t.UTC()
			return &t
		}
	}

	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil && n > 0 {
		var t time.Time
		switch {
		case len(trimmed) >= 13:
			t = time.UnixMilli(n).UTC()
		case len(trimmed) >= 10:
			t = time.Unix(n, 0).UTC()
		default:
			return nil
		}
		return &t
	}

	return nil
}
