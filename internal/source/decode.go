package source

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/aegisshield/case-dashboard/internal/models"
)

// ErrUnexpectedPayload is returned when the payload holds no record array
var ErrUnexpectedPayload = errors.New("unexpected payload shape")

// envelopeKeys are the object keys a paginated backend wraps its records in
var envelopeKeys = []string{"data", "results", "items"}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// DecodeRecords turns a backend payload into case records. Fields that are
// missing or of an unexpected type fall back to their zero value.
func DecodeRecords(payload []byte, loc *time.Location) ([]models.CaseRecord, error) {
	if !gjson.ValidBytes(payload) {
		return nil, errors.Wrap(ErrUnexpectedPayload, "invalid JSON")
	}
	if loc == nil {
		loc = time.UTC
	}

	list, err := recordArray(gjson.ParseBytes(payload))
	if err != nil {
		return nil, err
	}

	records := make([]models.CaseRecord, 0, len(list.Array()))
	list.ForEach(func(_, item gjson.Result) bool {
		if item.IsObject() {
			records = append(records, decodeRecord(item, loc))
		}
		return true
	})
	return records, nil
}

func recordArray(root gjson.Result) (gjson.Result, error) {
	if root.IsArray() {
		return root, nil
	}
	if root.IsObject() {
		for _, key := range envelopeKeys {
			if list := root.Get(key); list.IsArray() {
				return list, nil
			}
		}
	}
	return gjson.Result{}, ErrUnexpectedPayload
}

func decodeRecord(item gjson.Result, loc *time.Location) models.CaseRecord {
	record := models.CaseRecord{
		ID:          item.Get("id").String(),
		Reference:   item.Get("reference").String(),
		CreatedAt:   ParseTime(firstString(item, "created_at", "createdAt"), loc),
		Category:    item.Get("category").String(),
		Status:      item.Get("status").String(),
		AssignedTo:  item.Get("assigned_to").String(),
		IsAnonymous: isAnonymous(item),
		Name:        item.Get("name").String(),
		Email:       item.Get("email").String(),
		Phone:       item.Get("phone").String(),
		City:        item.Get("city").String(),
		Province:    item.Get("province").String(),
		Region:      item.Get("region").String(),
		Description: item.Get("description").String(),
		Files:       files(item.Get("files")),
	}

	if extra, ok := item.Value().(map[string]interface{}); ok {
		record.Extra = extra
	}
	return record
}

func firstString(item gjson.Result, paths ...string) string {
	for _, path := range paths {
		if v := item.Get(path); v.Exists() && v.Type != gjson.Null {
			return v.String()
		}
	}
	return ""
}

func isAnonymous(item gjson.Result) bool {
	if flag := item.Get("is_anonymous"); flag.Exists() && flag.Type != gjson.Null {
		switch flag.Type {
		case gjson.String:
			s := strings.ToLower(strings.TrimSpace(flag.Str))
			return s == "true" || s == "1"
		default:
			return flag.Bool()
		}
	}
	switch strings.ToLower(item.Get("type").String()) {
	case "anonyme", "anonymous":
		return true
	}
	return false
}

func files(list gjson.Result) []string {
	if !list.IsArray() {
		return nil
	}
	var out []string
	list.ForEach(func(_, f gjson.Result) bool {
		switch {
		case f.Type == gjson.String:
			out = append(out, f.Str)
		case f.IsObject():
			if name := firstString(f, "name", "url", "file"); name != "" {
				out = append(out, name)
			}
		}
		return true
	})
	return out
}

// ParseTime reads the timestamp formats the backend has been seen to emit.
// Values without an offset are read in loc. Anything else yields the zero time.
func ParseTime(value string, loc *time.Location) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}
