package models

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// TaskPatch частичное обновление задачи. nil означает "поле не передано".
// Description, указывающий на пустую строку, очищает описание.
type TaskPatch struct {
	Title       *string
	Description *string
	Deadline    *time.Time
	Completed   *bool
}

func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Deadline == nil && p.Completed == nil
}

// DecodeTaskPatch разбирает тело PATCH. Разрешены только известные ключи,
// остальные дают ошибку валидации, а не попадают в SQL.
func DecodeTaskPatch(body []byte) (TaskPatch, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return TaskPatch{}, NewValidationError("body", "must be a JSON object")
	}

	var (
		patch TaskPatch
		verr  ValidationError
	)

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := raw[key]
		isNull := bytes.Equal(bytes.TrimSpace(value), []byte("null"))

		switch key {
		case "title":
			var s string
			if isNull || json.Unmarshal(value, &s) != nil {
				verr.Add(key, "must be a string")
				continue
			}
			s = strings.TrimSpace(s)
			if s == "" {
				verr.Add(key, "must not be empty")
				continue
			}
			if utf8.RuneCountInString(s) > MaxTitleLength {
				verr.Add(key, "must be at most 200 characters")
				continue
			}
			patch.Title = &s

		case "description":
			s := ""
			if !isNull && json.Unmarshal(value, &s) != nil {
				verr.Add(key, "must be a string or null")
				continue
			}
			s = strings.TrimSpace(s)
			if utf8.RuneCountInString(s) > MaxDescriptionLength {
				verr.Add(key, "must be at most 1000 characters")
				continue
			}
			patch.Description = &s

		case "deadline":
			var s string
			if isNull || json.Unmarshal(value, &s) != nil {
				verr.Add(key, "must be a datetime string")
				continue
			}
			t, err := ParseTimestamp(s)
			if err != nil {
				verr.Add(key, "invalid datetime format")
				continue
			}
			patch.Deadline = &t

		case "completed":
			var b bool
			if isNull || json.Unmarshal(value, &b) != nil {
				verr.Add(key, "must be a boolean")
				continue
			}
			patch.Completed = &b

		default:
			verr.Add(key, "unknown field")
		}
	}

	if verr.HasErrors() {
		return TaskPatch{}, &verr
	}
	return patch, nil
}

// Apply сливает патч с текущим состоянием задачи.
// completed_at выставляется при переходе в completed и сбрасывается при обратном.
func (p TaskPatch) Apply(t Task, now time.Time) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = normalizeDescription(p.Description)
	}
	if p.Deadline != nil {
		t.Deadline = *p.Deadline
	}
	if p.Completed != nil && *p.Completed != t.Completed {
		t.Completed = *p.Completed
		if t.Completed {
			at := now
			t.CompletedAt = &at
		} else {
			t.CompletedAt = nil
		}
	}
	return t
}
