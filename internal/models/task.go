package models

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 1000
)

type Task struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Deadline    time.Time  `json:"deadline"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Stats агрегированная статистика задач пользователя. Поля никогда не null.
type Stats struct {
	Total     int64 `json:"total"`
	Completed int64 `json:"completed"`
	Pending   int64 `json:"pending"`
	Overdue   int64 `json:"overdue"`
}

// CreateTaskRequest тело POST /api/tasks
type CreateTaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Deadline    string  `json:"deadline"`
}

// NewTask проверенные данные для вставки
type NewTask struct {
	Title       string
	Description *string
	Deadline    time.Time
}

// Validate проверяет запрос и превращает его в NewTask.
func (r CreateTaskRequest) Validate() (NewTask, error) {
	var verr ValidationError

	title := strings.TrimSpace(r.Title)
	verr.check(title != "", "title", "field required")
	verr.check(utf8.RuneCountInString(title) <= MaxTitleLength, "title", "must be at most 200 characters")

	desc := normalizeDescription(r.Description)
	if desc != nil {
		verr.check(utf8.RuneCountInString(*desc) <= MaxDescriptionLength, "description", "must be at most 1000 characters")
	}

	var deadline time.Time
	if strings.TrimSpace(r.Deadline) == "" {
		verr.Add("deadline", "field required")
	} else {
		var err error
		deadline, err = ParseTimestamp(r.Deadline)
		if err != nil {
			verr.Add("deadline", "invalid datetime format")
		}
	}

	if verr.HasErrors() {
		return NewTask{}, &verr
	}
	return NewTask{Title: title, Description: desc, Deadline: deadline}, nil
}

// Overdue задача не выполнена и дедлайн уже прошёл.
func (t Task) Overdue(now time.Time) bool {
	return !t.Completed && t.Deadline.Before(now)
}

// пустое описание храним как NULL
func normalizeDescription(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp принимает RFC 3339 и наивные ISO-форматы (их считаем UTC).
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
