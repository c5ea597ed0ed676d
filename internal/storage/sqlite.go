package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"task-tracker/internal/logger"
	"task-tracker/internal/models"
)

// Время храним текстом фиксированной ширины в UTC:
// строковое сравнение в SQL совпадает с хронологическим.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const taskColumns = "id, user_id, title, description, deadline, completed, completed_at, created_at"

type SQLiteStorage struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStorage(ctx context.Context, dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "ошибка создания каталога %s", dir)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка открытия БД")
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ошибка подключения к БД")
	}

	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info(ctx, "SQLite база данных инициализирована", "path", dbPath)
	return &SQLiteStorage{db: db, now: time.Now}, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			avatar TEXT,
			created_at TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			description TEXT,
			deadline TEXT NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			completed_at TEXT,
			created_at TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_tasks_user_created ON tasks (user_id, created_at DESC)`,
	}

	for _, stmt := range tables {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "ошибка создания схемы")
		}
	}
	return nil
}

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Закрытие соединения
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Пользователи

func (s *SQLiteStorage) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
		username, passwordHash, formatTime(s.now()),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, errors.Wrap(err, "insert user")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "insert user")
	}
	return &models.User{ID: id, Username: username, PasswordHash: passwordHash}, nil
}

func (s *SQLiteStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, avatar FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (s *SQLiteStorage) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, avatar FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (s *SQLiteStorage) UpdateAvatar(ctx context.Context, userID int64, avatar string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE users SET avatar = ? WHERE id = ? RETURNING id, username, password_hash, avatar`,
		avatar, userID)
	return scanUser(row)
}

// Задачи

func (s *SQLiteStorage) ListTasks(ctx context.Context, userID int64) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list tasks")
	}
	defer rows.Close()

	tasks := make([]models.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, errors.Wrap(rows.Err(), "list tasks")
}

func (s *SQLiteStorage) CreateTask(ctx context.Context, userID int64, nt models.NewTask) (*models.Task, error) {
	task := models.Task{
		UserID:      userID,
		Title:       nt.Title,
		Description: nt.Description,
		Deadline:    nt.Deadline.UTC(),
		CreatedAt:   s.now().UTC(),
	}

	result, err := s.db.ExecContext(ctx, `
	INSERT INTO tasks (user_id, title, description, deadline, completed, completed_at, created_at)
	VALUES (?, ?, ?, ?, ?, NULL, ?)`,
		userID, task.Title, nullString(task.Description), formatTime(task.Deadline), false, formatTime(task.CreatedAt),
	)
	if err != nil {
		return nil, errors.Wrap(err, "insert task")
	}

	task.ID, err = result.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "insert task")
	}
	return &task, nil
}

// UpdateTask пишет только переданные поля одним UPDATE ... RETURNING.
// Выражения SET видят строку до изменения, поэтому completed_at
// сравнивается со старым completed. Параллельные патчи разных полей
// не затирают друг друга.
func (s *SQLiteStorage) UpdateTask(ctx context.Context, userID, taskID int64, patch models.TaskPatch) (*models.Task, error) {
	var title, deadline, completed, description any
	if patch.Title != nil {
		title = *patch.Title
	}
	if patch.Deadline != nil {
		deadline = formatTime(*patch.Deadline)
	}
	if patch.Completed != nil {
		completed = *patch.Completed
	}
	setDescription := patch.Description != nil
	if setDescription && *patch.Description != "" {
		description = *patch.Description
	}

	row := s.db.QueryRowContext(ctx, `
	UPDATE tasks
	SET title = COALESCE(?, title),
		description = CASE WHEN ? THEN ? ELSE description END,
		deadline = COALESCE(?, deadline),
		completed_at = CASE
			WHEN ? IS NULL OR ? = completed THEN completed_at
			WHEN ? THEN ?
			ELSE NULL
		END,
		completed = COALESCE(?, completed)
	WHERE id = ? AND user_id = ?
	RETURNING `+taskColumns,
		title,
		setDescription, description,
		deadline,
		completed, completed, completed, formatTime(s.now()),
		completed,
		taskID, userID,
	)
	return scanTask(row)
}

func (s *SQLiteStorage) DeleteTask(ctx context.Context, userID, taskID int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND user_id = ?`, taskID, userID)
	if err != nil {
		return errors.Wrap(err, "delete task")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "delete task")
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) TaskStats(ctx context.Context, userID int64, now time.Time) (models.Stats, error) {
	var stats models.Stats
	err := s.db.QueryRowContext(ctx, `
	SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN completed THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN NOT completed THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN NOT completed AND deadline < ? THEN 1 ELSE 0 END), 0)
	FROM tasks
	WHERE user_id = ?`, formatTime(now), userID,
	).Scan(&stats.Total, &stats.Completed, &stats.Pending, &stats.Overdue)
	if err != nil {
		return models.Stats{}, errors.Wrap(err, "task stats")
	}
	return stats, nil
}

// Вспомогательные функции

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user   models.User
		avatar sql.NullString
	)
	if err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &avatar); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "scan user")
	}
	if avatar.Valid {
		user.Avatar = &avatar.String
	}
	return &user, nil
}

func scanTask(row rowScanner) (*models.Task, error) {
	var (
		task                     models.Task
		description, completedAt sql.NullString
		deadline, createdAt      string
	)
	err := row.Scan(
		&task.ID, &task.UserID, &task.Title, &description,
		&deadline, &task.Completed, &completedAt, &createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "scan task")
	}

	if description.Valid {
		task.Description = &description.String
	}
	if task.Deadline, err = parseTime(deadline); err != nil {
		return nil, err
	}
	if task.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		at, err := parseTime(completedAt.String)
		if err != nil {
			return nil, err
		}
		task.CompletedAt = &at
	}
	return &task, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse stored time %q", s)
	}
	return t, nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
