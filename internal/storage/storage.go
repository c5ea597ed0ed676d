package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"task-tracker/internal/models"
)

var (
	// ErrNotFound запись не найдена или принадлежит другому пользователю
	ErrNotFound = errors.New("not found")
	// ErrConflict нарушение уникальности (занятый username)
	ErrConflict = errors.New("conflict")
)

// UserStore интерфейс хранилища пользователей
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	UpdateAvatar(ctx context.Context, userID int64, avatar string) (*models.User, error)
}

// TaskStore доступ к задачам. userID обязателен в каждом методе:
// задача другого пользователя неотличима от отсутствующей.
type TaskStore interface {
	ListTasks(ctx context.Context, userID int64) ([]models.Task, error)
	CreateTask(ctx context.Context, userID int64, task models.NewTask) (*models.Task, error)
	UpdateTask(ctx context.Context, userID, taskID int64, patch models.TaskPatch) (*models.Task, error)
	DeleteTask(ctx context.Context, userID, taskID int64) error
	TaskStats(ctx context.Context, userID int64, now time.Time) (models.Stats, error)
}

// Storage всё хранилище целиком
type Storage interface {
	UserStore
	TaskStore
	Ping(ctx context.Context) error
	Close() error
}

// In-memory хранилище для тестов; ведёт себя так же, как SQLiteStorage
type MemoryStorage struct {
	mu         sync.Mutex
	users      map[int64]models.User
	tasks      map[int64]models.Task
	nextUserID int64
	nextTaskID int64
	now        func() time.Time
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:      make(map[int64]models.User),
		tasks:      make(map[int64]models.Task),
		nextUserID: 1,
		nextTaskID: 1,
		now:        time.Now,
	}
}

func (m *MemoryStorage) CreateUser(_ context.Context, username, passwordHash string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == username {
			return nil, ErrConflict
		}
	}
	user := models.User{ID: m.nextUserID, Username: username, PasswordHash: passwordHash}
	m.users[user.ID] = user
	m.nextUserID++
	return &user, nil
}

func (m *MemoryStorage) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStorage) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *MemoryStorage) UpdateAvatar(_ context.Context, userID int64, avatar string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	u.Avatar = &avatar
	m.users[userID] = u
	return &u, nil
}

func (m *MemoryStorage) ListTasks(_ context.Context, userID int64) ([]models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tasks := make([]models.Task, 0)
	for _, t := range m.tasks {
		if t.UserID == userID {
			tasks = append(tasks, t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		}
		return tasks[i].ID > tasks[j].ID
	})
	return tasks, nil
}

func (m *MemoryStorage) CreateTask(_ context.Context, userID int64, nt models.NewTask) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[userID]; !ok {
		return nil, errors.Errorf("user %d does not exist", userID)
	}
	task := models.Task{
		ID:          m.nextTaskID,
		UserID:      userID,
		Title:       nt.Title,
		Description: nt.Description,
		Deadline:    nt.Deadline.UTC(),
		CreatedAt:   m.now().UTC(),
	}
	m.tasks[task.ID] = task
	m.nextTaskID++
	return &task, nil
}

func (m *MemoryStorage) UpdateTask(_ context.Context, userID, taskID int64, patch models.TaskPatch) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[taskID]
	if !ok || t.UserID != userID {
		return nil, ErrNotFound
	}
	t = patch.Apply(t, m.now().UTC())
	m.tasks[taskID] = t
	return &t, nil
}

func (m *MemoryStorage) DeleteTask(_ context.Context, userID, taskID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[taskID]
	if !ok || t.UserID != userID {
		return ErrNotFound
	}
	delete(m.tasks, taskID)
	return nil
}

func (m *MemoryStorage) TaskStats(_ context.Context, userID int64, now time.Time) (models.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var s models.Stats
	for _, t := range m.tasks {
		if t.UserID != userID {
			continue
		}
		s.Total++
		if t.Completed {
			s.Completed++
		} else {
			s.Pending++
		}
		if t.Overdue(now) {
			s.Overdue++
		}
	}
	return s, nil
}

func (m *MemoryStorage) Ping(context.Context) error { return nil }

func (m *MemoryStorage) Close() error { return nil }
