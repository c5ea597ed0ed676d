package manager

import (
	"context"
	"time"
	"unicode/utf8"

	"task-tracker/internal/logger"
	"task-tracker/internal/models"
	"task-tracker/internal/storage"
)

// TaskManager операции над задачами одного пользователя. userID во всех
// методах берётся из аутентифицированного запроса, не из тела.
type TaskManager struct {
	store storage.TaskStore
	now   func() time.Time
}

func NewTaskManager(store storage.TaskStore) *TaskManager {
	return &TaskManager{store: store, now: time.Now}
}

func (tm *TaskManager) ListTasks(ctx context.Context, userID int64) ([]models.Task, error) {
	defer observe("list", time.Now())
	return tm.store.ListTasks(ctx, userID)
}

func (tm *TaskManager) AddTask(ctx context.Context, userID int64, req models.CreateTaskRequest) (task *models.Task, err error) {
	defer observe("create", time.Now())
	defer func() { createTaskCount.WithLabelValues(status(err)).Inc() }()

	nt, err := req.Validate()
	if err != nil {
		return nil, err
	}

	task, err = tm.store.CreateTask(ctx, userID, nt)
	if err != nil {
		return nil, err
	}

	taskTitleLength.Observe(float64(utf8.RuneCountInString(task.Title)))
	logger.Debug(ctx, "Задача создана", "userID", userID, "taskID", task.ID)
	return task, nil
}

// UpdateTask применяет только переданные поля. Чужая или отсутствующая
// задача даёт storage.ErrNotFound.
func (tm *TaskManager) UpdateTask(ctx context.Context, userID, taskID int64, patch models.TaskPatch) (task *models.Task, err error) {
	defer observe("update", time.Now())
	defer func() { updateTaskCount.WithLabelValues(status(err)).Inc() }()

	return tm.store.UpdateTask(ctx, userID, taskID, patch)
}

// SetCompleted отмечает задачу выполненной или снова открывает её.
func (tm *TaskManager) SetCompleted(ctx context.Context, userID, taskID int64, completed bool) (*models.Task, error) {
	return tm.UpdateTask(ctx, userID, taskID, models.TaskPatch{Completed: &completed})
}

func (tm *TaskManager) DeleteTask(ctx context.Context, userID, taskID int64) (err error) {
	defer observe("delete", time.Now())
	defer func() { deleteTaskCount.WithLabelValues(status(err)).Inc() }()

	return tm.store.DeleteTask(ctx, userID, taskID)
}

func (tm *TaskManager) Stats(ctx context.Context, userID int64) (models.Stats, error) {
	defer observe("stats", time.Now())
	return tm.store.TaskStats(ctx, userID, tm.now())
}
