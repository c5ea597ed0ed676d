// Package bot Telegram-клиент к тем же менеджерам, что и HTTP API.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"task-tracker/internal/auth"
	"task-tracker/internal/logger"
	"task-tracker/internal/manager"
	"task-tracker/internal/models"
	"task-tracker/internal/storage"
)

const deadlineLayout = "02.01.2006 15:04"

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// Handler разбирает команды чата и возвращает текст ответа.
// Токен после /login хранится в памяти по chatID.
type Handler struct {
	users *manager.UserManager
	tasks *manager.TaskManager
	auth  *auth.Authenticator
	now   func() time.Time

	mu       sync.Mutex
	sessions map[int64]string
}

func NewHandler(users *manager.UserManager, tasks *manager.TaskManager, authenticator *auth.Authenticator) *Handler {
	return &Handler{
		users:    users,
		tasks:    tasks,
		auth:     authenticator,
		now:      time.Now,
		sessions: make(map[int64]string),
	}
}

// Handle выполняет команду без ведущего слэша. Пустая команда значит
// обычный текст, он добавляется как задача.
func (h *Handler) Handle(ctx context.Context, chatID int64, command, args string) string {
	args = strings.TrimSpace(args)

	switch command {
	case "start", "help":
		return helpText
	case "login":
		return h.login(ctx, chatID, args)
	case "logout":
		h.setSession(chatID, "")
		return "👋 Вы вышли из аккаунта"
	}

	user, reply := h.currentUser(ctx, chatID)
	if user == nil {
		return reply
	}

	switch command {
	case "tasks", "list":
		return h.listTasks(ctx, user)
	case "add", "":
		return h.addTask(ctx, user, args)
	case "done":
		return h.setCompleted(ctx, user, args, true)
	case "undo":
		return h.setCompleted(ctx, user, args, false)
	case "delete":
		return h.deleteTask(ctx, user, args)
	case "stats":
		return h.stats(ctx, user)
	default:
		return "Неизвестная команда. Используйте /help для списка команд."
	}
}

func (h *Handler) login(ctx context.Context, chatID int64, args string) string {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return "Укажите имя и пароль: /login alice secret"
	}

	token, err := h.users.Login(ctx, fields[0], fields[1])
	if errors.Is(err, manager.ErrInvalidCredentials) {
		return "❌ Неверное имя пользователя или пароль"
	}
	if err != nil {
		return h.failure(ctx, err)
	}

	h.setSession(chatID, token)
	return fmt.Sprintf("✅ Вы вошли как *%s*", markdownEscaper.Replace(fields[0]))
}

// currentUser возвращает владельца сессии чата либо текст отказа.
func (h *Handler) currentUser(ctx context.Context, chatID int64) (*models.User, string) {
	h.mu.Lock()
	token, ok := h.sessions[chatID]
	h.mu.Unlock()
	if !ok {
		return nil, "🔒 Сначала войдите: /login <имя> <пароль>"
	}

	user, err := h.auth.Resolve(ctx, token)
	if errors.Is(err, auth.ErrUnauthenticated) {
		h.setSession(chatID, "")
		return nil, "⏰ Сессия истекла, войдите снова: /login <имя> <пароль>"
	}
	if err != nil {
		return nil, h.failure(ctx, err)
	}
	return user, ""
}

func (h *Handler) setSession(chatID int64, token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if token == "" {
		delete(h.sessions, chatID)
		return
	}
	h.sessions[chatID] = token
}

func (h *Handler) listTasks(ctx context.Context, user *models.User) string {
	tasks, err := h.tasks.ListTasks(ctx, user.ID)
	if err != nil {
		return h.failure(ctx, err)
	}
	if len(tasks) == 0 {
		return "📭 Список задач пуст"
	}

	now := h.now()
	var response strings.Builder
	response.WriteString("📋 *Ваши задачи:*\n\n")
	for _, task := range tasks {
		status := "🟢"
		switch {
		case task.Completed:
			status = "✅"
		case task.Overdue(now):
			status = "⏰"
		}
		fmt.Fprintf(&response, "%s #%d: %s (до %s)\n", status, task.ID,
			markdownEscaper.Replace(task.Title), task.Deadline.Format(deadlineLayout))
	}
	return response.String()
}

// addTask ожидает "название | срок", срок в любом формате ParseTimestamp.
func (h *Handler) addTask(ctx context.Context, user *models.User, args string) string {
	title, deadline, found := strings.Cut(args, "|")
	if args == "" || !found {
		return "Укажите задачу и срок: /add Купить молоко | 2030-01-01 18:00"
	}

	task, err := h.tasks.AddTask(ctx, user.ID, models.CreateTaskRequest{
		Title:    strings.TrimSpace(title),
		Deadline: strings.TrimSpace(deadline),
	})
	if err != nil {
		return h.failure(ctx, err)
	}
	return fmt.Sprintf("✅ *Задача добавлена!*\n\nID: #%d\nЗадача: %s\nСрок: %s",
		task.ID, markdownEscaper.Replace(task.Title), task.Deadline.Format(deadlineLayout))
}

func (h *Handler) setCompleted(ctx context.Context, user *models.User, args string, completed bool) string {
	command := "undo"
	if completed {
		command = "done"
	}
	taskID, reply := parseTaskID(args, command)
	if reply != "" {
		return reply
	}

	if _, err := h.tasks.SetCompleted(ctx, user.ID, taskID, completed); err != nil {
		return h.failure(ctx, err)
	}
	if completed {
		return fmt.Sprintf("✅ Задача #%d отмечена выполненной!", taskID)
	}
	return fmt.Sprintf("🔄 Задача #%d снова в работе", taskID)
}

func (h *Handler) deleteTask(ctx context.Context, user *models.User, args string) string {
	taskID, reply := parseTaskID(args, "delete")
	if reply != "" {
		return reply
	}

	if err := h.tasks.DeleteTask(ctx, user.ID, taskID); err != nil {
		return h.failure(ctx, err)
	}
	return fmt.Sprintf("🗑️ Задача #%d удалена!", taskID)
}

func (h *Handler) stats(ctx context.Context, user *models.User) string {
	stats, err := h.tasks.Stats(ctx, user.ID)
	if err != nil {
		return h.failure(ctx, err)
	}
	return fmt.Sprintf("📊 *Статистика*\n\nВсего: %d\nВыполнено: %d\nВ работе: %d\nПросрочено: %d",
		stats.Total, stats.Completed, stats.Pending, stats.Overdue)
}

// failure переводит ошибку менеджера в ответ пользователю.
func (h *Handler) failure(ctx context.Context, err error) string {
	var verr *models.ValidationError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return "❌ Задача не найдена"
	case errors.As(err, &verr):
		var b strings.Builder
		b.WriteString("❌ Ошибка:")
		for _, f := range verr.Fields {
			fmt.Fprintf(&b, "\n%s: %s", f.Field, markdownEscaper.Replace(f.Message))
		}
		return b.String()
	default:
		logger.Error(ctx, err, "Ошибка обработки команды бота")
		return "❌ Внутренняя ошибка, попробуйте позже"
	}
}

func parseTaskID(args, command string) (int64, string) {
	if args == "" {
		return 0, fmt.Sprintf("Укажите номер задачи: /%s 1", command)
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, "Номер задачи должен быть числом"
	}
	return id, ""
}

const helpText = `🤖 *Помощь по командам*

*/login [имя] [пароль]* - Войти в аккаунт
*/logout* - Выйти
*/tasks* - Показать все задачи
*/add [задача] | [срок]* - Добавить задачу
*/done [номер]* - Отметить задачу выполненной
*/undo [номер]* - Вернуть задачу в работу
*/delete [номер]* - Удалить задачу
*/stats* - Статистика
*/help* - Показать эту справку

*Примеры использования:*
/login alice secret
/add Купить молоко | 2030-01-01 18:00
/done 1`
