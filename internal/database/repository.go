package database

import (
	"encoding/json"
	"fmt"

	"browserTasks/internal/runner"
	"browserTasks/internal/task"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TaskRepository реализует task.Store поверх PostgreSQL.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// SaveTask создает или обновляет запись задачи по ее идентификатору.
func (r *TaskRepository) SaveTask(t *task.Task) error {
	record := TaskRecord{
		TaskID:        t.ID,
		Kind:          string(t.Kind),
		Status:        string(t.Status),
		Periodic:      t.Periodic,
		PeriodSeconds: int64(t.Period.Seconds()),
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "task_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}).Create(&record).Error
}

// SaveResult обновляет статус и последний результат задачи.
func (r *TaskRepository) SaveResult(id string, status task.Status, result *runner.ExecutionResult, errMsg string) error {
	updates := map[string]any{
		"status":        string(status),
		"error_message": errMsg,
	}
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("ошибка сериализации результата: %w", err)
		}
		updates["result_json"] = data
	}

	return r.db.Model(&TaskRecord{}).
		Where("task_id = ?", id).
		Updates(updates).Error
}

// ListRecords возвращает сохраненные задачи, новые первыми. Используется
// для просмотра истории, пережившей перезапуск процесса.
func (r *TaskRepository) ListRecords(limit, offset int) ([]TaskRecord, error) {
	var records []TaskRecord
	if err := r.db.Order("id DESC").Limit(limit).Offset(offset).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
