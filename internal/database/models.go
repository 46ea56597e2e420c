package database

import "time"

// TaskRecord — строка таблицы tasks. Статусы: pending, running, completed,
// failed, cancelled. Последний результат хранится сериализованным JSON.
type TaskRecord struct {
	ID            uint      `gorm:"primaryKey"`
	TaskID        string    `gorm:"type:varchar(64);uniqueIndex;not null"` // Идентификатор задачи в движке
	Kind          string    `gorm:"type:varchar(16);not null"`             // script или freeform
	Status        string    `gorm:"type:varchar(32);not null;default:'pending'"`
	Periodic      bool      `gorm:"not null;default:false"`
	PeriodSeconds int64     // Период перезапуска в секундах, 0 для непериодических
	ErrorMessage  string    `gorm:"type:text"` // Текст ошибки при статусе failed
	ResultJSON    []byte    `gorm:"type:jsonb"` // Последний ExecutionResult
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (TaskRecord) TableName() string {
	return "tasks"
}
