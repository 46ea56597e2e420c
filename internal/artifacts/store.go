// Package artifacts сохраняет артефакты выполнения (скриншоты, видео) на
// локальном диске и возвращает ссылки для включения в результат задачи.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = "./artifacts"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("не удалось создать каталог артефактов %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Save записывает артефакт и возвращает путь к файлу. Имя включает вид
// артефакта, время и случайный суффикс, чтобы параллельные задачи не
// перезаписывали друг друга.
func (s *Store) Save(kind string, data []byte) (string, error) {
	name := fmt.Sprintf("%s_%s_%s%s",
		kind,
		time.Now().UTC().Format("20060102_150405"),
		uuid.NewString()[:8],
		extFor(kind))

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("не удалось сохранить артефакт %s: %w", kind, err)
	}
	return path, nil
}

func extFor(kind string) string {
	switch kind {
	case "screenshot":
		return ".png"
	case "video":
		return ".webm"
	default:
		return ".bin"
	}
}
