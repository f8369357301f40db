package port

import (
	"context"

	"port-vision/internal/domain/entity"
)

// UserRepository интерфейс хранилища состояний диалога с ботом
type UserRepository interface {
	// Get возвращает пользователя по ID, создаёт нового если не найден
	Get(ctx context.Context, userID, chatID int64) (*entity.User, error)

	// Save сохраняет пользователя целиком (состояние и последнюю проверку)
	Save(ctx context.Context, user *entity.User) error

	// UpdateState обновляет только состояние пользователя
	UpdateState(ctx context.Context, userID int64, state entity.UserState) error
}
