package entity

// UserState состояние пользователя в диалоге
type UserState string

const (
	StateMainMenu      UserState = "main_menu"      // В главном меню
	StateAwaitingPhoto UserState = "awaiting_photo" // Ожидание фото устройства
	StateProcessing    UserState = "processing"     // Идёт проверка портов
)

// User представляет пользователя бота
type User struct {
	ID             int64       // Telegram User ID
	ChatID         int64       // Telegram Chat ID
	State          UserState   // Текущее состояние пользователя
	LastInspection *Inspection // Последняя проверка пользователя
}

// NewUser создаёт нового пользователя с начальным состоянием
func NewUser(userID, chatID int64) *User {
	return &User{
		ID:     userID,
		ChatID: chatID,
		State:  StateMainMenu,
	}
}

// SetState обновляет состояние пользователя
func (u *User) SetState(state UserState) {
	u.State = state
}

// Busy возвращает true, пока по фото пользователя идёт проверка
func (u *User) Busy() bool {
	return u.State == StateProcessing
}
