package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	app "port-vision/internal/application"
	"port-vision/internal/domain/entity"
)

const (
	msgStart = `👋 Привет! Я бот для проверки подключения портов устройства.

📸 Отправьте мне фото устройства, и я определю, какие из 8 портов подключены.

📋 Команды:
/check — начать проверку
/last — последний результат
/help — справка
/cancel — отменить текущую операцию`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ Отправьте фото устройства (или файл .jpg/.png)
2️⃣ Бот прогонит изображение через три модели
3️⃣ Вы получите статус каждого порта 1–8

💡 Рекомендации:
• Снимайте порты целиком, без бликов
• Держите камеру прямо напротив панели

📋 Команды:
/check — начать проверку
/last — последний результат
/cancel — отменить операцию`

	msgAwaitingPhoto   = "📸 Отправьте фото устройства для проверки портов."
	msgCancelled       = "❌ Операция отменена. Отправьте /check для новой проверки."
	msgSendPhoto       = "📸 Пожалуйста, отправьте фото устройства для проверки портов."
	msgUnknownCommand  = "❓ Неизвестная команда. Используйте /help для справки."
	msgProcessing      = "⏳ Обрабатываю изображение..."
	msgBusy            = "⏳ Предыдущее фото ещё обрабатывается, подождите."
	msgNoReport        = "📭 Проверок ещё не было."
	msgUnsupportedFile = "⚠️ Поддерживаются только изображения .jpg, .jpeg и .png."
	msgProcessingError = "⚠️ Не удалось обработать изображение. Попробуйте сделать другое фото."
)

// Inspector то, что боту нужно от сервиса проверки
type Inspector interface {
	Inspect(ctx context.Context, imageName string, data []byte) (*entity.Inspection, error)
	Latest(ctx context.Context) (*entity.Inspection, error)
}

// botAPI часть tgbotapi.BotAPI, которой пользуется бот
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot представляет Telegram-бота
type Bot struct {
	api         botAPI
	users       *app.UserService
	inspections Inspector
	httpClient  *http.Client
	log         *logrus.Entry

	// Проверки фото идут в фоне, цикл сообщений не блокируется
	wg sync.WaitGroup
}

// NewBot создаёт нового бота
func NewBot(token string, users *app.UserService, inspections Inspector, log *logrus.Entry) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	bot := newBot(api, users, inspections, log)
	bot.log.Infof("Authorized on account %s", api.Self.UserName)
	return bot, nil
}

func newBot(api botAPI, users *app.UserService, inspections Inspector, log *logrus.Entry) *Bot {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Bot{
		api:         api,
		users:       users,
		inspections: inspections,
		httpClient:  &http.Client{Timeout: time.Minute},
		log:         log.WithField("component", "telegram"),
	}
}

// Run запускает основной цикл обработки сообщений до отмены контекста
// и дожидается начатых проверок
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.wg.Wait()
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	// Посты каналов приходят без автора
	if msg.From == nil {
		return
	}

	user, err := b.users.Get(ctx, msg.From.ID, msg.Chat.ID)
	if err != nil {
		b.log.WithError(err).Error("get user")
		return
	}

	// Обработка команд
	if msg.IsCommand() {
		b.handleCommand(ctx, msg, user)
		return
	}

	if user.Busy() {
		b.sendMessage(msg.Chat.ID, msgBusy)
		return
	}

	// Обработка фото
	if len(msg.Photo) > 0 {
		// Берём файл с максимальным разрешением
		photo := msg.Photo[len(msg.Photo)-1]
		b.startImage(ctx, msg, photo.FileID, fmt.Sprintf("telegram_%d_%d.jpg", msg.Chat.ID, msg.MessageID))
		return
	}

	// Изображение, отправленное файлом (без сжатия)
	if msg.Document != nil {
		if !app.SupportedImage(msg.Document.FileName) {
			b.sendMessage(msg.Chat.ID, msgUnsupportedFile)
			return
		}
		b.startImage(ctx, msg, msg.Document.FileID, filepath.Base(msg.Document.FileName))
		return
	}

	// Текстовое сообщение (не команда)
	b.sendMessage(msg.Chat.ID, msgSendPhoto)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, user *entity.User) {
	userID, chatID := msg.From.ID, msg.Chat.ID

	switch msg.Command() {
	case "start":
		b.setState(ctx, userID, chatID, entity.StateMainMenu)
		b.sendMessage(chatID, msgStart)

	case "help":
		b.sendMessage(chatID, msgHelp)

	case "check":
		if user.Busy() {
			b.sendMessage(chatID, msgBusy)
			return
		}
		if _, err := b.users.BeginCheck(ctx, userID, chatID); err != nil {
			b.log.WithError(err).Error("begin check")
		}
		b.sendMessage(chatID, msgAwaitingPhoto)

	case "last":
		if user.LastInspection != nil {
			b.sendMessage(chatID, FormatReport(user.LastInspection))
			return
		}
		inspection, err := b.inspections.Latest(ctx)
		if errors.Is(err, entity.ErrNoReport) {
			b.sendMessage(chatID, msgNoReport)
			return
		}
		if err != nil {
			b.log.WithError(err).Error("latest report")
			b.sendMessage(chatID, msgProcessingError)
			return
		}
		b.sendMessage(chatID, FormatReport(inspection))

	case "cancel":
		if _, err := b.users.Cancel(ctx, userID, chatID); err != nil {
			b.log.WithError(err).Error("cancel")
		}
		b.sendMessage(chatID, msgCancelled)

	default:
		b.sendMessage(chatID, msgUnknownCommand)
	}
}

// startImage переводит пользователя в "обработку" и запускает проверку в фоне
func (b *Bot) startImage(ctx context.Context, msg *tgbotapi.Message, fileID, imageName string) {
	userID, chatID := msg.From.ID, msg.Chat.ID

	if _, err := b.users.StartProcessing(ctx, userID, chatID); err != nil {
		b.log.WithError(err).Error("start processing")
		b.sendMessage(chatID, msgProcessingError)
		return
	}
	b.sendMessage(chatID, msgProcessing)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.processImage(ctx, userID, chatID, fileID, imageName)
	}()
}

// processImage скачивает изображение, запускает проверку и отправляет отчёт
func (b *Bot) processImage(ctx context.Context, userID, chatID int64, fileID, imageName string) {
	log := b.log.WithFields(logrus.Fields{"user_id": userID, "image": imageName})

	imageData, err := b.downloadFile(ctx, fileID)
	if err != nil {
		log.WithError(err).Error("download photo")
		b.sendMessage(chatID, msgProcessingError)
		b.setState(ctx, userID, chatID, entity.StateMainMenu)
		return
	}

	inspection, err := b.inspections.Inspect(ctx, imageName, imageData)
	if err != nil {
		log.WithError(err).Error("inspect photo")
		b.sendMessage(chatID, msgProcessingError)
		b.setState(ctx, userID, chatID, entity.StateMainMenu)
		return
	}

	b.sendMessage(chatID, FormatReport(inspection))

	// Возвращаем в главное меню
	if _, err := b.users.FinishCheck(ctx, userID, chatID, inspection); err != nil {
		log.WithError(err).Error("finish check")
	}
}

func (b *Bot) setState(ctx context.Context, userID, chatID int64, state entity.UserState) {
	if _, err := b.users.SetState(ctx, userID, chatID, state); err != nil {
		b.log.WithError(err).WithField("state", state).Error("set user state")
	}
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	link, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.WithError(err).Error("send message")
	}
}

// FormatReport текст ответа со статусами всех портов
func FormatReport(inspection *entity.Inspection) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🔌 Результат проверки %s\n\n", inspection.Image)
	for _, p := range inspection.Ports {
		mark := "❌"
		if p.Status == entity.StatusConnected {
			mark = "✅"
		}
		fmt.Fprintf(&sb, "%s Порт %d — %s\n", mark, p.PortNumber, p.Status)
	}
	fmt.Fprintf(&sb, "\nПодключено: %d из %d", inspection.ConnectedCount(), entity.PortCount)
	if connected := inspection.Ports.Table().ConnectedPorts(); len(connected) > 0 {
		nums := make([]string, len(connected))
		for i, p := range connected {
			nums[i] = strconv.Itoa(int(p))
		}
		fmt.Fprintf(&sb, " (%s)", strings.Join(nums, ", "))
	}
	return sb.String()
}
