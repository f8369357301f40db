package telegram

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	app "port-vision/internal/application"
	"port-vision/internal/domain/entity"
	"port-vision/internal/infrastructure/storage"
)

// fakeAPI записывает отправленные тексты и отдаёт файлы с тестового сервера
type fakeAPI struct {
	fileServer string

	mu   sync.Mutex
	sent []string
}

func (a *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		a.mu.Lock()
		a.sent = append(a.sent, m.Text)
		a.mu.Unlock()
	}
	return tgbotapi.Message{}, nil
}

func (a *fakeAPI) GetFileDirectURL(fileID string) (string, error) {
	return a.fileServer + "/" + fileID, nil
}

func (a *fakeAPI) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(chan tgbotapi.Update)
}

func (a *fakeAPI) StopReceivingUpdates() {}

func (a *fakeAPI) messages() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.sent...)
}

// blockingInspector держит проверку, пока тест не закроет release
type blockingInspector struct {
	started chan struct{}
	release chan struct{}

	mu     sync.Mutex
	images []string
}

func (i *blockingInspector) Inspect(ctx context.Context, imageName string, data []byte) (*entity.Inspection, error) {
	i.mu.Lock()
	i.images = append(i.images, imageName)
	i.mu.Unlock()

	i.started <- struct{}{}
	<-i.release

	table := entity.NewPortTable()
	table.MarkConnected(3)
	return &entity.Inspection{ID: "insp-1", Image: imageName, Ports: table.Report()}, nil
}

func (i *blockingInspector) Latest(ctx context.Context) (*entity.Inspection, error) {
	return nil, entity.ErrNoReport
}

func command(chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From:     &tgbotapi.User{ID: chatID},
		Chat:     &tgbotapi.Chat{ID: chatID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}
}

func photo(chatID int64, messageID int, fileID string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: messageID,
		From:      &tgbotapi.User{ID: chatID},
		Chat:      &tgbotapi.Chat{ID: chatID},
		Photo:     []tgbotapi.PhotoSize{{FileID: fileID}},
	}
}

func newTestBot(t *testing.T, inspections Inspector) (*Bot, *fakeAPI) {
	t.Helper()
	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "jpeg-bytes")
	}))
	t.Cleanup(files.Close)

	log := logrus.New()
	log.SetOutput(io.Discard)

	api := &fakeAPI{fileServer: files.URL}
	users := app.NewUserService(storage.NewMemoryUserRepository())
	return newBot(api, users, inspections, logrus.NewEntry(log)), api
}

func TestBot_PhotoWhileBusy(t *testing.T) {
	inspector := &blockingInspector{started: make(chan struct{}, 1), release: make(chan struct{})}
	bot, api := newTestBot(t, inspector)
	ctx := context.Background()

	bot.handleMessage(ctx, photo(70, 1, "f1"))
	<-inspector.started

	// Пока первая проверка идёт, новые фото и /check отклоняются
	bot.handleMessage(ctx, photo(70, 2, "f2"))
	bot.handleMessage(ctx, command(70, "/check"))

	close(inspector.release)
	bot.wg.Wait()

	require.Equal(t, []string{"telegram_70_1.jpg"}, inspector.images)

	sent := api.messages()
	require.Equal(t, msgProcessing, sent[0])
	require.Equal(t, msgBusy, sent[1])
	require.Equal(t, msgBusy, sent[2])
	require.Contains(t, sent[len(sent)-1], "✅ Порт 3 — connected")

	user, err := bot.users.Get(ctx, 70, 70)
	require.NoError(t, err)
	require.False(t, user.Busy())
	require.Equal(t, "insp-1", user.LastInspection.ID)
}

func TestBot_LastShowsOwnInspection(t *testing.T) {
	inspector := &blockingInspector{started: make(chan struct{}, 1), release: make(chan struct{})}
	close(inspector.release)
	bot, api := newTestBot(t, inspector)
	ctx := context.Background()

	// Без собственных проверок берётся общий последний отчёт
	bot.handleMessage(ctx, command(80, "/last"))
	require.Equal(t, msgNoReport, api.messages()[0])

	bot.handleMessage(ctx, photo(80, 5, "f5"))
	<-inspector.started
	bot.wg.Wait()

	bot.handleMessage(ctx, command(80, "/last"))
	sent := api.messages()
	require.Equal(t, sent[len(sent)-2], sent[len(sent)-1])
	require.Contains(t, sent[len(sent)-1], "telegram_80_5.jpg")
}

func TestFormatReport(t *testing.T) {
	table := entity.NewPortTable()
	table.MarkConnected(1)
	table.MarkConnected(5)
	inspection := &entity.Inspection{Image: "device.jpg", Ports: table.Report()}

	text := FormatReport(inspection)
	lines := strings.Split(text, "\n")

	require.Contains(t, lines[0], "device.jpg")
	require.Equal(t, "✅ Порт 1 — connected", lines[2])
	require.Equal(t, "❌ Порт 2 — not connected", lines[3])
	require.Equal(t, "✅ Порт 5 — connected", lines[6])
	require.Equal(t, "❌ Порт 8 — not connected", lines[9])
	require.True(t, strings.HasSuffix(text, "Подключено: 2 из 8 (1, 5)"))
}

func TestFormatReport_NothingConnected(t *testing.T) {
	inspection := &entity.Inspection{Image: "device.jpg", Ports: entity.NewPortTable().Report()}
	require.True(t, strings.HasSuffix(FormatReport(inspection), "Подключено: 0 из 8"))
}
