package bot

import (
	"context"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/wb-tariffs/internal/export"
)

const helpText = "Команды:\n" +
	"/sync — запустить синхронизацию тарифов сейчас\n" +
	"/export — выгрузить сохранённые тарифы в Excel\n" +
	"/status — итог последней синхронизации"

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		b.send(tgbotapi.NewMessage(chatID, helpText))

	case "sync":
		b.mu.Lock()
		trigger := b.sync
		b.mu.Unlock()
		if trigger == nil {
			b.send(tgbotapi.NewMessage(chatID, "Синхронизация сейчас недоступна"))
			return
		}
		trigger.RunNow()
		b.send(tgbotapi.NewMessage(chatID, "Синхронизация запущена, отчёт придёт по завершении."))

	case "export":
		b.exportTariffs(ctx, chatID)

	case "status":
		b.mu.Lock()
		last := b.last
		b.mu.Unlock()
		if last == nil {
			b.send(tgbotapi.NewMessage(chatID, "Синхронизаций ещё не было"))
			return
		}
		b.send(tgbotapi.NewMessage(chatID, FormatReport(*last)))

	default:
		b.send(tgbotapi.NewMessage(chatID, "Неизвестная команда\n\n"+helpText))
	}
}

// exportTariffs отправляет xlsx со всеми сохранёнными тарифами.
func (b *Bot) exportTariffs(ctx context.Context, chatID int64) {
	items, err := b.store.FindAll(ctx)
	if err != nil {
		b.log.Error("export: load tariffs failed", "err", err)
		b.send(tgbotapi.NewMessage(chatID, "Ошибка загрузки тарифов"))
		return
	}
	if len(items) == 0 {
		b.send(tgbotapi.NewMessage(chatID, "Тарифов в базе пока нет"))
		return
	}

	data, err := export.Bytes(items)
	if err != nil {
		b.log.Error("export: build xlsx failed", "err", err)
		b.send(tgbotapi.NewMessage(chatID, "Ошибка формирования файла"))
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  export.FileName(time.Now()),
		Bytes: data,
	})
	doc.Caption = "Тарифы коробов WB, записей: " + strconv.Itoa(len(items))
	b.send(doc)
}
