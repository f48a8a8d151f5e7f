package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/wb-tariffs/internal/tariffsync"
)

// NotifySync запоминает итог для /status и шлёт его админу.
func (b *Bot) NotifySync(_ context.Context, rep tariffsync.Report) {
	b.mu.Lock()
	b.last = &rep
	b.mu.Unlock()

	if b.adminChat == 0 {
		return
	}
	b.send(tgbotapi.NewMessage(b.adminChat, FormatReport(rep)))
}

var resultTitles = map[string]string{
	tariffsync.ResultOK:          "✅ Тарифы синхронизированы",
	tariffsync.ResultPartial:     "⚠️ Синхронизация прошла с ошибками",
	tariffsync.ResultFetchFailed: "❌ Не удалось получить тарифы",
	tariffsync.ResultEmpty:       "⚠️ Источник вернул пустой список",
	tariffsync.ResultSkipped:     "⏭ Синхронизация пропущена",
}

// FormatReport собирает текст отчёта для Telegram.
func FormatReport(rep tariffsync.Report) string {
	var sb strings.Builder
	sb.WriteString(resultTitles[rep.Result()])
	sb.WriteString("\n")

	if rep.Source != "" {
		fmt.Fprintf(&sb, "Источник: %s\n", rep.Source)
	}
	if rep.Fetched > 0 || rep.Rejected > 0 {
		fmt.Fprintf(&sb, "Получено: %d", rep.Fetched)
		if rep.Rejected > 0 {
			fmt.Fprintf(&sb, ", отброшено: %d", rep.Rejected)
		}
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "Сохранено в БД: %d\n", rep.Persisted)
		fmt.Fprintf(&sb, "Добавлено в таблицу: %d\n", rep.Appended)
	}
	for _, e := range rep.Errors {
		fmt.Fprintf(&sb, "— %s\n", e.Error())
	}
	fmt.Fprintf(&sb, "Время: %s\n", rep.Duration.Round(time.Millisecond))
	fmt.Fprintf(&sb, "run_id: %s", rep.RunID)
	return sb.String()
}
