// Package bot шлёт админу отчёты о синхронизации и принимает команды /sync, /export, /status.
package bot

import (
	"context"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/wb-tariffs/internal/domain/tariffs"
	"github.com/Spok95/wb-tariffs/internal/tariffsync"
)

// API: часть tgbotapi.BotAPI, которой пользуется бот.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type TariffLister interface {
	FindAll(ctx context.Context) ([]tariffs.Record, error)
}

type SyncTrigger interface {
	RunNow()
}

type Bot struct {
	api       API
	log       *slog.Logger
	adminChat int64
	store     TariffLister
	sync      SyncTrigger

	mu   sync.Mutex
	last *tariffsync.Report
}

func New(api API, log *slog.Logger, adminChatID int64, store TariffLister, trigger SyncTrigger) *Bot {
	return &Bot{api: api, log: log, adminChat: adminChatID, store: store, sync: trigger}
}

// SetTrigger связывает бота с планировщиком, который создаётся позже.
func (b *Bot) SetTrigger(t SyncTrigger) {
	b.mu.Lock()
	b.sync = t
	b.mu.Unlock()
}

func (b *Bot) Run(ctx context.Context, timeoutSec int) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeoutSec
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			if upd.Message != nil {
				b.onMessage(ctx, upd)
			}
		}
	}
}

func (b *Bot) send(msg tgbotapi.Chattable) {
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send failed", "err", err)
	}
}

func (b *Bot) onMessage(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if !msg.IsCommand() {
		return
	}
	// команды принимаем только из админского чата
	if msg.Chat.ID != b.adminChat {
		b.log.Warn("command from foreign chat ignored", "chat_id", msg.Chat.ID, "command", msg.Command())
		return
	}
	b.handleCommand(ctx, msg)
}
