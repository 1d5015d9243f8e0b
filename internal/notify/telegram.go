// Package notify pushes attendance events to the operations Telegram chat.
// Delivery is best effort: a failed send is logged and dropped, never
// retried, and never blocks a kiosk operation.
package notify

import (
	"fmt"
	"strings"
	"time"

	"crewtime/internal/events"
	"crewtime/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Notifier sends event summaries to one or more chats.
type Notifier struct {
	bot     *tgbotapi.BotAPI
	chatIDs []int64
	loc     *time.Location
	logger  zerolog.Logger
}

func NewNotifier(token string, chatIDs []int64, loc *time.Location, logger zerolog.Logger) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}
	n := &Notifier{
		bot:     bot,
		chatIDs: chatIDs,
		loc:     loc,
		logger:  logger.With().Str("component", "notify").Logger(),
	}
	n.logger.Info().Str("bot", bot.Self.UserName).Int("chats", len(chatIDs)).Msg("telegram notifier ready")
	return n, nil
}

// Subscribe wires the notifier to the event bus.
func (n *Notifier) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.TypeCheckedIn, n.onCheckedIn)
	bus.Subscribe(events.TypeCheckedOut, n.onCheckedOut)
	bus.Subscribe(events.TypeStaleEntry, n.onStale)
}

func (n *Notifier) onCheckedIn(ev events.Event) error {
	p := ev.Attendance
	n.send(fmt.Sprintf("✅ %s 出勤 %s\n%s",
		slotLabel(p), p.At.In(n.loc).Format("15:04"), members(p)))
	return nil
}

func (n *Notifier) onCheckedOut(ev events.Event) error {
	p := ev.Attendance
	n.send(fmt.Sprintf("🏁 %s 退勤 %s（%d分）\n%s",
		slotLabel(p), p.At.In(n.loc).Format("15:04"), p.Minutes, members(p)))
	return nil
}

func (n *Notifier) onStale(ev events.Event) error {
	p := ev.Attendance
	n.send(fmt.Sprintf("⚠️ %s %s の出勤が退勤されないまま残っています（開始 %s）",
		slotLabel(p), p.Date, p.At.In(n.loc).Format("15:04")))
	return nil
}

func (n *Notifier) send(text string) {
	for _, chatID := range n.chatIDs {
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := n.bot.Send(msg); err != nil {
			n.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("telegram send failed")
		}
	}
}

func slotLabel(p events.AttendancePayload) string {
	return model.Hall(p.Hall).Label() + "・" + model.Role(p.Role).Label()
}

func members(p events.AttendancePayload) string {
	return strings.Join(p.MemberNames, "、")
}
