package notification

import (
	"context"
	"log/slog"
	"sync"
)

// SentNotice is what MockNotifier recorded for one Send call.
type SentNotice struct {
	Type     NoticeType
	Data     NotificationData
	Rendered RenderedNotice
}

// MockNotifier renders and records notices instead of delivering them.
// Err, when set, is returned from every Send.
type MockNotifier struct {
	mu   sync.Mutex
	sent []SentNotice
	Err  error
}

func (m *MockNotifier) Send(ctx context.Context, noticeType NoticeType, notification NotificationData, template NoticeTemplate) error {
	if m.Err != nil {
		return m.Err
	}
	rendered, err := Render(template, notification.Data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.sent = append(m.sent, SentNotice{Type: noticeType, Data: notification, Rendered: rendered})
	m.mu.Unlock()

	slog.Debug("Mock notification recorded", "notice", noticeType, "to", notification.To)
	return nil
}

// Sent returns the recorded notices in order.
func (m *MockNotifier) Sent() []SentNotice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentNotice(nil), m.sent...)
}

// Last returns the most recent notice, if any.
func (m *MockNotifier) Last() (SentNotice, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return SentNotice{}, false
	}
	return m.sent[len(m.sent)-1], true
}
