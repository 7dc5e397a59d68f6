package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// NotificationManager looks up the template for a notice and hands it to
// every registered notifier.
type NotificationManager struct {
	mu        sync.RWMutex
	notifiers []Notifier
	templates map[NoticeType]NoticeTemplate
}

// NewNotificationManager creates a manager preloaded with DefaultTemplates.
func NewNotificationManager(notifiers ...Notifier) *NotificationManager {
	return &NotificationManager{
		notifiers: notifiers,
		templates: DefaultTemplates(),
	}
}

func (nm *NotificationManager) RegisterNotifier(notifier Notifier) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	nm.notifiers = append(nm.notifiers, notifier)
}

// RegisterTemplate adds or replaces the template for a notice type.
func (nm *NotificationManager) RegisterTemplate(noticeType NoticeType, tmpl NoticeTemplate) error {
	if noticeType == "" || tmpl.Subject == "" || (tmpl.Text == "" && tmpl.Html == "") {
		return fmt.Errorf("invalid template for notice type %q", noticeType)
	}
	nm.mu.Lock()
	defer nm.mu.Unlock()
	nm.templates[noticeType] = tmpl
	return nil
}

// Send delivers the notice through all notifiers and joins their errors.
func (nm *NotificationManager) Send(ctx context.Context, noticeType NoticeType, data NotificationData) error {
	nm.mu.RLock()
	tmpl, ok := nm.templates[noticeType]
	notifiers := append([]Notifier(nil), nm.notifiers...)
	nm.mu.RUnlock()

	if !ok {
		return fmt.Errorf("no template registered for notice type: %s", noticeType)
	}
	if len(notifiers) == 0 {
		return fmt.Errorf("no notifier registered")
	}

	var errs []error
	for _, n := range notifiers {
		if err := n.Send(ctx, noticeType, data, tmpl); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
