// Package notification delivers templated messages to users.
package notification

import "context"

// NoticeType names a kind of message, such as a reset PIN.
type NoticeType string

// NotificationData carries the recipient and the values substituted into the template.
type NotificationData struct {
	To   string            // Recipient email address
	Data map[string]string // Template values
}

// NoticeTemplate holds the text/template sources for one notice.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

type Notifier interface {
	Send(ctx context.Context, noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}
