package ui

import (
	"fmt"
	"os/exec"
	"runtime"
)

// NotificationSender sends a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", title, message).Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// Notifier prints crawl outcomes and optionally raises a desktop notification
// for long unattended runs
type Notifier struct {
	sender NotificationSender
}

// NewNotifier creates a Notifier. With desktop false, or on a platform
// without a sender, messages only go to the terminal.
func NewNotifier(desktop bool) *Notifier {
	n := &Notifier{}
	if !desktop {
		return n
	}
	switch runtime.GOOS {
	case "linux":
		n.sender = &LinuxNotificationSender{}
	case "darwin":
		n.sender = &MacOSNotificationSender{}
	}
	return n
}

// NewNotifierWithSender creates a Notifier using sender
func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender}
}

// SendSuccess reports a successful crawl
func (n *Notifier) SendSuccess(title, message string) {
	printf(false, "\n%s: %s\n", Green(title), Green(message))
	n.send(title, message)
}

// SendError reports a failed crawl
func (n *Notifier) SendError(title, message string) {
	printf(true, "\n%s: %s\n", Red(title), Red(message))
	n.send(title, message)
}

func (n *Notifier) send(title, message string) {
	if n.sender != nil {
		// Desktop notifications are best effort
		_ = n.sender.Send(title, message)
	}
}
