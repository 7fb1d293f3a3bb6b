// services/notifier.go
package services

import "log"

// NotificationCapability abstracts the user-facing notification surface
// (permission request, permission state, showing a notification) so that
// headless and non-browser targets can plug in their own implementation.
type NotificationCapability interface {
	RequestPermission() error
	IsGranted() bool
	Show(title, body, tag string) error
}

// LogNotifier writes notifications to the process log. Default for headless
// deployments.
type LogNotifier struct {
	granted bool
}

func (n *LogNotifier) RequestPermission() error {
	n.granted = true
	return nil
}

func (n *LogNotifier) IsGranted() bool {
	return n.granted
}

func (n *LogNotifier) Show(title, body, tag string) error {
	log.Printf("[NOTIFY] %s: %s (tag=%s)", title, body, tag)
	return nil
}

// NoopNotifier never shows anything and never has permission.
type NoopNotifier struct{}

func (NoopNotifier) RequestPermission() error        { return nil }
func (NoopNotifier) IsGranted() bool                 { return false }
func (NoopNotifier) Show(title, body, tag string) error { return nil }
