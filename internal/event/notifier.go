package event

// Notifier bridges the engine's UI-facing collaborator interfaces onto the
// bus: refresh requests and toasts become events the websocket hub streams to
// connected journal UIs.
type Notifier struct {
	bus Bus
}

func NewNotifier(bus Bus) *Notifier {
	return &Notifier{bus: bus}
}

// RefreshUI implements service.UIRefreshNotifier.
func (n *Notifier) RefreshUI(reason string) {
	n.bus.Publish(New(TypeSessionChanged, map[string]string{"reason": reason}))
}

// Notify implements service.NotificationSink.
func (n *Notifier) Notify(message string, severity string) {
	n.bus.Publish(New(TypeNotification, Notification{Message: message, Severity: severity}))
}
