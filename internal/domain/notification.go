package domain

// NotificationKind names a change broadcast to realtime listeners.
type NotificationKind string

const (
	NotificationCreated NotificationKind = "created"
	NotificationUpdated NotificationKind = "updated"
	NotificationDeleted NotificationKind = "deleted"
)

// Notifier fans out post-mutation snapshots to connected listeners.
// Delivery is best effort: Notify never blocks on listeners and never fails.
type Notifier interface {
	Notify(kind NotificationKind, payload any)
}
