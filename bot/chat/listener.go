package chat

// SessionListener is notified after every session save, e.g. to push live
// updates to admin dashboards without importing the transport from here.
type SessionListener interface {
	SessionChanged(s Session)
}
