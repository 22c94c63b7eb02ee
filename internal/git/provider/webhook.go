package provider

// Webhook event types
const (
	EventTypePush  = "push"
	EventTypePing  = "ping"
	EventTypeOther = "other"
)

// WebhookEvent is a provider webhook reduced to what a sync needs.
type WebhookEvent struct {
	Provider string
	Type     string
	// RepositoryURL is the normalized web URL of the pushed repository
	RepositoryURL string
	// Branch is the pushed branch without the refs/heads/ prefix
	Branch    string
	CommitSHA string
	// Senders lists the identities that may map to a local user, most
	// specific first. Local users are keyed by email.
	Senders    []string
	RawPayload []byte
}

// IsPush reports whether the event should trigger a sync
func (e *WebhookEvent) IsPush() bool {
	return e != nil && e.Type == EventTypePush
}
