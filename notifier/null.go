package notifier

import "context"

// Null drops every notification.
type Null struct{}

func (n *Null) Send(ctx context.Context, message string) {
}
