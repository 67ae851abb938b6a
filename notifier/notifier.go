// Package notifier announces a finished release to an external channel.
// Destinations are configured with scheme URLs such as
// slack://channel?title=myapp or mail://smtp.example.com/ops@example.com.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"strings"

	"github.com/gorilla/schema"
)

var decoder = schema.NewDecoder()

// Notifier sends a one-line message about a release event. Failures are
// logged, never fatal; a notification must not abort a finished release.
type Notifier interface {
	Send(ctx context.Context, message string)
}

// New builds a Notifier from a scheme URL. An empty URL yields the Null
// notifier.
func New(rawURL string, logger *slog.Logger) (Notifier, error) {
	if rawURL == "" {
		return &Null{}, nil
	}

	scheme, rest, found := strings.Cut(rawURL, "://")
	if !found {
		return nil, fmt.Errorf("invalid notifier url: %s", rawURL)
	}

	switch scheme {
	case "slack":
		return NewSlack(rawURL, logger)
	case "mail", "smtp":
		return NewMail(rest, logger)
	}
	return nil, fmt.Errorf("unsupported notifier scheme: %s", scheme)
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}

func username() string {
	u, err := user.Current()
	if err != nil {
		return "unknown"
	}
	return u.Username
}
