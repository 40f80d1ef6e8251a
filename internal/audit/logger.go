// Package audit records authentication decisions as structured log lines.
package audit

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Actions recorded by the authentication core.
const (
	ActionLogin          = "login"
	ActionRegister       = "register"
	ActionFederatedLogin = "federated_login"
	ActionAccountLinked  = "account_linked"
	ActionEmailVerified  = "email_verified"
	ActionRedirect       = "redirect"
)

// Event is a single authentication decision. A nil Err marks it successful.
type Event struct {
	Action  string
	Subject string // user id, or the submitted email when no user was resolved
	Target  string // provider id or redirect target
	Details string
	Err     error
}

var override atomic.Pointer[zerolog.Logger]

// SetOutput routes audit events to l instead of the global logger.
func SetOutput(l zerolog.Logger) {
	override.Store(&l)
}

func logger() *zerolog.Logger {
	if l := override.Load(); l != nil {
		return l
	}
	return &log.Logger
}

// Record writes e under the "audit" channel of service. Failures are logged at warn level.
func Record(ctx context.Context, service string, e Event) {
	l := logger()

	var ev *zerolog.Event
	if e.Err != nil {
		ev = l.Warn().AnErr("reason", e.Err)
	} else {
		ev = l.Info()
	}

	ev = ev.Ctx(ctx).
		Timestamp().
		Str("audit", service).
		Str("action", e.Action).
		Bool("success", e.Err == nil)
	for key, value := range map[string]string{"user": e.Subject, "target": e.Target, "details": e.Details} {
		if value != "" {
			ev = ev.Str(key, value)
		}
	}

	ev.Msg("audit event")
}
