// Package push shows donor alerts on an OS or browser notification surface.
// Delivery is best effort: the donor's choice comes back asynchronously
// through the notification actions endpoint, not from Show.
package push

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-bloodlink-backend/internal/domain"
	"github.com/tbourn/go-bloodlink-backend/internal/observability"
)

// Action is a button offered on an alert.
type Action string

const (
	ActionAccept  Action = "accept"
	ActionDecline Action = "decline"
	ActionView    Action = "view"
)

// DefaultActions is offered on every emergency alert.
var DefaultActions = []Action{ActionAccept, ActionDecline, ActionView}

// ParseAction normalizes s and reports whether it is a known action.
func ParseAction(s string) (Action, bool) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	switch a {
	case ActionAccept, ActionDecline, ActionView:
		return a, true
	}
	return "", false
}

// ResponseStatus maps an action to the donor response it records. View
// records nothing.
func (a Action) ResponseStatus() (domain.ResponseStatus, bool) {
	switch a {
	case ActionAccept:
		return domain.ResponseAccepted, true
	case ActionDecline:
		return domain.ResponseDeclined, true
	}
	return "", false
}

// Alert is what the donor sees.
type Alert struct {
	Title     string
	Body      string
	Actions   []Action
	RequestID string
	DonorID   string
}

// Surface shows alerts to donors.
type Surface interface {
	Show(ctx context.Context, a Alert) error
}

// NopSurface discards alerts. It is used when no push URLs are configured.
type NopSurface struct{}

// Show implements Surface.
func (NopSurface) Show(context.Context, Alert) error { return nil }

// sender is the part of shoutrrr's router used here.
type sender interface {
	Send(message string, params *stypes.Params) []error
}

// ShoutrrrSurface delivers alerts through shoutrrr service URLs (ntfy,
// gotify, pushover, generic webhooks...). Repeated alerts for the same
// donor and request within the dedupe window are suppressed.
type ShoutrrrSurface struct {
	sender sender
	seen   *cache.Cache
	log    zerolog.Logger
}

// NewShoutrrrSurface builds a surface for urls. A zero dedupeTTL disables
// deduplication.
func NewShoutrrrSurface(urls []string, timeout, dedupeTTL time.Duration, lg zerolog.Logger) (*ShoutrrrSurface, error) {
	if len(urls) == 0 {
		return nil, errors.New("push: at least one URL is required")
	}
	router, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, fmt.Errorf("push: %w", err)
	}
	if timeout > 0 {
		router.Timeout = timeout
	}
	router.SetLogger(log.New(io.Discard, "", 0))
	return newShoutrrrSurface(router, dedupeTTL, lg), nil
}

func newShoutrrrSurface(s sender, dedupeTTL time.Duration, lg zerolog.Logger) *ShoutrrrSurface {
	out := &ShoutrrrSurface{sender: s, log: lg.With().Str("component", "push").Logger()}
	if dedupeTTL > 0 {
		out.seen = cache.New(dedupeTTL, 2*dedupeTTL)
	}
	return out
}

// Show implements Surface.
func (s *ShoutrrrSurface) Show(ctx context.Context, a Alert) error {
	key := a.DonorID + "|" + a.RequestID
	if s.seen != nil {
		if _, found := s.seen.Get(key); found {
			observability.PushAlerts.WithLabelValues("deduped").Inc()
			return nil
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := stypes.Params{}
	if a.Title != "" {
		params.SetTitle(a.Title)
	}
	for _, e := range s.sender.Send(renderBody(a), &params) {
		if e != nil {
			observability.PushAlerts.WithLabelValues("failed").Inc()
			return &domain.DependencyError{Op: "push.show", Err: e}
		}
	}

	if s.seen != nil {
		s.seen.SetDefault(key, struct{}{})
	}
	observability.PushAlerts.WithLabelValues("sent").Inc()
	s.log.Debug().Str("donor_id", a.DonorID).Str("request_id", a.RequestID).Msg("push alert sent")
	return nil
}

// renderBody appends the action hints plain-text services can show.
func renderBody(a Alert) string {
	if len(a.Actions) == 0 {
		return a.Body
	}
	names := make([]string, 0, len(a.Actions))
	for _, act := range a.Actions {
		names = append(names, string(act))
	}
	return fmt.Sprintf("%s\n\nActions: %s (request %s)", a.Body, strings.Join(names, " | "), a.RequestID)
}
