// Package feed delivers data-store change events to the broadcaster.
//
// A Subscription is an ordered, pull-based sequence: the dispatch loop calls
// Next until it returns an error. Implementations reconnect on their own
// where the transport allows it, so a transient outage is a pause in the
// sequence rather than its end.
package feed

import (
	"context"
	"errors"

	"go-live-feed/internal/domain/change"
)

// ErrClosed is returned by Next once the subscription has been closed.
var ErrClosed = errors.New("feed: subscription closed")

type Subscription interface {
	// Next blocks until the next event is available, ctx is done or the
	// subscription is closed.
	Next(ctx context.Context) (change.Event, error)
	Close() error
}

// DocumentReader loads the current version of a document. Feeds that only
// carry changed fields use it to fill in Updated.FullDocument.
type DocumentReader interface {
	FindDocument(ctx context.Context, entity string, id any) (change.Document, error)
}
