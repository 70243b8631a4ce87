package repository

import (
	"time"

	"github.com/lib/pq"

	"github.com/rongwang/bookkeeper-server/internal/utils"
)

// accountChannel is the NOTIFY channel raised by the accounts trigger
// installed in config.SetupDatabase. The notification payload is the owner
// id of the mutated row.
const accountChannel = "account_changes"

const (
	listenerMinReconnect = 2 * time.Second
	listenerMaxReconnect = 30 * time.Second
)

// Subscribe opens a dedicated LISTEN connection and invokes onChange for
// every account mutation belonging to ownerID. Callers re-list accounts on
// every callback, so missed notifications during a reconnect only delay
// convergence; the listener's reconnect event also triggers onChange to
// cover that window.
func (r *PostgresRepository) Subscribe(ownerID string, onChange func()) (func(), error) {
	reconnected := make(chan struct{}, 1)

	listener := pq.NewListener(r.dsn, listenerMinReconnect, listenerMaxReconnect,
		func(event pq.ListenerEventType, err error) {
			if err != nil {
				utils.Logger().WithError(err).Warn("account change listener event")
			}
			if event == pq.ListenerEventReconnected {
				select {
				case reconnected <- struct{}{}:
				default:
				}
			}
		})

	if err := listener.Listen(accountChannel); err != nil {
		listener.Close()
		return nil, err
	}

	done := make(chan struct{})

	go func() {
		for {
			select {
			case notification, ok := <-listener.Notify:
				if !ok {
					return
				}
				// A nil notification signals a dropped connection.
				if notification == nil || notification.Extra == ownerID {
					onChange()
				}
			case <-reconnected:
				onChange()
			case <-done:
				return
			}
		}
	}()

	cancel := func() {
		close(done)
		if err := listener.Close(); err != nil {
			utils.Logger().WithError(err).Warn("closing account change listener")
		}
	}

	return cancel, nil
}
