// Package notify fans match-found notices out to whatever channels a queue
// entry asked for. Delivery is best-effort: a dead socket or missing handle
// is logged and counted, never surfaced to the matchmaking flow.
package notify

import (
	"log"

	"github.com/obsanitylabs/fantasy-crypto/internal/metrics"
	"github.com/obsanitylabs/fantasy-crypto/internal/model"
)

// PushSender delivers to live WebSocket sessions. *ws.Hub satisfies it.
type PushSender interface {
	Send(address, msgType string, data any) bool
}

// DirectSender delivers to an external handle (telegram, twitter DM).
type DirectSender interface {
	SendMatchFound(handle string, match *model.Match) error
}

type Dispatcher struct {
	push     PushSender
	telegram DirectSender
	twitter  DirectSender
	metrics  *metrics.Metrics
}

func NewDispatcher(push PushSender, telegram, twitter DirectSender, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{push: push, telegram: telegram, twitter: twitter, metrics: m}
}

// MatchFound notifies one participant that their match formed. Tries the
// live socket first, then the entry's preferred external channel.
func (d *Dispatcher) MatchFound(address string, entry *model.QueueEntry, match *model.Match) {
	delivered := false
	if d.push != nil && d.push.Send(address, "match_found", match) {
		delivered = true
	}

	if entry != nil && entry.NotificationMethod != nil && entry.NotificationHandle != nil {
		sender := d.senderFor(*entry.NotificationMethod)
		if sender != nil {
			if err := sender.SendMatchFound(*entry.NotificationHandle, match); err != nil {
				log.Printf("[notify] %s delivery to %s failed: %v",
					*entry.NotificationMethod, *entry.NotificationHandle, err)
			} else {
				delivered = true
			}
		}
	}

	if delivered {
		d.metrics.NotifyDelivered.Inc()
	} else {
		d.metrics.NotifyFailures.Inc()
		log.Printf("[notify] no channel reached %s for match %s", address, match.ID)
	}
}

func (d *Dispatcher) senderFor(method string) DirectSender {
	switch method {
	case model.NotifyTelegram:
		return d.telegram
	case model.NotifyTwitter:
		return d.twitter
	}
	return nil
}

// LogSender is a stand-in DirectSender that only logs, used until a real
// telegram/twitter integration is configured.
type LogSender struct {
	Channel string
}

func (l LogSender) SendMatchFound(handle string, match *model.Match) error {
	log.Printf("[notify] (%s) would notify %s: match %s formed", l.Channel, handle, match.ID)
	return nil
}
