// internal/cache/actions.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/TimPolDev/memoriesDev/internal/game"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultActionKey is the Redis list room actions are pushed to.
	DefaultActionKey = "room_actions"
	// DefaultMaxLen caps the list; older entries are trimmed.
	DefaultMaxLen = 100000

	publishTimeout = 2 * time.Second
)

// ActionPublisher feeds room action records to a Redis list for the
// historian. Records are queued by Record and written in order by Run.
type ActionPublisher struct {
	rdb    redis.Cmdable
	key    string
	maxLen int64
	queue  chan game.ActionRecord
	log    logrus.FieldLogger
}

// NewActionPublisher returns a publisher writing to key. A zero maxLen
// keeps DefaultMaxLen.
func NewActionPublisher(rdb redis.Cmdable, key string, maxLen int64, log logrus.FieldLogger) *ActionPublisher {
	if key == "" {
		key = DefaultActionKey
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	return &ActionPublisher{
		rdb:    rdb,
		key:    key,
		maxLen: maxLen,
		queue:  make(chan game.ActionRecord, 1024),
		log:    log.WithField("component", "action_log"),
	}
}

// Record queues rec without blocking. When the queue is full the record is
// dropped.
func (p *ActionPublisher) Record(rec game.ActionRecord) {
	if p == nil {
		return
	}
	select {
	case p.queue <- rec:
	default:
		p.log.WithFields(logrus.Fields{"room": rec.RoomID, "action": rec.ActionType}).Warn("action log queue full, record dropped")
	}
}

// Run writes queued records until ctx is done.
func (p *ActionPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case rec := <-p.queue:
			pctx, cancel := context.WithTimeout(ctx, publishTimeout)
			if err := p.Publish(pctx, rec); err != nil {
				p.log.WithError(err).WithFields(logrus.Fields{"room": rec.RoomID, "index": rec.ActionIndex}).Error("failed publishing room action")
			}
			cancel()
		}
	}
}

// Publish writes one record and trims the list.
func (p *ActionPublisher) Publish(ctx context.Context, rec game.ActionRecord) error {
	data, err := EncodeAction(rec)
	if err != nil {
		return err
	}
	pipe := p.rdb.TxPipeline()
	pipe.RPush(ctx, p.key, data)
	pipe.LTrim(ctx, p.key, -p.maxLen, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push action to %s: %w", p.key, err)
	}
	return nil
}

// EncodeAction is the list entry format of a record.
func EncodeAction(rec game.ActionRecord) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal action %s/%d: %w", rec.RoomID, rec.ActionIndex, err)
	}
	return data, nil
}
