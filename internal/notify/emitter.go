// Package notify delivers workflow notifications as inbox messages in the
// background so a slow or failing store never holds up a state change.
package notify

import (
	"context"
	"sync"
	"time"

	"volunteerhub/internal/utils"
	"volunteerhub/pkg/types"

	"github.com/sirupsen/logrus"
)

type MessageWriter interface {
	CreateMessage(ctx context.Context, msg *types.Message) error
}

type Emitter struct {
	logger  logrus.FieldLogger
	writer  MessageWriter
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan *types.Message
	done   chan struct{}
}

// NewEmitter starts the delivery worker. queueSize bounds the number of
// undelivered notifications; beyond it new ones are dropped.
func NewEmitter(logger logrus.FieldLogger, writer MessageWriter, queueSize int, timeout time.Duration) *Emitter {
	if queueSize < 1 {
		queueSize = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	e := &Emitter{
		logger:  logger.WithField("component", "notify"),
		writer:  writer,
		timeout: timeout,
		queue:   make(chan *types.Message, queueSize),
		done:    make(chan struct{}),
	}

	go e.run()

	return e
}

// Notify enqueues a message without blocking.
func (e *Emitter) Notify(_ context.Context, senderID, receiverID, content string) {
	msg := &types.Message{
		ID:         utils.NanoID(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  time.Now(),
	}

	entry := e.logger.WithFields(logrus.Fields{
		"message_id":  msg.ID,
		"receiver_id": receiverID,
	})

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		entry.Warn("notification dropped, emitter closed")
		return
	}

	select {
	case e.queue <- msg:
	default:
		entry.Error("notification dropped, queue full")
	}
}

func (e *Emitter) run() {
	defer close(e.done)

	for msg := range e.queue {
		e.deliver(msg)
	}
}

func (e *Emitter) deliver(msg *types.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	if err := e.writer.CreateMessage(ctx, msg); err != nil {
		e.logger.WithError(err).WithFields(logrus.Fields{
			"message_id":  msg.ID,
			"sender_id":   msg.SenderID,
			"receiver_id": msg.ReceiverID,
		}).Error("failed to deliver notification")
		return
	}

	e.logger.WithField("message_id", msg.ID).Debug("notification delivered")
}

// Close stops accepting notifications and waits for the queue to drain or
// ctx to end, whichever comes first.
func (e *Emitter) Close(ctx context.Context) error {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.queue)
	}
	e.mu.Unlock()

	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
