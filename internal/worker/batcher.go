package worker

import (
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/vietcms/moderation/internal/broker"
)

// task pairs a decoded job message with its delivery for acking.
type task struct {
	msg      broker.JobMessage
	delivery amqp.Delivery
	received time.Time
}

// batcher groups incoming tasks by job type so text jobs can share one
// model batch. A group is flushed when it reaches maxSize or when the
// oldest queued task has waited for the timeout.
type batcher struct {
	maxSize int
	timeout time.Duration

	in  chan task
	out chan []task
}

func newBatcher(maxSize int, timeout time.Duration) *batcher {
	return &batcher{
		maxSize: maxSize,
		timeout: timeout,
		in:      make(chan task),
		out:     make(chan []task),
	}
}

// run consumes tasks until in is closed, then flushes what remains and
// closes out.
func (b *batcher) run() {
	pending := make(map[string][]task)
	total := 0

	timer := time.NewTimer(b.timeout)
	if !timer.Stop() {
		<-timer.C
	}

	flushAll := func() {
		for jobType, tasks := range pending {
			if len(tasks) > 0 {
				b.out <- tasks
			}
			delete(pending, jobType)
		}
		total = 0
	}

	for {
		select {
		case t, ok := <-b.in:
			if !ok {
				flushAll()
				close(b.out)
				return
			}
			if total == 0 {
				timer.Reset(b.timeout)
			}
			pending[t.msg.Type] = append(pending[t.msg.Type], t)
			total++
			if len(pending[t.msg.Type]) >= b.maxSize {
				group := pending[t.msg.Type]
				delete(pending, t.msg.Type)
				total -= len(group)
				b.out <- group
			}
			if total == 0 {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
			}
		case <-timer.C:
			flushAll()
		}
	}
}
