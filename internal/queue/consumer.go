// Background consumers for the marketplace's side-effect queues.  Each
// consumer runs a reconnect loop and never stops the server: processing
// errors are logged and the offending message is rejected without
// requeue so a poison message cannot wedge the queue.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/mantasj/ticket-marketplace/internal/cache"
)

// activityRetention is how long per-user activity feeds are kept, and
// activityFeedMax how many entries each feed holds.  Mirrors the
// thirty-day retention the tracking store used before the feeds moved to
// Redis.
const (
	activityRetention = 30 * 24 * time.Hour
	activityFeedMax   = 100
)

// StartOrderEventsConsumer consumes order lifecycle messages and drops
// the analytics cache.  Run it in its own goroutine; it returns only when
// the consume loop cannot be re-established.
func StartOrderEventsConsumer(c *cache.Cache) error {
	return runConsumer(OrderEventsQueue, func(body []byte) error {
		var ev OrderEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		c.InvalidateOrderRelated(context.Background())
		log.Printf("order-consumer: order %d %s, analytics cache invalidated", ev.OrderID, ev.Type)
		return nil
	})
}

// StartActivityConsumer consumes cart/page-view activity.  Each message
// is appended to logs/activity.log and, when Redis is available, pushed
// onto the per-user feed list that backs the activity endpoints.
func StartActivityConsumer(rdb *redis.Client) error {
	return runConsumer(ActivityQueue, func(body []byte) error {
		var ev ActivityEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		line := fmt.Sprintf("[%s] %s | user_id=%d | ticket_id=%d | event_id=%d | kind=%s | seat=%q | price=%d cents\n",
			ev.OccurredAt, ev.Action, ev.UserID, ev.TicketID, ev.EventID, ev.Kind, ev.Seat, ev.PriceCents)
		if err := appendLog("activity.log", line); err != nil {
			return err
		}
		if rdb != nil {
			if err := pushFeed(rdb, ev, body); err != nil {
				// Feed is a convenience view; the log line already landed.
				log.Printf("activity-consumer: feed push failed: %v", err)
			}
		}
		return nil
	})
}

// FeedKey returns the Redis list key of a user's activity feed.  Cart
// actions and event views are kept in separate feeds.
func FeedKey(userID uint64, action string) string {
	category := "cart"
	if action == ActionEventView {
		category = "views"
	}
	return "activity:" + category + ":" + strconv.FormatUint(userID, 10)
}

func pushFeed(rdb *redis.Client, ev ActivityEvent, raw []byte) error {
	ctx := context.Background()
	key := FeedKey(ev.UserID, ev.Action)
	pipe := rdb.Pipeline()
	pipe.LPush(ctx, key, raw)
	pipe.LTrim(ctx, key, 0, activityFeedMax-1)
	pipe.Expire(ctx, key, activityRetention)
	_, err := pipe.Exec(ctx)
	return err
}

// StartGraphSyncConsumer consumes purchase facts destined for the
// recommendation graph and appends them to logs/graph.log in a
// single-line format an importer can tail.
func StartGraphSyncConsumer() error {
	return runConsumer(GraphSyncQueue, func(body []byte) error {
		var ev PurchaseEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		line := fmt.Sprintf("[%s] BOUGHT | user_id=%d | event_id=%d | title=%q\n",
			ev.OccurredAt, ev.UserID, ev.EventID, ev.Title)
		return appendLog("graph.log", line)
	})
}

func appendLog(name, line string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join("logs", name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// runConsumer connects to RabbitMQ, declares the queue (durable), and
// consumes messages with the given handler, reconnecting with
// exponential backoff when the broker goes away.
func runConsumer(queueName string, handle func([]byte) error) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(brokerURL())
		if err != nil {
			log.Printf("%s-consumer: failed to dial broker: %v; retrying in %s", queueName, err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, queueName, handle); err != nil {
			log.Printf("%s-consumer: consume loop ended: %v; reconnecting", queueName, err)
			time.Sleep(2 * time.Second)
			continue
		}
	}
}

func consumeLoop(conn *amqp.Connection, queueName string, handle func([]byte) error) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("%s-consumer: set QoS failed: %v", queueName, err)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handle(d.Body); err != nil {
			log.Printf("%s-consumer: handle message failed: %v", queueName, err)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}
