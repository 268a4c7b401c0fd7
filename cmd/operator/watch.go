package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ruteri/university-ledger/api"
	"github.com/ruteri/university-ledger/api/registryhandler"
	"github.com/ruteri/university-ledger/cmd/flags"
	"github.com/ruteri/university-ledger/ledger"
	"github.com/ruteri/university-ledger/notify"
	"github.com/urfave/cli/v2"
)

var (
	flagWatchRedisAddr = &cli.StringFlag{
		Name:    "redis-addr",
		EnvVars: []string{"REDIS_ADDR"},
		Usage:   "consume notifications from this Redis server instead of polling the API",
	}
	flagWatchRedisKey = &cli.StringFlag{
		Name:  "redis-key",
		Value: notify.DefaultRedisKey,
		Usage: "Redis list the server publishes notifications to",
	}
	flagWatchFrom = &cli.Uint64Flag{
		Name:  "from",
		Value: 1,
		Usage: "first notification sequence number when polling the API",
	}
	flagWatchInterval = &cli.DurationFlag{
		Name:  "poll-interval",
		Value: 2 * time.Second,
		Usage: "API polling interval",
	}
	flagWatchLimit = &cli.IntFlag{
		Name:  "limit",
		Usage: "stop after this many notifications (0 for no limit)",
	}
)

var watchCommand = &cli.Command{
	Name:  "watch-notifications",
	Usage: "stream committed notifications from Redis or the API log",
	Flags: []cli.Flag{flagWatchRedisAddr, flagWatchRedisKey, flagWatchFrom, flagWatchInterval, flagWatchLimit},
	Action: func(cCtx *cli.Context) error {
		logger := flags.SetupLogger(cCtx)
		ctx := cCtx.Context

		var queue notify.Queue
		if addr := cCtx.String(flagWatchRedisAddr.Name); addr != "" {
			client := redis.NewClient(&redis.Options{Addr: addr})
			defer client.Close()

			rq := notify.NewRedisQueue(client, cCtx.String(flagWatchRedisKey.Name))
			if err := rq.Ping(ctx); err != nil {
				return fmt.Errorf("could not reach redis at %s: %w", addr, err)
			}
			logger.Info("Consuming notifications from Redis", "addr", addr, "key", rq.Key())
			queue = rq
		} else {
			client, err := newClient(cCtx)
			if err != nil {
				return err
			}
			mem := notify.NewInMemory(pollBuffer)
			go pollNotifications(ctx, client, mem, cCtx.Uint64(flagWatchFrom.Name), cCtx.Duration(flagWatchInterval.Name), logger)
			logger.Info("Polling notifications", "server", cCtx.String(flags.ServerAddrFlag.Name))
			queue = mem
		}

		return watchNotifications(ctx, queue, cCtx.App.Writer, cCtx.Int(flagWatchLimit.Name))
	},
}

const pollBuffer = 256

// watchNotifications prints one line per message until ctx is done or limit
// messages have been printed.
func watchNotifications(ctx context.Context, q notify.Queue, w io.Writer, limit int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	msgs, err := q.Consume(ctx)
	if err != nil {
		return err
	}

	printed := 0
	for msg := range msgs {
		fmt.Fprintf(w, "%s %s\n", msg.Type, msg.Body)
		printed++
		if limit > 0 && printed >= limit {
			return nil
		}
	}
	return ctx.Err()
}

// pollNotifications copies the API notification log into q, starting at
// from. It stops when ctx is done.
func pollNotifications(ctx context.Context, client *registryhandler.Client, q *notify.InMemory, from uint64, interval time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ns, err := client.Notifications(ctx, from)
		if err != nil && ctx.Err() == nil {
			log.Warn("Failed to fetch notifications", "from", from, "err", err)
		}
		for _, n := range ns {
			if err := q.Publish(ctx, fromAPI(n)); err != nil {
				// Full queue or shutdown: resume from n on the next tick.
				if !errors.Is(err, notify.ErrQueueFull) && ctx.Err() == nil {
					log.Warn("Failed to queue notification", "seq", n.Seq, "err", err)
				}
				break
			}
			from = n.Seq + 1
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// rawEvent carries an API payload through the ledger notification type
// without decoding it.
type rawEvent struct {
	name    string
	payload json.RawMessage
}

func (e rawEvent) Signature() string { return e.name }

func (e rawEvent) MarshalJSON() ([]byte, error) {
	if len(e.payload) == 0 {
		return []byte("null"), nil
	}
	return e.payload, nil
}

func fromAPI(n api.Notification) ledger.Notification {
	return ledger.Notification{
		Seq:     n.Seq,
		TxSeq:   n.TxSeq,
		TxHash:  n.TxHash,
		Emitter: n.Emitter,
		Name:    n.Name,
		Topic:   n.Topic,
		Time:    n.Time,
		Payload: rawEvent{name: n.Name, payload: n.Payload},
	}
}
