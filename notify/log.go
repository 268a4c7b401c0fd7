package notify

import (
	"context"
	"log/slog"

	"github.com/ruteri/university-ledger/ledger"
)

// LogSink writes every notification to a structured logger.
type LogSink struct {
	log   *slog.Logger
	level slog.Level
}

func NewLogSink(log *slog.Logger, level slog.Level) *LogSink {
	return &LogSink{log: log, level: level}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Publish(ctx context.Context, n ledger.Notification) error {
	s.log.LogAttrs(ctx, s.level, "Notification",
		slog.Uint64("seq", n.Seq),
		slog.Uint64("tx_seq", n.TxSeq),
		slog.String("name", n.Name),
		slog.String("emitter", n.Emitter.Hex()),
		slog.Any("payload", n.Payload))
	return nil
}
