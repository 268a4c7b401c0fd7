package ledger

import (
	"context"
	"encoding/binary"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/university-ledger/metrics"
)

// Call identifies the origin and target of a transaction.
type Call struct {
	From common.Address
	To   common.Address

	// Component and Method label the transaction in logs and metrics.
	Component string
	Method    string
}

// Ledger serializes all component operations into atomic transactions.
type Ledger struct {
	mu     sync.RWMutex
	clock  Clock
	log    *slog.Logger
	txSeq  uint64
	nonces map[common.Address]uint64
	events []Notification

	sinkMu sync.RWMutex
	sinks  []Sink

	// pubMu is taken before mu is released so sinks see commits in Seq order.
	pubMu sync.Mutex
}

// New creates an empty ledger. A nil clock selects SystemClock and a nil
// logger selects slog.Default().
func New(clock Clock, log *slog.Logger) *Ledger {
	if clock == nil {
		clock = SystemClock{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Ledger{
		clock:  clock,
		log:    log,
		nonces: make(map[common.Address]uint64),
	}
}

// AddSink registers a notification sink. Sinks only see notifications
// committed after registration.
func (l *Ledger) AddSink(s Sink) {
	l.sinkMu.Lock()
	defer l.sinkMu.Unlock()
	l.sinks = append(l.sinks, s)
}

// Execute runs fn as one atomic transaction. If fn returns an error or
// panics, every write made through the Tx is undone, buffered notifications
// are dropped, and the error (or panic) is propagated unchanged.
func (l *Ledger) Execute(ctx context.Context, call Call, fn func(tx *Tx) error) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	outcome := metrics.OutcomeReverted
	defer func() {
		metrics.ObserveTransaction(call.Component, call.Method, outcome, time.Since(start))
	}()

	l.mu.Lock()
	tx := &Tx{
		caller: call.From,
		seq:    l.txSeq + 1,
		now:    l.clock.Now(),
	}

	committed := false
	defer func() {
		if !committed {
			tx.revert()
			l.mu.Unlock()
		}
	}()

	if err := fn(tx); err != nil {
		l.log.Debug("Transaction reverted",
			slog.String("component", call.Component),
			slog.String("method", call.Method),
			slog.String("from", call.From.Hex()),
			"err", err)
		return nil, err
	}

	receipt := &Receipt{
		TxSeq:  tx.seq,
		TxHash: txHash(tx.seq, call, tx.now),
		From:   call.From,
		To:     call.To,
		Method: call.Method,
		Time:   tx.now,
	}
	for _, pe := range tx.events {
		n := Notification{
			Seq:     uint64(len(l.events)) + 1,
			TxSeq:   tx.seq,
			TxHash:  receipt.TxHash,
			Emitter: pe.emitter,
			Name:    EventName(pe.event),
			Topic:   Topic(pe.event),
			Time:    tx.now,
			Payload: pe.event,
		}
		l.events = append(l.events, n)
		receipt.Notifications = append(receipt.Notifications, n)
	}
	l.txSeq = tx.seq

	committed = true
	l.pubMu.Lock()
	l.mu.Unlock()
	outcome = metrics.OutcomeCommitted

	func() {
		defer l.pubMu.Unlock()
		l.publish(context.WithoutCancel(ctx), receipt.Notifications)
	}()
	return receipt, nil
}

// View runs fn with a read-only Tx under the ledger read lock.
func (l *Ledger) View(fn func(tx *Tx) error) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return fn(&Tx{
		seq:      l.txSeq,
		now:      l.clock.Now(),
		readOnly: true,
	})
}

// Deploy allocates the next component address for deployer and runs init in
// the same transaction. The address is derived from (deployer, nonce) the
// same way contract creation addresses are.
func (l *Ledger) Deploy(ctx context.Context, deployer common.Address, component string, init func(tx *Tx, self common.Address) error) (common.Address, *Receipt, error) {
	var addr common.Address
	receipt, err := l.Execute(ctx, Call{From: deployer, Component: component, Method: "deploy"}, func(tx *Tx) error {
		nonce := l.nonces[deployer]
		addr = crypto.CreateAddress(deployer, nonce)
		Put(tx, l.nonces, deployer, nonce+1)
		if init == nil {
			return nil
		}
		return init(tx, addr)
	})
	if err != nil {
		return common.Address{}, nil, err
	}
	receipt.To = addr
	return addr, receipt, nil
}

// Height returns the sequence number of the last committed transaction.
func (l *Ledger) Height() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.txSeq
}

// Notifications returns committed notifications with Seq >= from, oldest
// first.
func (l *Ledger) Notifications(from uint64) []Notification {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if from == 0 {
		from = 1
	}
	if from > uint64(len(l.events)) {
		return []Notification{}
	}
	out := make([]Notification, len(l.events)-int(from-1))
	copy(out, l.events[from-1:])
	return out
}

func (l *Ledger) publish(ctx context.Context, ns []Notification) {
	if len(ns) == 0 {
		return
	}

	l.sinkMu.RLock()
	sinks := l.sinks
	l.sinkMu.RUnlock()

	for _, n := range ns {
		for _, s := range sinks {
			err := s.Publish(ctx, n)
			metrics.NotificationPublished(s.Name(), err)
			if err != nil {
				l.log.Warn("Failed to publish notification",
					slog.String("sink", s.Name()),
					slog.String("notification", n.Name),
					slog.Uint64("seq", n.Seq),
					"err", err)
			}
		}
	}
}

func txHash(seq uint64, call Call, ts time.Time) common.Hash {
	var seqBytes, tsBytes [8]byte
	binary.BigEndian.PutUint64(seqBytes[:], seq)
	binary.BigEndian.PutUint64(tsBytes[:], uint64(ts.UnixNano()))
	return crypto.Keccak256Hash(seqBytes[:], call.From.Bytes(), call.To.Bytes(), []byte(call.Method), tsBytes[:])
}
