package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	commonModels "github.com/bematende/bematende-backend/internal/common/models"
	"github.com/bematende/bematende-backend/internal/monitor/models"
	"github.com/bematende/bematende-backend/pkg/clock"
	"github.com/bematende/bematende-backend/pkg/metrics"
	"github.com/bematende/bematende-backend/pkg/storage/kv"
)

const (
	KeyCurrent = "monitor:current"
	KeyHistory = "monitor:history"
)

// TicketCode memakai kode eksplisit apa adanya. Jika kosong, kode dibuat dari
// prefix U/N dan calledAt % 1000 (tiga digit). Dua panggilan dengan sisa yang
// sama akan mendapat kode yang sama.
func TicketCode(class commonModels.Classification, calledAt int64, explicit string) string {
	if explicit != "" {
		return explicit
	}
	prefix := "N"
	if class.IsUrgent() {
		prefix = "U"
	}
	return fmt.Sprintf("%s%03d", prefix, calledAt%1000)
}

// Notifier menerima setiap panggilan baru, misalnya panel MQTT.
type Notifier interface {
	NotifyCall(ctx context.Context, ev models.CallEvent) error
}

// CallChannel memegang satu-satunya slot "current" dan riwayat panggilan.
// Pembaca lain hanya mendapat salinan.
type CallChannel struct {
	kv        kv.Store
	clock     clock.Clock
	metrics   *metrics.Metrics
	notifiers []Notifier
	log       zerolog.Logger

	mu      sync.RWMutex
	current *models.CallEvent
	history []models.CallEvent
	subs    map[int]chan models.CallEvent
	nextSub int
	seq     uint64

	// persistMu mengurutkan penulisan KV di luar mu; persisted adalah seq
	// terakhir yang sudah ditulis.
	persistMu sync.Mutex
	persisted uint64
}

// persistTimeout membatasi penulisan mirror KV per panggilan.
const persistTimeout = 3 * time.Second

func NewCallChannel(kvStore kv.Store, clk clock.Clock, m *metrics.Metrics, log zerolog.Logger, notifiers ...Notifier) *CallChannel {
	return &CallChannel{
		kv:        kvStore,
		clock:     clk,
		metrics:   m,
		notifiers: notifiers,
		log:       log.With().Str("component", "call_channel").Logger(),
		history:   []models.CallEvent{},
		subs:      make(map[int]chan models.CallEvent),
	}
}

// PublishCall mengganti slot current dan menaruh panggilan di depan riwayat.
func (ch *CallChannel) PublishCall(ctx context.Context, req models.CallRequest) models.CallEvent {
	ch.mu.Lock()
	calledAt := clock.UnixMilli(ch.clock)
	// calledAt harus naik supaya display selalu mengenali panggilan baru
	if ch.current != nil && calledAt <= ch.current.CalledAt {
		calledAt = ch.current.CalledAt + 1
	}
	ev := models.CallEvent{
		PatientName:    req.PatientName,
		Classification: req.Classification,
		FacilityID:     req.FacilityID,
		Station:        req.Station,
		QueueLabel:     req.QueueLabel,
		TicketCode:     TicketCode(req.Classification, calledAt, req.TicketCode),
		CalledAt:       calledAt,
	}
	ch.current = &ev
	history := make([]models.CallEvent, 0, models.HistoryLimit)
	history = append(history, ev)
	for _, h := range ch.history {
		if len(history) == models.HistoryLimit {
			break
		}
		history = append(history, h)
	}
	ch.history = history

	subs := make([]chan models.CallEvent, 0, len(ch.subs))
	for _, s := range ch.subs {
		subs = append(subs, s)
	}
	ch.seq++
	seq := ch.seq
	snapshot := ch.historyCopyLocked()
	ch.mu.Unlock()

	ch.persist(ctx, seq, ev, snapshot)

	for _, s := range subs {
		select {
		case s <- ev:
		default:
			ch.log.Debug().Msg("subscriber busy, call dropped")
		}
	}
	for _, n := range ch.notifiers {
		if err := n.NotifyCall(ctx, ev); err != nil {
			ch.log.Warn().Err(err).Msg("call notifier failed")
		}
	}
	if ch.metrics != nil {
		ch.metrics.Calls.WithLabelValues(ev.QueueLabel).Inc()
	}
	ch.log.Info().Str("ticket", ev.TicketCode).Str("station", ev.Station).Msg("patient called")
	return ev
}

func (ch *CallChannel) Current() (models.CallEvent, bool) {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	if ch.current == nil {
		return models.CallEvent{}, false
	}
	return *ch.current, true
}

// History terbaru di depan, paling banyak HistoryLimit.
func (ch *CallChannel) History() []models.CallEvent {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	return ch.historyCopyLocked()
}

func (ch *CallChannel) historyCopyLocked() []models.CallEvent {
	out := make([]models.CallEvent, len(ch.history))
	copy(out, ch.history)
	return out
}

// Subscribe mengembalikan channel panggilan baru. Pengiriman tidak memblok:
// subscriber yang lambat kehilangan event dan harus mengejar lewat polling.
func (ch *CallChannel) Subscribe(buffer int) (<-chan models.CallEvent, func()) {
	if buffer < 1 {
		buffer = 1
	}
	c := make(chan models.CallEvent, buffer)
	ch.mu.Lock()
	id := ch.nextSub
	ch.nextSub++
	ch.subs[id] = c
	ch.mu.Unlock()

	var once sync.Once
	return c, func() {
		once.Do(func() {
			ch.mu.Lock()
			delete(ch.subs, id)
			ch.mu.Unlock()
		})
	}
}

// Restore memuat current dan riwayat dari KV saat start.
func (ch *CallChannel) Restore(ctx context.Context) error {
	if ch.kv == nil {
		return nil
	}
	var cur models.CallEvent
	var hist []models.CallEvent
	curErr := kv.GetJSON(ctx, ch.kv, KeyCurrent, &cur)
	if curErr != nil && !errors.Is(curErr, kv.ErrNotFound) {
		return fmt.Errorf("restore current call: %w", curErr)
	}
	histErr := kv.GetJSON(ctx, ch.kv, KeyHistory, &hist)
	if histErr != nil && !errors.Is(histErr, kv.ErrNotFound) {
		return fmt.Errorf("restore call history: %w", histErr)
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()
	if curErr == nil {
		ch.current = &cur
	}
	if histErr == nil {
		if len(hist) > models.HistoryLimit {
			hist = hist[:models.HistoryLimit]
		}
		ch.history = hist
	}
	return nil
}

// persist menulis mirror KV tanpa memegang mu, jadi pembaca tidak ikut
// menunggu Redis. Salinan yang lebih lama dari yang sudah tertulis dibuang.
func (ch *CallChannel) persist(ctx context.Context, seq uint64, ev models.CallEvent, history []models.CallEvent) {
	if ch.kv == nil {
		return
	}
	ch.persistMu.Lock()
	defer ch.persistMu.Unlock()
	if seq <= ch.persisted {
		return
	}
	ch.persisted = seq

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := kv.SetJSON(ctx, ch.kv, KeyCurrent, ev); err != nil {
		ch.log.Warn().Err(err).Str("key", KeyCurrent).Msg("failed to persist current call")
	}
	if err := kv.SetJSON(ctx, ch.kv, KeyHistory, history); err != nil {
		ch.log.Warn().Err(err).Str("key", KeyHistory).Msg("failed to persist call history")
	}
}
