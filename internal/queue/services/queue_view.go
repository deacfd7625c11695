package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/bematende/bematende-backend/internal/common/apperr"
	"github.com/bematende/bematende-backend/internal/queue/models"
	"github.com/bematende/bematende-backend/pkg/clock"
	"github.com/bematende/bematende-backend/pkg/metrics"
	"github.com/bematende/bematende-backend/pkg/storage/kv"
)

// Order mengurutkan salinan patients tanpa mengubah input.
// arrival: createdAt naik. urgent_first: semua urgent dulu, lalu normal,
// masing-masing tetap createdAt naik. Seri createdAt diputus dengan id.
func Order(patients []models.Patient, policy models.OrderPolicy) []models.Patient {
	out := make([]models.Patient, len(patients))
	copy(out, patients)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if policy == models.OrderUrgentFirst && a.Classification.IsUrgent() != b.Classification.IsUrgent() {
			return a.Classification.IsUrgent()
		}
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt < b.CreatedAt
		}
		return a.ID < b.ID
	})
	return out
}

// QueueView membangun daftar antrian per tahap. Saat penyimpanan tidak bisa
// dihubungi, snapshot terakhir yang berhasil dikembalikan dengan stale=true.
type QueueView struct {
	store   *PatientStore
	kv      kv.Store
	clock   clock.Clock
	metrics *metrics.Metrics
	log     zerolog.Logger

	mu       sync.RWMutex
	lastGood map[string]models.QueueSnapshot
}

func NewQueueView(store *PatientStore, kvStore kv.Store, clk clock.Clock, m *metrics.Metrics, log zerolog.Logger) *QueueView {
	return &QueueView{
		store:    store,
		kv:       kvStore,
		clock:    clk,
		metrics:  m,
		log:      log.With().Str("component", "queue_view").Logger(),
		lastGood: make(map[string]models.QueueSnapshot),
	}
}

func snapshotKey(stage models.Stage, facilityID string) string {
	if facilityID == "" {
		facilityID = "all"
	}
	return fmt.Sprintf("queue:snapshot:%s:%s", stage, facilityID)
}

func (v *QueueView) Snapshot(ctx context.Context, stage models.Stage, facilityID string, policy models.OrderPolicy) (models.QueueSnapshot, error) {
	if policy == "" {
		policy = models.OrderArrival
	}
	if !policy.Valid() {
		return models.QueueSnapshot{}, apperr.Validation("unknown order %q", policy)
	}

	patients, err := v.store.ListByStage(ctx, stage, facilityID)
	if err != nil {
		if !errors.Is(err, apperr.ErrStorageUnavailable) {
			return models.QueueSnapshot{}, err
		}
		return v.fallback(ctx, stage, facilityID, policy, err)
	}

	snap := v.build(stage, facilityID, policy, patients)
	v.remember(ctx, snap)
	return snap, nil
}

// Finished mengembalikan pasien selesai, terbaru di atas.
func (v *QueueView) Finished(ctx context.Context, facilityID string) ([]models.Patient, error) {
	patients, err := v.store.ListByStage(ctx, models.StageFinished, facilityID)
	if err != nil {
		return nil, err
	}
	out := Order(patients, models.OrderArrival)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (v *QueueView) build(stage models.Stage, facilityID string, policy models.OrderPolicy, patients []models.Patient) models.QueueSnapshot {
	ordered := Order(patients, policy)
	urgent := 0
	for _, p := range ordered {
		if p.Classification.IsUrgent() {
			urgent++
		}
	}
	return models.QueueSnapshot{
		Stage:      stage,
		FacilityID: facilityID,
		Policy:     policy,
		Patients:   ordered,
		Total:      len(ordered),
		Urgent:     urgent,
		TakenAt:    clock.UnixMilli(v.clock),
	}
}

func (v *QueueView) remember(ctx context.Context, snap models.QueueSnapshot) {
	key := snapshotKey(snap.Stage, snap.FacilityID)
	v.mu.Lock()
	v.lastGood[key] = snap
	v.mu.Unlock()

	if v.kv == nil {
		return
	}
	if err := kv.SetJSON(ctx, v.kv, key, snap); err != nil {
		v.log.Warn().Err(err).Str("key", key).Msg("failed to persist queue snapshot")
	}
}

func (v *QueueView) fallback(ctx context.Context, stage models.Stage, facilityID string, policy models.OrderPolicy, cause error) (models.QueueSnapshot, error) {
	key := snapshotKey(stage, facilityID)

	v.mu.RLock()
	snap, ok := v.lastGood[key]
	v.mu.RUnlock()

	if !ok && v.kv != nil {
		if err := kv.GetJSON(ctx, v.kv, key, &snap); err == nil {
			ok = true
		} else if !errors.Is(err, kv.ErrNotFound) {
			v.log.Warn().Err(err).Str("key", key).Msg("failed to read queue snapshot")
		}
	}
	if !ok {
		return models.QueueSnapshot{}, cause
	}

	v.log.Warn().Err(cause).Str("stage", string(stage)).Msg("storage unavailable, serving stale queue")
	if v.metrics != nil {
		v.metrics.StaleServed.WithLabelValues(string(stage)).Inc()
	}
	out := v.build(stage, facilityID, policy, snap.Patients)
	out.TakenAt = snap.TakenAt
	out.Stale = true
	return out, nil
}
