package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonModels "github.com/bematende/bematende-backend/internal/common/models"
	"github.com/bematende/bematende-backend/internal/monitor/models"
	"github.com/bematende/bematende-backend/pkg/clock"
	"github.com/bematende/bematende-backend/pkg/metrics"
	"github.com/bematende/bematende-backend/pkg/storage/kv"
)

var start = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeTimer struct {
	delay   time.Duration
	fire    func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.stopped = true
	return true
}

type fakeTimers struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (f *fakeTimers) afterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{delay: d, fire: fn}
	f.timers = append(f.timers, t)
	return t
}

func (f *fakeTimers) last() *fakeTimer {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.timers) == 0 {
		return nil
	}
	return f.timers[len(f.timers)-1]
}

type recordedEvent struct {
	event string
	state models.DisplayState
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *fakeBroadcaster) BroadcastJSON(event string, data interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{event: event, state: data.(models.DisplayState)})
	return nil
}

func (b *fakeBroadcaster) count(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.event == event {
			n++
		}
	}
	return n
}

type fakeLister struct {
	images []string
	err    error
}

func (l *fakeLister) ListImages(context.Context, string) ([]string, error) {
	return l.images, l.err
}

type brokenKV struct{}

func (brokenKV) Get(context.Context, string) ([]byte, error) { return nil, errors.New("redis down") }
func (brokenKV) Set(context.Context, string, []byte) error { return errors.New("redis down") }
func (brokenKV) Delete(context.Context, string) error { return errors.New("redis down") }

type recordingNotifier struct {
	got []models.CallEvent
}

func (n *recordingNotifier) NotifyCall(_ context.Context, ev models.CallEvent) error {
	n.got = append(n.got, ev)
	return errors.New("broker offline")
}

func call(name string, class commonModels.Classification) models.CallRequest {
	return models.CallRequest{PatientName: name, Classification: class, Station: "Triage", QueueLabel: "Pre-Consultation"}
}

func TestTicketCode(t *testing.T) {
	assert.Equal(t, "U234", TicketCode(commonModels.ClassificationUrgent, 1234, ""))
	assert.Equal(t, "N005", TicketCode(commonModels.ClassificationNormal, 2005, ""))
	assert.Equal(t, "A12", TicketCode(commonModels.ClassificationUrgent, 1234, "A12"))
}

func TestCallChannel_PublishReplacesCurrent(t *testing.T) {
	ch := NewCallChannel(kv.NewMemory(), clock.NewManual(start), nil, zerolog.Nop())
	ctx := context.Background()

	_, ok := ch.Current()
	assert.False(t, ok)

	first := ch.PublishCall(ctx, call("Ana", commonModels.ClassificationNormal))
	second := ch.PublishCall(ctx, call("Bia", commonModels.ClassificationUrgent))

	cur, ok := ch.Current()
	require.True(t, ok)
	assert.Equal(t, "Bia", cur.PatientName)
	assert.Greater(t, second.CalledAt, first.CalledAt)

	hist := ch.History()
	require.Len(t, hist, 2)
	assert.Equal(t, "Bia", hist[0].PatientName)
	assert.Equal(t, "Ana", hist[1].PatientName)
	assert.Equal(t, fmt.Sprintf("U%03d", second.CalledAt%1000), second.TicketCode)
}

func TestCallChannel_HistoryCappedAtSix(t *testing.T) {
	clk := clock.NewManual(start)
	ch := NewCallChannel(nil, clk, nil, zerolog.Nop())
	for i := 0; i < 10; i++ {
		clk.Advance(time.Second)
		ch.PublishCall(context.Background(), call(fmt.Sprintf("P%d", i), commonModels.ClassificationNormal))
		assert.LessOrEqual(t, len(ch.History()), models.HistoryLimit)
	}
	hist := ch.History()
	require.Len(t, hist, models.HistoryLimit)
	assert.Equal(t, "P9", hist[0].PatientName)
	assert.Equal(t, "P4", hist[5].PatientName)
}

func TestCallChannel_SubscribeIsNonBlocking(t *testing.T) {
	ch := NewCallChannel(nil, clock.NewManual(start), nil, zerolog.Nop())
	events, cancel := ch.Subscribe(1)

	ch.PublishCall(context.Background(), call("Ana", commonModels.ClassificationNormal))
	ch.PublishCall(context.Background(), call("Bia", commonModels.ClassificationNormal))

	ev := <-events
	assert.Equal(t, "Ana", ev.PatientName)
	select {
	case <-events:
		t.Fatal("second event should have been dropped")
	default:
	}

	cancel()
	cancel()
	ch.PublishCall(context.Background(), call("Caio", commonModels.ClassificationNormal))
	select {
	case <-events:
		t.Fatal("cancelled subscriber must not receive events")
	default:
	}
}

func TestCallChannel_RestoreFromKV(t *testing.T) {
	store := kv.NewMemory()
	ctx := context.Background()
	a := NewCallChannel(store, clock.NewManual(start), nil, zerolog.Nop())
	a.PublishCall(ctx, call("Ana", commonModels.ClassificationNormal))
	a.PublishCall(ctx, call("Bia", commonModels.ClassificationNormal))

	b := NewCallChannel(store, clock.NewManual(start), nil, zerolog.Nop())
	require.NoError(t, b.Restore(ctx))
	cur, ok := b.Current()
	require.True(t, ok)
	assert.Equal(t, "Bia", cur.PatientName)
	assert.Equal(t, a.History(), b.History())

	assert.Error(t, NewCallChannel(brokenKV{}, clock.NewSystem(), nil, zerolog.Nop()).Restore(ctx))
}

func TestCallChannel_StorageAndNotifierFailuresAreSwallowed(t *testing.T) {
	n := &recordingNotifier{}
	m := metrics.New()
	ch := NewCallChannel(brokenKV{}, clock.NewManual(start), m, zerolog.Nop(), n)

	ev := ch.PublishCall(context.Background(), call("Ana", commonModels.ClassificationNormal))
	cur, ok := ch.Current()
	require.True(t, ok)
	assert.Equal(t, ev, cur)
	assert.Len(t, n.got, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Calls.WithLabelValues("Pre-Consultation")))
}

// gatedKV menahan setiap Set sampai release ditutup.
type gatedKV struct {
	*kv.Memory
	entered chan struct{}
	release chan struct{}
}

func (g *gatedKV) Set(ctx context.Context, key string, value []byte) error {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	<-g.release
	return g.Memory.Set(ctx, key, value)
}

func TestCallChannel_ReadersDoNotWaitForSlowKV(t *testing.T) {
	store := &gatedKV{Memory: kv.NewMemory(), entered: make(chan struct{}, 1), release: make(chan struct{})}
	ch := NewCallChannel(store, clock.NewManual(start), nil, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		ch.PublishCall(context.Background(), call("Ana", commonModels.ClassificationNormal))
	}()
	<-store.entered

	read := make(chan models.CallEvent, 1)
	go func() {
		cur, _ := ch.Current()
		_ = ch.History()
		read <- cur
	}()
	select {
	case cur := <-read:
		assert.Equal(t, "Ana", cur.PatientName)
	case <-time.After(time.Second):
		t.Fatal("Current/History blocked behind KV write")
	}

	close(store.release)
	<-done
	var hist []models.CallEvent
	require.NoError(t, kv.GetJSON(context.Background(), store.Memory, KeyHistory, &hist))
	require.Len(t, hist, 1)
}

// ctxKV menolak penulisan dengan context yang sudah selesai, seperti go-redis.
type ctxKV struct {
	*kv.Memory
}

func (c ctxKV) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.Memory.Set(ctx, key, value)
}

func TestCallChannel_PersistSurvivesCancelledRequest(t *testing.T) {
	store := ctxKV{Memory: kv.NewMemory()}
	ch := NewCallChannel(store, clock.NewManual(start), nil, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch.PublishCall(ctx, call("Ana", commonModels.ClassificationNormal))
	ch.PublishCall(ctx, call("Bia", commonModels.ClassificationUrgent))

	var cur models.CallEvent
	require.NoError(t, kv.GetJSON(context.Background(), store, KeyCurrent, &cur))
	assert.Equal(t, "Bia", cur.PatientName)
	var hist []models.CallEvent
	require.NoError(t, kv.GetJSON(context.Background(), store, KeyHistory, &hist))
	assert.Equal(t, ch.History(), hist)
}

type displayFixture struct {
	channel *CallChannel
	display *Display
	timers  *fakeTimers
	out     *fakeBroadcaster
	kv      *kv.Memory
	clock   *clock.Manual
	cues    []models.CallEvent
}

func setupDisplay(t *testing.T, cfg DisplayConfig, lister SlideLister) *displayFixture {
	t.Helper()
	f := &displayFixture{
		timers: &fakeTimers{},
		out:    &fakeBroadcaster{},
		kv:     kv.NewMemory(),
		clock:  clock.NewManual(start),
	}
	f.channel = NewCallChannel(f.kv, f.clock, nil, zerolog.Nop())
	f.display = NewDisplay(f.channel, f.kv, lister, f.out, metrics.New(), zerolog.Nop(), cfg,
		WithAfterFunc(f.timers.afterFunc),
		WithCue(func(ev models.CallEvent) { f.cues = append(f.cues, ev) }),
	)
	return f
}

func TestDisplay_RefreshDetectsNewCall(t *testing.T) {
	f := setupDisplay(t, DisplayConfig{}, nil)
	ctx := context.Background()

	assert.False(t, f.display.Refresh())
	assert.Nil(t, f.display.State().Current)

	f.channel.PublishCall(ctx, call("Ana", commonModels.ClassificationUrgent))
	assert.True(t, f.display.Refresh())
	assert.False(t, f.display.Refresh())
	require.Len(t, f.cues, 1)
	assert.Equal(t, 1, f.out.count(EventCue))

	state := f.display.State()
	require.NotNil(t, state.Current)
	assert.Equal(t, "Ana", state.Current.PatientName)
	assert.Equal(t, state.Current.TicketCode, state.TicketCode)
	assert.Len(t, state.History, 1)
	assert.Nil(t, f.timers.last(), "auto-clear is off by default")
}

func TestDisplay_AutoClearOnlyClearsLocalSlot(t *testing.T) {
	f := setupDisplay(t, DisplayConfig{AutoClear: true}, nil)
	ctx := context.Background()

	f.channel.PublishCall(ctx, call("Ana", commonModels.ClassificationNormal))
	f.display.Refresh()
	first := f.timers.last()
	require.NotNil(t, first)
	assert.Equal(t, 15*time.Second, first.delay)

	f.clock.Advance(time.Second)
	f.channel.PublishCall(ctx, call("Bia", commonModels.ClassificationNormal))
	f.display.Refresh()
	second := f.timers.last()
	assert.True(t, first.stopped, "new call resets the timer")

	first.fire()
	assert.NotNil(t, f.display.State().Current, "stale timer must not clear a newer call")

	second.fire()
	assert.Nil(t, f.display.State().Current)
	assert.Equal(t, 1, f.out.count(EventClear))
	_, ok := f.channel.Current()
	assert.True(t, ok, "channel state is untouched")

	f.display.Refresh()
	assert.Nil(t, f.display.State().Current, "cleared call is not shown again")
}

func TestDisplay_SettingsMinimumAndPersistence(t *testing.T) {
	f := setupDisplay(t, DisplayConfig{}, nil)
	ctx := context.Background()

	s := f.display.SetAutoClearSeconds(ctx, 2)
	assert.Equal(t, models.MinAutoClearSeconds, s.AutoClearSeconds)
	s = f.display.SetAutoClear(ctx, true)
	assert.True(t, s.AutoClear)

	other := NewDisplay(f.channel, f.kv, nil, nil, nil, zerolog.Nop(), DisplayConfig{})
	other.Load(ctx)
	assert.Equal(t, models.DisplaySettings{AutoClear: true, AutoClearSeconds: 5}, other.Settings())

	f.channel.PublishCall(ctx, call("Ana", commonModels.ClassificationNormal))
	f.display.Refresh()
	timer := f.timers.last()
	require.NotNil(t, timer)
	assert.Equal(t, 5*time.Second, timer.delay)

	f.display.SetAutoClear(ctx, false)
	assert.True(t, timer.stopped)
}

func TestDisplay_LoadMissingSecondsUsesDefault(t *testing.T) {
	f := setupDisplay(t, DisplayConfig{}, nil)
	ctx := context.Background()
	require.NoError(t, f.kv.Set(ctx, KeyAutoClear, []byte(`{"autoClear":true}`)))

	f.display.Load(ctx)
	s := f.display.Settings()
	assert.True(t, s.AutoClear)
	assert.Equal(t, models.DefaultAutoClearSeconds, s.AutoClearSeconds)

	require.NoError(t, f.kv.Set(ctx, KeyAutoClear, []byte(`{"autoClear":true,"autoClearSeconds":3}`)))
	f.display.Load(ctx)
	assert.Equal(t, models.MinAutoClearSeconds, f.display.Settings().AutoClearSeconds)
}

func TestDisplay_TextSlidesRotateAndWrap(t *testing.T) {
	f := setupDisplay(t, DisplayConfig{}, nil)
	ctx := context.Background()

	state := f.display.State()
	assert.Equal(t, len(DefaultSlides), state.SlideCount)
	assert.Equal(t, models.SlideText, state.Slide.Kind)

	_, err := f.display.SetSlides(ctx, []string{"one", "two"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.display.RotateSlide())
	assert.Equal(t, 0, f.display.RotateSlide())
	assert.Equal(t, "one", f.display.State().Slide.Text)

	_, err = f.display.SetSlides(ctx, []string{"", ""})
	assert.Error(t, err)

	var saved []string
	require.NoError(t, kv.GetJSON(ctx, f.kv, KeySlides, &saved))
	assert.Equal(t, []string{"one", "two"}, saved)
}

func TestDisplay_ImagesWinOverText(t *testing.T) {
	lister := &fakeLister{images: []string{"https://cdn/campaign-1.png", "https://cdn/campaign-2.png"}}
	f := setupDisplay(t, DisplayConfig{SlidePrefix: "campaign-"}, lister)
	ctx := context.Background()

	f.display.Load(ctx)
	state := f.display.State()
	assert.Equal(t, 2, state.SlideCount)
	assert.Equal(t, models.SlideImage, state.Slide.Kind)
	assert.Equal(t, "https://cdn/campaign-1.png", state.Slide.Image)

	f.display.RotateSlide()
	f.display.RotateSlide()
	assert.Equal(t, "https://cdn/campaign-1.png", f.display.State().Slide.Image)

	lister.err = errors.New("bucket unreachable")
	images := f.display.RefreshImages(ctx)
	assert.Len(t, images, 2)
	assert.Equal(t, models.SlideImage, f.display.State().Slide.Kind)
}

func TestDisplay_RunPicksUpCalls(t *testing.T) {
	f := setupDisplay(t, DisplayConfig{PollInterval: 20 * time.Millisecond, SlideInterval: time.Hour}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.display.Run(ctx)
		close(done)
	}()

	f.channel.PublishCall(context.Background(), call("Ana", commonModels.ClassificationNormal))
	assert.Eventually(t, func() bool {
		cur := f.display.State().Current
		return cur != nil && cur.PatientName == "Ana"
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
