package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bematende/bematende-backend/internal/common/apperr"
	"github.com/bematende/bematende-backend/internal/monitor/models"
	"github.com/bematende/bematende-backend/pkg/metrics"
	"github.com/bematende/bematende-backend/pkg/storage/kv"
)

const (
	KeyAutoClear = "monitor:autoclear"
	KeySlides    = "monitor:slides"
)

// Event websocket yang dikirim ke layar ruang tunggu.
const (
	EventState = "state"
	EventCue   = "cue"
	EventClear = "clear"
	EventSlide = "slide"
)

var DefaultSlides = []string{
	"Welcome to BemAtende: organized care, shorter waits.",
	"Vaccination campaign available. Ask at the front desk.",
	"Keep your distance and wash your hands often.",
}

// SlideLister mencari gambar kampanye (campaign-1.png, campaign-2.png, ...).
type SlideLister interface {
	ListImages(ctx context.Context, prefix string) ([]string, error)
}

// Broadcaster mengirim event ke semua layar yang terhubung.
type Broadcaster interface {
	BroadcastJSON(event string, data interface{}) error
}

// Timer adalah bagian dari *time.Timer yang dipakai Display.
type Timer interface {
	Stop() bool
}

type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type DisplayConfig struct {
	PollInterval     time.Duration
	SlideInterval    time.Duration
	AutoClear        bool
	AutoClearSeconds int
	SlidePrefix      string
}

// Display adalah layar publik: membaca CallChannel, memberi cue saat ada
// panggilan baru, menghapus slot current lokal setelah jeda, dan memutar slide.
type Display struct {
	channel *CallChannel
	kv      kv.Store
	slides  SlideLister
	out     Broadcaster
	metrics *metrics.Metrics
	log     zerolog.Logger
	cfg     DisplayConfig

	afterFunc AfterFunc
	onCue     func(models.CallEvent)

	mu           sync.Mutex
	lastCalledAt int64
	current      *models.CallEvent
	history      []models.CallEvent
	settings     models.DisplaySettings
	clearTimer   Timer
	clearGen     int
	texts        []string
	images       []string
	slideIndex   int
}

type DisplayOption func(*Display)

// WithAfterFunc mengganti time.AfterFunc, dipakai test.
func WithAfterFunc(f AfterFunc) DisplayOption {
	return func(d *Display) { d.afterFunc = f }
}

// WithCue dipanggil setiap kali panggilan baru terdeteksi.
func WithCue(f func(models.CallEvent)) DisplayOption {
	return func(d *Display) { d.onCue = f }
}

func NewDisplay(channel *CallChannel, kvStore kv.Store, slides SlideLister, out Broadcaster, m *metrics.Metrics, log zerolog.Logger, cfg DisplayConfig, opts ...DisplayOption) *Display {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.SlideInterval <= 0 {
		cfg.SlideInterval = 8 * time.Second
	}
	if cfg.AutoClearSeconds == 0 {
		cfg.AutoClearSeconds = models.DefaultAutoClearSeconds
	}
	if cfg.AutoClearSeconds < models.MinAutoClearSeconds {
		cfg.AutoClearSeconds = models.MinAutoClearSeconds
	}
	d := &Display{
		channel:   channel,
		kv:        kvStore,
		slides:    slides,
		out:       out,
		metrics:   m,
		log:       log.With().Str("component", "display").Logger(),
		cfg:       cfg,
		afterFunc: realAfterFunc,
		history:   []models.CallEvent{},
		settings: models.DisplaySettings{
			AutoClear:        cfg.AutoClear,
			AutoClearSeconds: cfg.AutoClearSeconds,
		},
		texts: append([]string(nil), DefaultSlides...),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Load membaca pengaturan dan slide teks dari KV, lalu mencari gambar kampanye.
func (d *Display) Load(ctx context.Context) {
	if d.kv != nil {
		var settings models.DisplaySettings
		if err := kv.GetJSON(ctx, d.kv, KeyAutoClear, &settings); err == nil {
			// record tanpa autoClearSeconds memakai default, bukan minimum
			if settings.AutoClearSeconds == 0 {
				settings.AutoClearSeconds = models.DefaultAutoClearSeconds
			}
			if settings.AutoClearSeconds < models.MinAutoClearSeconds {
				settings.AutoClearSeconds = models.MinAutoClearSeconds
			}
			d.mu.Lock()
			d.settings = settings
			d.mu.Unlock()
		} else if !errors.Is(err, kv.ErrNotFound) {
			d.log.Warn().Err(err).Msg("failed to load display settings")
		}

		var texts []string
		if err := kv.GetJSON(ctx, d.kv, KeySlides, &texts); err == nil && len(texts) > 0 {
			d.mu.Lock()
			d.texts = texts
			d.mu.Unlock()
		} else if err != nil && !errors.Is(err, kv.ErrNotFound) {
			d.log.Warn().Err(err).Msg("failed to load slides")
		}
	}
	d.RefreshImages(ctx)
}

// Refresh membaca current dan riwayat. Mengembalikan true jika ada panggilan baru.
func (d *Display) Refresh() bool {
	cur, ok := d.channel.Current()
	hist := d.channel.History()

	d.mu.Lock()
	d.history = hist
	isNew := ok && cur.CalledAt != d.lastCalledAt
	if isNew {
		d.lastCalledAt = cur.CalledAt
		d.current = &cur
		d.scheduleClearLocked()
	}
	if !ok {
		d.current = nil
	}
	state := d.stateLocked()
	d.mu.Unlock()

	if isNew {
		if d.metrics != nil {
			d.metrics.DisplayCues.Inc()
		}
		if d.onCue != nil {
			d.onCue(cur)
		}
		d.broadcast(EventCue, state)
	}
	return isNew
}

// scheduleClearLocked mereset timer auto-clear. Dipanggil dengan d.mu terkunci.
func (d *Display) scheduleClearLocked() {
	if d.clearTimer != nil {
		d.clearTimer.Stop()
		d.clearTimer = nil
	}
	d.clearGen++
	if !d.settings.AutoClear || d.current == nil {
		return
	}
	gen := d.clearGen
	delay := time.Duration(d.settings.AutoClearSeconds) * time.Second
	d.clearTimer = d.afterFunc(delay, func() { d.clear(gen) })
}

// clear hanya mengosongkan slot lokal; CallChannel tidak diubah.
func (d *Display) clear(gen int) {
	d.mu.Lock()
	if gen != d.clearGen || d.current == nil {
		d.mu.Unlock()
		return
	}
	d.current = nil
	d.clearTimer = nil
	state := d.stateLocked()
	d.mu.Unlock()
	d.broadcast(EventClear, state)
}

func (d *Display) SetAutoClear(ctx context.Context, on bool) models.DisplaySettings {
	return d.UpdateSettings(ctx, models.UpdateSettingsRequest{AutoClear: &on})
}

// SetAutoClearSeconds membatasi nilai minimum 5 detik.
func (d *Display) SetAutoClearSeconds(ctx context.Context, seconds int) models.DisplaySettings {
	return d.UpdateSettings(ctx, models.UpdateSettingsRequest{AutoClearSeconds: &seconds})
}

// UpdateSettings hanya mengubah field yang dikirim, lalu mereset timer auto-clear.
func (d *Display) UpdateSettings(ctx context.Context, req models.UpdateSettingsRequest) models.DisplaySettings {
	d.mu.Lock()
	if req.AutoClear != nil {
		d.settings.AutoClear = *req.AutoClear
	}
	if req.AutoClearSeconds != nil {
		s := *req.AutoClearSeconds
		if s < models.MinAutoClearSeconds {
			s = models.MinAutoClearSeconds
		}
		d.settings.AutoClearSeconds = s
	}
	d.scheduleClearLocked()
	settings := d.settings
	state := d.stateLocked()
	d.mu.Unlock()
	d.saveSettings(ctx, settings)
	d.broadcast(EventState, state)
	return settings
}

func (d *Display) Settings() models.DisplaySettings {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settings
}

func (d *Display) saveSettings(ctx context.Context, settings models.DisplaySettings) {
	if d.kv == nil {
		return
	}
	if err := kv.SetJSON(ctx, d.kv, KeyAutoClear, settings); err != nil {
		d.log.Warn().Err(err).Msg("failed to persist display settings")
	}
}

// SetSlides mengganti slide teks. Daftar kosong mengembalikan slide default.
func (d *Display) SetSlides(ctx context.Context, texts []string) ([]string, error) {
	clean := make([]string, 0, len(texts))
	for _, t := range texts {
		if t != "" {
			clean = append(clean, t)
		}
	}
	if len(texts) > 0 && len(clean) == 0 {
		return nil, apperr.Validation("slides must not be blank")
	}
	if len(clean) == 0 {
		clean = append(clean, DefaultSlides...)
	}
	d.mu.Lock()
	d.texts = clean
	d.slideIndex = 0
	state := d.stateLocked()
	d.mu.Unlock()

	if d.kv != nil {
		if err := kv.SetJSON(ctx, d.kv, KeySlides, clean); err != nil {
			d.log.Warn().Err(err).Msg("failed to persist slides")
		}
	}
	d.broadcast(EventSlide, state)
	return clean, nil
}

// RefreshImages mencari ulang gambar kampanye. Gagal berarti tetap memakai daftar lama.
func (d *Display) RefreshImages(ctx context.Context) []string {
	if d.slides == nil {
		return nil
	}
	images, err := d.slides.ListImages(ctx, d.cfg.SlidePrefix)
	if err != nil {
		d.log.Warn().Err(err).Msg("failed to list campaign images")
		d.mu.Lock()
		defer d.mu.Unlock()
		return append([]string(nil), d.images...)
	}
	d.mu.Lock()
	d.images = images
	if n := d.slideCountLocked(); n > 0 {
		d.slideIndex %= n
	} else {
		d.slideIndex = 0
	}
	d.mu.Unlock()
	return images
}

// RotateSlide maju satu slide dan kembali ke awal setelah slide terakhir.
func (d *Display) RotateSlide() int {
	d.mu.Lock()
	n := d.slideCountLocked()
	if n > 0 {
		d.slideIndex = (d.slideIndex + 1) % n
	} else {
		d.slideIndex = 0
	}
	idx := d.slideIndex
	state := d.stateLocked()
	d.mu.Unlock()
	d.broadcast(EventSlide, state)
	return idx
}

// gambar kampanye menggantikan slide teks jika ada
func (d *Display) slideCountLocked() int {
	if len(d.images) > 0 {
		return len(d.images)
	}
	return len(d.texts)
}

func (d *Display) currentSlideLocked() *models.Slide {
	if len(d.images) > 0 {
		return &models.Slide{Kind: models.SlideImage, Image: d.images[d.slideIndex%len(d.images)]}
	}
	if len(d.texts) > 0 {
		return &models.Slide{Kind: models.SlideText, Text: d.texts[d.slideIndex%len(d.texts)]}
	}
	return nil
}

func (d *Display) State() models.DisplayState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stateLocked()
}

func (d *Display) stateLocked() models.DisplayState {
	state := models.DisplayState{
		History:    append([]models.CallEvent{}, d.history...),
		Slide:      d.currentSlideLocked(),
		SlideIndex: d.slideIndex,
		SlideCount: d.slideCountLocked(),
		Settings:   d.settings,
	}
	if d.current != nil {
		cur := *d.current
		state.Current = &cur
		state.TicketCode = cur.TicketCode
	}
	return state
}

func (d *Display) broadcast(event string, state models.DisplayState) {
	if d.out == nil {
		return
	}
	if err := d.out.BroadcastJSON(event, state); err != nil {
		d.log.Warn().Err(err).Str("event", event).Msg("broadcast failed")
	}
}

// Run menjalankan polling, langganan panggilan, dan rotasi slide sampai ctx selesai.
// Keterlambatan paling lama satu PollInterval walau event langganan terlewat.
func (d *Display) Run(ctx context.Context) {
	calls, cancel := d.channel.Subscribe(16)
	defer cancel()

	poll := time.NewTicker(d.cfg.PollInterval)
	defer poll.Stop()
	slide := time.NewTicker(d.cfg.SlideInterval)
	defer slide.Stop()

	d.Refresh()
	for {
		select {
		case <-ctx.Done():
			d.mu.Lock()
			if d.clearTimer != nil {
				d.clearTimer.Stop()
				d.clearTimer = nil
			}
			d.clearGen++
			d.mu.Unlock()
			return
		case <-calls:
			d.Refresh()
		case <-poll.C:
			d.Refresh()
		case <-slide.C:
			d.RotateSlide()
		}
	}
}
