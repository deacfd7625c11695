package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bematende/bematende-backend/internal/common/apperr"
	commonModels "github.com/bematende/bematende-backend/internal/common/models"
	monitorModels "github.com/bematende/bematende-backend/internal/monitor/models"
	"github.com/bematende/bematende-backend/internal/queue/models"
	"github.com/bematende/bematende-backend/pkg/metrics"
)

// Nama ruangan default dan label antrian yang tampil di monitor.
const (
	StationTriage = "Triage"
	StationOffice = "Office"

	QueueLabelPreConsultation = "Pre-Consultation"
	QueueLabelMedicalCare     = "Medical Care"
)

// Caller menerbitkan panggilan ke monitor publik.
type Caller interface {
	PublishCall(ctx context.Context, req monitorModels.CallRequest) monitorModels.CallEvent
}

// FacilityResolver memberi unit default untuk pendaftaran tanpa unit.
type FacilityResolver interface {
	DefaultID(ctx context.Context) (string, error)
}

// Outcome adalah isi Result.Data untuk aksi staf.
type Outcome struct {
	Patient *models.Patient          `json:"patient,omitempty"`
	Call    *monitorModels.CallEvent `json:"call,omitempty"`
}

// TransitionService menjalankan aksi staf: daftar, mulai, selesai pra-konsultasi,
// finalisasi, dan panggil. Semua aksi mengembalikan Result, tidak pernah panic.
type TransitionService struct {
	store      *PatientStore
	caller     Caller
	facilities FacilityResolver
	metrics    *metrics.Metrics
	log        zerolog.Logger
}

func NewTransitionService(store *PatientStore, caller Caller, facilities FacilityResolver, m *metrics.Metrics, log zerolog.Logger) *TransitionService {
	return &TransitionService{
		store:      store,
		caller:     caller,
		facilities: facilities,
		metrics:    m,
		log:        log.With().Str("component", "transitions").Logger(),
	}
}

// Register membuat pasien baru di pre_consultation. Unit diambil dari request,
// lalu unit petugas, lalu unit default.
func (s *TransitionService) Register(ctx context.Context, req models.RegisterPatientRequest, actorFacilityID string) commonModels.Result {
	class, ok := commonModels.ParseClassification(req.Classification)
	if !ok {
		return s.fail("register", apperr.Validation("classification must be normal or urgent, got %q", req.Classification))
	}

	facilityID := firstNonEmpty(req.FacilityID, actorFacilityID)
	if facilityID == "" && s.facilities != nil {
		id, err := s.facilities.DefaultID(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("default facility unavailable, registering without facility")
		}
		facilityID = id
	}

	p, err := s.store.Add(ctx, models.Patient{
		Name:           req.Name,
		Document:       strings.TrimSpace(req.Document),
		BirthDate:      strings.TrimSpace(req.BirthDate),
		Contact:        strings.TrimSpace(req.Contact),
		Complaint:      strings.TrimSpace(req.Complaint),
		Classification: class,
		Status:         models.StagePreConsultation,
		FacilityID:     facilityID,
	})
	if err != nil {
		return s.fail("register", err)
	}
	if s.metrics != nil {
		s.metrics.Registrations.WithLabelValues(string(class)).Inc()
	}
	return commonModels.Success(Outcome{Patient: &p})
}

// StartConsultation: pre_consultation -> in_care.
func (s *TransitionService) StartConsultation(ctx context.Context, id string) commonModels.Result {
	return s.move(ctx, "start", id, models.StagePreConsultation, models.StageInCare)
}

// CompletePreConsultation memindahkan pasien dari antrian pra-konsultasi ke
// antrian layanan medis.
func (s *TransitionService) CompletePreConsultation(ctx context.Context, id string) commonModels.Result {
	return s.move(ctx, "complete_pre_consultation", id, models.StagePreConsultation, models.StageInCare)
}

// Finalize: in_care -> finished.
func (s *TransitionService) Finalize(ctx context.Context, id string) commonModels.Result {
	return s.move(ctx, "finalize", id, models.StageInCare, models.StageFinished)
}

func (s *TransitionService) move(ctx context.Context, action, id string, from, to models.Stage) commonModels.Result {
	p, err := s.store.Transfer(ctx, id, from, to)
	if err != nil {
		return s.fail(action, err)
	}
	s.count(action, "ok")
	return commonModels.Success(Outcome{Patient: &p})
}

// CallPatient menerbitkan panggilan tanpa mengubah status pasien.
func (s *TransitionService) CallPatient(ctx context.Context, id string, req models.CallPatientRequest) commonModels.Result {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return s.fail("call", err)
	}

	var station, label string
	switch p.Status {
	case models.StagePreConsultation:
		station, label = StationTriage, QueueLabelPreConsultation
	case models.StageInCare:
		station, label = StationOffice, QueueLabelMedicalCare
	default:
		return s.fail("call", apperr.TransitionRejected("patient %s is already %s", id, p.Status))
	}
	if st := strings.TrimSpace(req.Station); st != "" {
		station = st
	}

	ev := s.caller.PublishCall(ctx, monitorModels.CallRequest{
		PatientName:    p.Name,
		Classification: p.Classification,
		FacilityID:     p.FacilityID,
		Station:        station,
		QueueLabel:     label,
		TicketCode:     strings.TrimSpace(req.TicketCode),
	})
	s.count("call", "ok")
	return commonModels.Success(Outcome{Patient: &p, Call: &ev})
}

func (s *TransitionService) fail(action string, err error) commonModels.Result {
	outcome := "error"
	switch {
	case errors.Is(err, apperr.ErrTransitionRejected):
		outcome = "rejected"
	case errors.Is(err, apperr.ErrNotFound):
		outcome = "not_found"
	case errors.Is(err, apperr.ErrValidation):
		outcome = "invalid"
	}
	s.count(action, outcome)
	s.log.Warn().Err(err).Str("action", action).Str("outcome", outcome).Msg("staff action failed")
	return commonModels.Fail(err)
}

func (s *TransitionService) count(action, outcome string) {
	if s.metrics != nil {
		s.metrics.Transitions.WithLabelValues(action, outcome).Inc()
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
