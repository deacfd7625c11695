package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bematende/bematende-backend/internal/common/apperr"
	"github.com/bematende/bematende-backend/internal/queue/models"
	"github.com/bematende/bematende-backend/internal/queue/repository"
	"github.com/bematende/bematende-backend/pkg/clock"
)

// PatientStore adalah satu-satunya pintu untuk membaca dan mengubah data pasien.
type PatientStore struct {
	repo  repository.PatientRepository
	clock clock.Clock
	log   zerolog.Logger
}

func NewPatientStore(repo repository.PatientRepository, clk clock.Clock, log zerolog.Logger) *PatientStore {
	return &PatientStore{repo: repo, clock: clk, log: log.With().Str("component", "patient_store").Logger()}
}

// Add menyimpan pasien baru. ID dan createdAt diisi jika kosong, status
// default pre_consultation.
func (s *PatientStore) Add(ctx context.Context, p models.Patient) (models.Patient, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return models.Patient{}, apperr.Validation("name is required")
	}
	if !p.Classification.Valid() {
		return models.Patient{}, apperr.Validation("classification must be normal or urgent, got %q", p.Classification)
	}
	if p.Status == "" {
		p.Status = models.StagePreConsultation
	}
	if !p.Status.Valid() {
		return models.Patient{}, apperr.Validation("unknown status %q", p.Status)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt == 0 {
		p.CreatedAt = clock.UnixMilli(s.clock)
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return models.Patient{}, err
	}
	s.log.Info().Str("patient_id", p.ID).Str("status", string(p.Status)).Msg("patient added")
	return p, nil
}

func (s *PatientStore) ListByStage(ctx context.Context, stage models.Stage, facilityID string) ([]models.Patient, error) {
	if !stage.Valid() {
		return nil, apperr.Validation("unknown stage %q", stage)
	}
	return s.repo.ListByStage(ctx, stage, facilityID)
}

func (s *PatientStore) Get(ctx context.Context, id string) (models.Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// SetStatus hanya mengizinkan langkah maju. Status yang sama tidak mengubah apa pun.
func (s *PatientStore) SetStatus(ctx context.Context, id string, stage models.Stage) (models.Patient, error) {
	if !stage.Valid() {
		return models.Patient{}, apperr.Validation("unknown stage %q", stage)
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return models.Patient{}, err
	}
	if p.Status == stage {
		return p, nil
	}
	if !p.Status.Precedes(stage) {
		return models.Patient{}, apperr.TransitionRejected("patient %s cannot move back from %s to %s", id, p.Status, stage)
	}
	return s.Transfer(ctx, id, p.Status, stage)
}

// Transfer memindahkan pasien secara atomik: gagal dengan TransitionRejected
// jika status saat ini bukan from.
func (s *PatientStore) Transfer(ctx context.Context, id string, from, to models.Stage) (models.Patient, error) {
	if !from.Valid() || !to.Valid() {
		return models.Patient{}, apperr.Validation("unknown stage %q -> %q", from, to)
	}
	if !from.Precedes(to) {
		return models.Patient{}, apperr.TransitionRejected("cannot move from %s to %s", from, to)
	}
	p, err := s.repo.Transfer(ctx, id, from, to)
	if err != nil {
		return models.Patient{}, err
	}
	s.log.Info().Str("patient_id", id).Str("from", string(from)).Str("to", string(to)).Msg("patient moved")
	return p, nil
}

// RemoveByID idempoten: menghapus id yang tidak ada tetap sukses.
func (s *PatientStore) RemoveByID(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("patient_id", id).Msg("patient removed")
	return nil
}
