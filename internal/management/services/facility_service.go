package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bematende/bematende-backend/internal/common/apperr"
	"github.com/bematende/bematende-backend/internal/management/models"
	"github.com/bematende/bematende-backend/pkg/storage/schema"
)

// FacilityService mengelola unit layanan (dulu poliklinik). Nama unik tanpa
// membedakan huruf besar/kecil lewat kolom name_key.
type FacilityService struct {
	DB          *sql.DB
	defaultName string
	log         zerolog.Logger
}

func NewFacilityService(db *sql.DB, defaultName string, log zerolog.Logger) *FacilityService {
	if strings.TrimSpace(defaultName) == "" {
		defaultName = "Itaim"
	}
	return &FacilityService{
		DB:          db,
		defaultName: strings.TrimSpace(defaultName),
		log:         log.With().Str("component", "facility_service").Logger(),
	}
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (s *FacilityService) List(ctx context.Context) ([]models.Facility, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, name FROM facilities ORDER BY name_key`)
	if err != nil {
		return nil, apperr.StorageUnavailable("list facilities", err)
	}
	defer rows.Close()

	list := []models.Facility{}
	for rows.Next() {
		var f models.Facility
		if err := rows.Scan(&f.ID, &f.Name); err != nil {
			return nil, apperr.StorageUnavailable("scan facility", err)
		}
		list = append(list, f)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.StorageUnavailable("list facilities", err)
	}
	return list, nil
}

func (s *FacilityService) Get(ctx context.Context, id string) (models.Facility, error) {
	var f models.Facility
	err := s.DB.QueryRowContext(ctx, `SELECT id, name FROM facilities WHERE id = ?`, id).Scan(&f.ID, &f.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Facility{}, apperr.NotFound("facility %s not found", id)
	}
	if err != nil {
		return models.Facility{}, apperr.StorageUnavailable("get facility", err)
	}
	return f, nil
}

func (s *FacilityService) findByName(ctx context.Context, name string) (models.Facility, bool, error) {
	var f models.Facility
	err := s.DB.QueryRowContext(ctx, `SELECT id, name FROM facilities WHERE name_key = ?`, nameKey(name)).Scan(&f.ID, &f.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Facility{}, false, nil
	}
	if err != nil {
		return models.Facility{}, false, apperr.StorageUnavailable("find facility", err)
	}
	return f, true, nil
}

// Add menolak nama kosong dan nama yang sudah dipakai unit lain.
func (s *FacilityService) Add(ctx context.Context, name string) (models.Facility, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Facility{}, apperr.Validation("facility name is required")
	}
	if _, found, err := s.findByName(ctx, name); err != nil {
		return models.Facility{}, err
	} else if found {
		return models.Facility{}, apperr.Conflict("facility %q already exists", name)
	}

	f := models.Facility{ID: uuid.NewString(), Name: name}
	if _, err := s.DB.ExecContext(ctx,
		`INSERT INTO facilities (id, name, name_key) VALUES (?, ?, ?)`, f.ID, f.Name, nameKey(name),
	); err != nil {
		if schema.IsUniqueViolation(err) {
			return models.Facility{}, apperr.Conflict("facility %q already exists", name)
		}
		return models.Facility{}, apperr.StorageUnavailable("insert facility", err)
	}
	s.log.Info().Str("facility_id", f.ID).Str("name", f.Name).Msg("facility added")
	return f, nil
}

func (s *FacilityService) Update(ctx context.Context, id, name string) (models.Facility, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Facility{}, apperr.Validation("facility name is required")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return models.Facility{}, err
	}
	if other, found, err := s.findByName(ctx, name); err != nil {
		return models.Facility{}, err
	} else if found && other.ID != id {
		return models.Facility{}, apperr.Conflict("facility %q already exists", name)
	}

	if _, err := s.DB.ExecContext(ctx,
		`UPDATE facilities SET name = ?, name_key = ? WHERE id = ?`, name, nameKey(name), id,
	); err != nil {
		if schema.IsUniqueViolation(err) {
			return models.Facility{}, apperr.Conflict("facility %q already exists", name)
		}
		return models.Facility{}, apperr.StorageUnavailable("update facility", err)
	}
	return models.Facility{ID: id, Name: name}, nil
}

// Delete melepas user dari unit yang dihapus sebelum barisnya dibuang.
func (s *FacilityService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return apperr.StorageUnavailable("begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE users SET facility_id = NULL WHERE facility_id = ?`, id); err != nil {
		return apperr.StorageUnavailable("detach users", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM facilities WHERE id = ?`, id); err != nil {
		return apperr.StorageUnavailable("delete facility", err)
	}
	if err := tx.Commit(); err != nil {
		return apperr.StorageUnavailable("commit transaction", err)
	}
	s.log.Info().Str("facility_id", id).Msg("facility deleted")
	return nil
}

// DefaultID mengembalikan id unit default, membuatnya dulu bila belum ada.
func (s *FacilityService) DefaultID(ctx context.Context) (string, error) {
	f, found, err := s.findByName(ctx, s.defaultName)
	if err != nil {
		return "", err
	}
	if found {
		return f.ID, nil
	}
	f, err = s.Add(ctx, s.defaultName)
	if apperr.KindOf(err) == apperr.KindConflict {
		// unit yang sama baru dibuat request lain di antara cek dan insert
		f, _, err = s.findByName(ctx, s.defaultName)
	}
	if err != nil {
		return "", err
	}
	return f.ID, nil
}
