// Package repository menyimpan data pasien. Ada dua driver: SQL (MariaDB
// atau SQLite) dan REST (layanan penyimpanan generik ala json-server).
package repository

import (
	"context"

	"github.com/bematende/bematende-backend/internal/queue/models"
)

// PatientRepository dipakai PatientStore. Error domain memakai apperr
// (NotFound, TransitionRejected); kegagalan driver dibungkus StorageUnavailable.
type PatientRepository interface {
	Create(ctx context.Context, p models.Patient) error
	GetByID(ctx context.Context, id string) (models.Patient, error)
	// ListByStage memfilter status. facilityID kosong berarti semua unit;
	// pasien tanpa unit selalu ikut.
	ListByStage(ctx context.Context, stage models.Stage, facilityID string) ([]models.Patient, error)
	// Transfer memindahkan pasien dari tahap from ke to hanya jika status
	// saat ini masih from.
	Transfer(ctx context.Context, id string, from, to models.Stage) (models.Patient, error)
	// Delete tidak error untuk id yang tidak ada.
	Delete(ctx context.Context, id string) error
}

// matchesFacility adalah filter unit yang longgar, dipakai driver yang
// memfilter di sisi aplikasi.
func matchesFacility(p models.Patient, facilityID string) bool {
	return facilityID == "" || p.FacilityID == "" || p.FacilityID == facilityID
}
