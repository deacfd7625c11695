package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bematende/bematende-backend/internal/common/apperr"
	commonModels "github.com/bematende/bematende-backend/internal/common/models"
	"github.com/bematende/bematende-backend/internal/queue/models"
)

const patientColumns = `id, name, document, birth_date, contact, complaint, classification, created_at, status, facility_id`

// SQLRepository bekerja untuk MariaDB dan SQLite karena keduanya memakai placeholder "?".
type SQLRepository struct {
	DB *sql.DB
}

func NewSQLRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{DB: db}
}

func (r *SQLRepository) Create(ctx context.Context, p models.Patient) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO patients (`+patientColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, nullString(p.Document), nullString(p.BirthDate), nullString(p.Contact),
		nullString(p.Complaint), string(p.Classification), p.CreatedAt, string(p.Status), nullString(p.FacilityID),
	)
	return apperr.StorageUnavailable("insert patient", err)
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (models.Patient, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+patientColumns+` FROM patients WHERE id = ?`, id)
	p, err := scanPatient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Patient{}, apperr.NotFound("patient %s not found", id)
	}
	if err != nil {
		return models.Patient{}, apperr.StorageUnavailable("get patient", err)
	}
	return p, nil
}

func (r *SQLRepository) ListByStage(ctx context.Context, stage models.Stage, facilityID string) ([]models.Patient, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE status = ?
		  AND (? = '' OR facility_id IS NULL OR facility_id = '' OR facility_id = ?)
		ORDER BY created_at ASC, id ASC`,
		string(stage), facilityID, facilityID,
	)
	if err != nil {
		return nil, apperr.StorageUnavailable("list patients", err)
	}
	defer rows.Close()

	patients := []models.Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, apperr.StorageUnavailable("scan patient", err)
		}
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.StorageUnavailable("list patients", err)
	}
	return patients, nil
}

func (r *SQLRepository) Transfer(ctx context.Context, id string, from, to models.Stage) (models.Patient, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE patients SET status = ? WHERE id = ? AND status = ?`,
		string(to), id, string(from),
	)
	if err != nil {
		return models.Patient{}, apperr.StorageUnavailable("update status", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.Patient{}, apperr.StorageUnavailable("update status", err)
	}

	p, err := r.GetByID(ctx, id)
	if err != nil {
		return models.Patient{}, err
	}
	if affected == 0 {
		return models.Patient{}, apperr.TransitionRejected("patient %s is %s, expected %s", id, p.Status, from)
	}
	return p, nil
}

func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM patients WHERE id = ?`, id)
	return apperr.StorageUnavailable("delete patient", err)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPatient(s scanner) (models.Patient, error) {
	var p models.Patient
	var document, birthDate, contact, complaint, facilityID sql.NullString
	var classification, status string
	err := s.Scan(&p.ID, &p.Name, &document, &birthDate, &contact, &complaint,
		&classification, &p.CreatedAt, &status, &facilityID)
	if err != nil {
		return p, err
	}
	p.Document = document.String
	p.BirthDate = birthDate.String
	p.Contact = contact.String
	p.Complaint = complaint.String
	p.FacilityID = facilityID.String
	p.Classification = commonModels.Classification(classification)
	p.Status = models.Stage(status)
	return p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
