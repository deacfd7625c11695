package models

import (
	commonModels "github.com/bematende/bematende-backend/internal/common/models"
)

// Stage adalah tahap alur pasien. Urutannya hanya maju:
// pre_consultation -> in_care -> finished.
type Stage string

const (
	StagePreConsultation Stage = "pre_consultation"
	StageInCare          Stage = "in_care"
	StageFinished        Stage = "finished"
)

var stageRank = map[Stage]int{
	StagePreConsultation: 0,
	StageInCare:          1,
	StageFinished:        2,
}

func (s Stage) Valid() bool {
	_, ok := stageRank[s]
	return ok
}

// Precedes true jika s berada sebelum other pada alur.
func (s Stage) Precedes(other Stage) bool {
	return stageRank[s] < stageRank[other]
}

func ParseStage(s string) (Stage, bool) {
	st := Stage(s)
	switch s {
	case "pre-consultation":
		st = StagePreConsultation
	case "in-care":
		st = StageInCare
	}
	return st, st.Valid()
}

// Patient mewakili satu kunjungan yang menunggu atau sedang dilayani.
type Patient struct {
	ID             string                      `json:"id"`
	Name           string                      `json:"name"`
	Document       string                      `json:"document,omitempty"`
	BirthDate      string                      `json:"birthDate,omitempty"`
	Contact        string                      `json:"contact,omitempty"`
	Complaint      string                      `json:"complaint,omitempty"`
	Classification commonModels.Classification `json:"classification"`
	CreatedAt      int64                       `json:"createdAt"`
	Status         Stage                       `json:"status"`
	FacilityID     string                      `json:"facilityId,omitempty"`
}

// RegisterPatientRequest adalah payload dari front desk.
type RegisterPatientRequest struct {
	Name           string `json:"name"`
	Document       string `json:"document"`
	BirthDate      string `json:"birthDate"`
	Contact        string `json:"contact"`
	Complaint      string `json:"complaint"`
	Classification string `json:"classification"`
	FacilityID     string `json:"facilityId"`
}

type OrderPolicy string

const (
	OrderArrival     OrderPolicy = "arrival"
	OrderUrgentFirst OrderPolicy = "urgent_first"
)

func (p OrderPolicy) Valid() bool {
	return p == OrderArrival || p == OrderUrgentFirst
}

// QueueSnapshot adalah daftar terurut untuk satu tahap dan unit.
type QueueSnapshot struct {
	Stage      Stage       `json:"stage"`
	FacilityID string      `json:"facilityId,omitempty"`
	Policy     OrderPolicy `json:"order"`
	Patients   []Patient   `json:"patients"`
	Total      int         `json:"total"`
	Urgent     int         `json:"urgent"`
	Stale      bool        `json:"stale"`
	TakenAt    int64       `json:"takenAt"`
}

// CallPatientRequest dikirim staf saat memanggil pasien ke ruangan.
type CallPatientRequest struct {
	Station    string `json:"station"`
	TicketCode string `json:"ticketCode"`
}
