package models

import (
	commonModels "github.com/bematende/bematende-backend/internal/common/models"
)

// HistoryLimit adalah jumlah panggilan terakhir yang ditampilkan monitor.
const HistoryLimit = 6

// CallEvent adalah satu panggilan pasien ke ruangan. Panggilan yang lebih
// baru menggantikan yang lama di slot "current".
type CallEvent struct {
	PatientName    string                      `json:"patientName"`
	Classification commonModels.Classification `json:"classification"`
	FacilityID     string                      `json:"facilityId,omitempty"`
	Station        string                      `json:"station"`
	QueueLabel     string                      `json:"queueLabel"`
	TicketCode     string                      `json:"ticketCode"`
	CalledAt       int64                       `json:"calledAt"`
}

// CallRequest adalah data panggilan sebelum calledAt dan kode tiket ditetapkan.
type CallRequest struct {
	PatientName    string
	Classification commonModels.Classification
	FacilityID     string
	Station        string
	QueueLabel     string
	// TicketCode kosong berarti dibuat otomatis.
	TicketCode string
}

const (
	DefaultAutoClearSeconds = 15
	MinAutoClearSeconds     = 5
)

type DisplaySettings struct {
	AutoClear        bool `json:"autoClear"`
	AutoClearSeconds int  `json:"autoClearSeconds"`
}

// UpdateSettingsRequest memakai pointer supaya field yang tidak dikirim tidak diubah.
type UpdateSettingsRequest struct {
	AutoClear        *bool `json:"autoClear"`
	AutoClearSeconds *int  `json:"autoClearSeconds"`
}

type SlideKind string

const (
	SlideText  SlideKind = "text"
	SlideImage SlideKind = "image"
)

type Slide struct {
	Kind  SlideKind `json:"kind"`
	Text  string    `json:"text,omitempty"`
	Image string    `json:"image,omitempty"`
}

type UpdateSlidesRequest struct {
	Texts []string `json:"texts"`
}

// DisplayState adalah apa yang sedang tampil di layar ruang tunggu.
type DisplayState struct {
	Current    *CallEvent      `json:"current"`
	TicketCode string          `json:"ticketCode,omitempty"`
	History    []CallEvent     `json:"history"`
	Slide      *Slide          `json:"slide"`
	SlideIndex int             `json:"slideIndex"`
	SlideCount int             `json:"slideCount"`
	Settings   DisplaySettings `json:"settings"`
}
