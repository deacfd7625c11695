package models

import "strings"

type ProfessionalType string

const (
	ProfessionalAttendant         ProfessionalType = "ATTENDANT"
	ProfessionalNurse             ProfessionalType = "NURSE"
	ProfessionalDoctor            ProfessionalType = "DOCTOR"
	ProfessionalNursingTechnician ProfessionalType = "NURSING_TECHNICIAN"
)

func ParseProfessionalType(s string) (ProfessionalType, bool) {
	t := ProfessionalType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case ProfessionalAttendant, ProfessionalNurse, ProfessionalDoctor, ProfessionalNursingTechnician:
		return t, true
	}
	return t, false
}

const (
	RoleAdmin  = "admin"
	RoleStaff  = "staff"
	RoleNurse  = "nurse"
	RoleDoctor = "doctor"
)

// RoleFor memetakan jenis profesi ke role aplikasi.
func RoleFor(t ProfessionalType) string {
	switch t {
	case ProfessionalDoctor:
		return RoleDoctor
	case ProfessionalNurse:
		return RoleNurse
	default:
		return RoleStaff
	}
}

type User struct {
	ID               string           `json:"id"`
	Username         string           `json:"username"`
	Name             string           `json:"name"`
	Role             string           `json:"role"`
	ProfessionalType ProfessionalType `json:"professionalType"`
	FacilityID       string           `json:"facilityId,omitempty"`
	CreatedAt        int64            `json:"createdAt"`
}

type RegisterRequest struct {
	Username         string `json:"username"`
	Password         string `json:"password"`
	Name             string `json:"name"`
	ProfessionalType string `json:"professionalType"`
	FacilityID       string `json:"facilityId"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Session struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
	User      User   `json:"user"`
}

type UpdateUserFacilityRequest struct {
	FacilityID string `json:"facilityId"`
}
