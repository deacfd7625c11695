package models

type Facility struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type FacilityRequest struct {
	Name string `json:"name"`
}
