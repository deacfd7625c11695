package models

import "strings"

// Classification ditetapkan saat pendaftaran dan tidak berubah sesudahnya.
type Classification string

const (
	ClassificationNormal Classification = "normal"
	ClassificationUrgent Classification = "urgent"
)

func (c Classification) Valid() bool {
	return c == ClassificationNormal || c == ClassificationUrgent
}

func (c Classification) IsUrgent() bool {
	return c == ClassificationUrgent
}

// ParseClassification menerima juga ejaan lama dari front desk ("urgente").
func ParseClassification(s string) (Classification, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "normal":
		return ClassificationNormal, true
	case "urgent", "urgente":
		return ClassificationUrgent, true
	default:
		return Classification(s), false
	}
}
