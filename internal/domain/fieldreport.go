package domain

import "time"

// CaseReport is a disease case submitted by a field worker.
type CaseReport struct {
	ID          uint64    `json:"id"`
	PatientName string    `json:"patient_name"`
	Age         int       `json:"age"`
	Village     string    `json:"village"`
	Symptoms    string    `json:"symptoms"`
	Severity    string    `json:"severity"`
	CreatedAt   time.Time `json:"created_at"`
}

// WaterReport is a water-quality sample submitted by a field worker.
type WaterReport struct {
	ID        uint64    `json:"id"`
	Source    string    `json:"source"`
	Location  string    `json:"location"`
	PH        float64   `json:"ph"`
	Turbidity float64   `json:"turbidity"`
	CreatedAt time.Time `json:"created_at"`
}

// HygieneTips is the static awareness list served to the public portal.
var HygieneTips = []string{
	"Boil drinking water during monsoon season.",
	"Use mosquito nets to prevent Dengue.",
	"Wash hands frequently with soap for 20 seconds.",
	"Avoid stagnant water near your home.",
	"Wear masks during flu season.",
	"Store food in covered containers.",
	"Use ORS solution for dehydration cases.",
	"Sanitize frequently touched surfaces.",
}
