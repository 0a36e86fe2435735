package model

import "time"

// Transmission is the gearbox type of a listed car.
type Transmission string

const (
	TransmissionAutomatic     Transmission = "Automatic"
	TransmissionManual        Transmission = "Manual"
	TransmissionSemiAutomatic Transmission = "SemiAutomatic"
)

// Valid reports whether t is one of the known transmissions.
func (t Transmission) Valid() bool {
	switch t {
	case TransmissionAutomatic, TransmissionManual, TransmissionSemiAutomatic:
		return true
	}
	return false
}

// FuelType is the fuel a listed car runs on.
type FuelType string

const (
	FuelPetrol   FuelType = "Petrol"
	FuelDiesel   FuelType = "Diesel"
	FuelElectric FuelType = "Electric"
	FuelHybrid   FuelType = "Hybrid"
)

// Valid reports whether f is one of the known fuel types.
func (f FuelType) Valid() bool {
	switch f {
	case FuelPetrol, FuelDiesel, FuelElectric, FuelHybrid:
		return true
	}
	return false
}

// Car is a listing offered by a car owner for test drives. It mirrors the
// `cars` table; Images is stored as a JSON array.
type Car struct {
	ID           string       `json:"id"`
	OwnerID      string       `json:"ownerId"`
	Make         string       `json:"make"`
	Model        string       `json:"model"`
	Year         int          `json:"year"`
	Color        string       `json:"color"`
	Price        float64      `json:"price"`
	Mileage      int          `json:"mileage"`
	Transmission Transmission `json:"transmission"`
	FuelType     FuelType     `json:"fuelType"`
	Description  string       `json:"description"`
	Location     string       `json:"location"`
	Images       []string     `json:"images"`
	IsAvailable  bool         `json:"isAvailable"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// CarWithOwner is a listing joined with its owner's public name, used by the
// public listing endpoints.
type CarWithOwner struct {
	Car
	OwnerName string `json:"ownerName"`
}
