package dto

import "time"

// CreateProductRequest entrada para registrar un producto. ID vacío genera un UUID.
type CreateProductRequest struct {
	ID          string `json:"id" validate:"omitempty,max=64"`
	Name        string `json:"name" validate:"required,min=1,max=200"`
	Class       string `json:"class" validate:"required,oneof=RAW_MATERIAL SEMI_FINISHED FINISHED PACKAGING"`
	UnitMeasure string `json:"unit_measure" validate:"omitempty,max=20"`
}

// ProductResponse salida de un producto.
type ProductResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Class       string    `json:"class"`
	UnitMeasure string    `json:"unit_measure"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
