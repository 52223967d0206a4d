package entity

import "time"

// ProductClass clasifica el producto dentro de la cadena productiva.
type ProductClass string

const (
	ProductClassRawMaterial  ProductClass = "RAW_MATERIAL"
	ProductClassSemiFinished ProductClass = "SEMI_FINISHED"
	ProductClassFinished     ProductClass = "FINISHED"
	ProductClassPackaging    ProductClass = "PACKAGING"
)

// IsValid indica si la clase es una de las conocidas.
func (c ProductClass) IsValid() bool {
	switch c {
	case ProductClassRawMaterial, ProductClassSemiFinished, ProductClassFinished, ProductClassPackaging:
		return true
	}
	return false
}

// Product artículo inventariable (materia prima, semielaborado, terminado o empaque).
type Product struct {
	ID          string
	Name        string
	Class       ProductClass
	UnitMeasure string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
