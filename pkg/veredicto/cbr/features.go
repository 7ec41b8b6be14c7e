// Package cbr recommends outcomes for new absence requests by comparing
// them against previously decided cases.
package cbr

import (
	"time"

	"github.com/ausentia/veredicto/pkg/veredicto/facts"
)

// Feature names of the similarity projection.
const (
	FeatureMotivo           = "motivo"
	FeatureDuracion         = "duracion"
	FeatureAusencias        = "ausencias_ultimo_mes"
	FeatureValidationStatus = "validation_status"
	FeatureCertificate      = "certificate_uploaded"
	FeatureSector           = "sector"
	FeatureDeadlineExceeded = "deadline_exceeded"
)

// motivoCodes maps absence reasons to stable numeric codes. Unknown reasons
// map to zero, which never matches a known one.
var motivoCodes = map[string]float64{
	"ART":                                 1,
	"Licencia Enfermedad Personal":        2,
	"Licencia Enfermedad Familiar":        3,
	"Licencia por Fallecimiento Familiar": 4,
	"Licencia por Matrimonio":             5,
	"Licencia por Paternidad":             6,
	"Licencia por Nacimiento":             7,
	"Permiso Gremial":                     8,
}

var sectorCodes = map[string]float64{
	"linea1":        1,
	"linea2":        2,
	"Mantenimiento": 3,
	"RH":            4,
}

// Vector is the numeric projection of one request used for similarity.
type Vector map[string]float64

// Extract projects a fact set onto the similarity features. Absent facts
// take neutral defaults; now anchors the deadline-overdue computation.
func Extract(fs facts.FactSet, now time.Time) Vector {
	v := Vector{}

	motivo, _ := fs.String("motivo")
	v[FeatureMotivo] = motivoCodes[motivo]
	v[FeatureDuracion] = numeric(fs, "duracion")
	v[FeatureAusencias] = numeric(fs, "ausencias_ultimo_mes")

	if uploaded, _ := fs.Bool("certificate_uploaded"); uploaded {
		v[FeatureCertificate] = 1
	} else {
		v[FeatureCertificate] = 0
	}

	// Validated requests score 1, anything else 0.5.
	if status, _ := fs.String("validation_status"); status == "validated" {
		v[FeatureValidationStatus] = 1
	} else {
		v[FeatureValidationStatus] = 0.5
	}

	sector, _ := fs.String("sector")
	v[FeatureSector] = sectorCodes[sector]

	// Days overdue past the certificate deadline, floored at zero.
	v[FeatureDeadlineExceeded] = 0
	if deadline, ok := fs.Time("certificate_deadline"); ok && !deadline.IsZero() {
		if overdue := now.Sub(deadline).Hours() / 24; overdue > 0 {
			v[FeatureDeadlineExceeded] = overdue
		}
	}

	return v
}

func numeric(fs facts.FactSet, name string) float64 {
	f, _ := fs.Float(name)
	return f
}
