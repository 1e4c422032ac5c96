// Package padron keeps a local copy of AFIP's taxpayer registry
// (apellidoNombreDenominacion) in sqlite and queries the public REST
// registry (sr-padron) for single taxpayers.
package padron

import (
	"errors"

	"github.com/rezonia/afipws/internal/flatfile"
)

// DocTypeCUIT is the document type of a CUIT
const DocTypeCUIT = 80

// IVA categories derived from the registry flags
const (
	CategoryRI          = 1 // responsable inscripto
	CategoryExempt      = 4
	CategoryFinal       = 5 // consumidor final
	CategoryMonotributo = 6
)

// ErrNotFound is returned when a taxpayer is not in the local registry
var ErrNotFound = errors.New("taxpayer not found")

// RegistryFormat is the fixed-width layout of the published registry file
var RegistryFormat = flatfile.Format{
	flatfile.N("nro_doc", 11),
	flatfile.A("denominacion", 30),
	flatfile.A("imp_ganancias", 2),
	flatfile.A("imp_iva", 2),
	flatfile.A("monotributo", 2),
	flatfile.A("integrante_soc", 1),
	flatfile.A("empleador", 1),
	flatfile.A("actividad_monotributo", 2),
}

// Taxpayer is a registry entry. The address and tax lists are only filled
// by the REST lookup or by Guardar.
type Taxpayer struct {
	DocType             int    `json:"tipo_doc"`
	DocNumber           int64  `json:"nro_doc"`
	Name                string `json:"denominacion"`
	IncomeTax           string `json:"imp_ganancias"`
	IVA                 string `json:"imp_iva"`
	Monotributo         string `json:"monotributo"`
	SocietyMember       string `json:"integrante_soc"`
	Employer            string `json:"empleador"`
	MonotributoActivity string `json:"actividad_monotributo"`
	IVACategory         int    `json:"cat_iva"`
	Email               string `json:"email,omitempty"`

	PersonType   string `json:"tipo_persona,omitempty"`
	KeyState     string `json:"estado,omitempty"`
	Address      string `json:"direccion,omitempty"`
	Locality     string `json:"localidad,omitempty"`
	Province     int    `json:"provincia,omitempty"`
	PostalCode   string `json:"cod_postal,omitempty"`
	ClosingMonth int    `json:"mes_cierre,omitempty"`
	Taxes        []int  `json:"impuestos,omitempty"`
	Activities   []int  `json:"actividades,omitempty"`
}

// Category derives the IVA category from the registry flags
func Category(iva, monotributo string) int {
	switch {
	case iva == "AC" || iva == "S":
		return CategoryRI
	case iva == "EX":
		return CategoryExempt
	case monotributo != "" && monotributo != "N" && monotributo != "NI":
		return CategoryMonotributo
	default:
		return CategoryFinal
	}
}

func fromRecord(rec flatfile.Record) Taxpayer {
	t := Taxpayer{
		DocType:             DocTypeCUIT,
		DocNumber:           rec.Int("nro_doc"),
		Name:                rec["denominacion"],
		IncomeTax:           rec["imp_ganancias"],
		IVA:                 rec["imp_iva"],
		Monotributo:         rec["monotributo"],
		SocietyMember:       rec["integrante_soc"],
		Employer:            rec["empleador"],
		MonotributoActivity: rec["actividad_monotributo"],
	}
	t.IVACategory = Category(t.IVA, t.Monotributo)
	return t
}
