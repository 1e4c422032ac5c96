package wslpg

import (
	"io"
	"strings"

	"github.com/rezonia/afipws/internal/flatfile"
	"github.com/rezonia/afipws/internal/model"
)

// HeaderFormat is the fixed-width settlement header record (tipo_reg 0)
var HeaderFormat = flatfile.Format{
	flatfile.A("tipo_reg", 1),
	flatfile.N("nro_orden", 18),
	flatfile.N("cuit_comprador", 11),
	flatfile.N("nro_act_comprador", 5),
	flatfile.N("nro_ing_bruto_comprador", 15),
	flatfile.N("cod_tipo_operacion", 2),
	flatfile.A("es_liquidacion_propia", 1),
	flatfile.A("es_canje", 1),
	flatfile.N("cod_puerto", 4),
	flatfile.A("des_puerto_localidad", 240),
	flatfile.N("cod_grano", 3),
	flatfile.N("cuit_vendedor", 11),
	flatfile.N("nro_ing_bruto_vendedor", 15),
	flatfile.A("actua_corredor", 1),
	flatfile.A("liquida_corredor", 1),
	flatfile.N("cuit_corredor", 11),
	flatfile.I("comision_corredor", 5, 2),
	flatfile.N("nro_ing_bruto_corredor", 15),
	flatfile.A("fecha_precio_operacion", 8),
	flatfile.I("precio_ref_tn", 8, 3),
	flatfile.A("cod_grado_ref", 2),
	flatfile.A("cod_grado_ent", 2),
	flatfile.I("factor_ent", 6, 3),
	flatfile.I("precio_flete_tn", 7, 2),
	flatfile.I("cont_proteico", 6, 3),
	flatfile.I("alic_iva_operacion", 5, 2),
	flatfile.N("campania_ppal", 4),
	flatfile.N("cod_localidad_procedencia", 6),
	flatfile.A("datos_adicionales", 200),
	flatfile.N("pto_emision", 4),
	flatfile.N("coe", 12),
	flatfile.A("estado", 2),
	flatfile.I("total_neto_a_pagar", 17, 2),
	flatfile.I("importe_iva", 17, 2),
	flatfile.I("operacion_con_iva", 17, 2),
	flatfile.N("total_peso_neto", 8),
	flatfile.A("errores", 1000),
}

// WriteRecord writes a settlement header and, when not nil, its authorization
func WriteRecord(w io.Writer, s *Settlement, a *Authorization, errs []model.Message) error {
	values := map[string]any{
		"tipo_reg":                  "0",
		"nro_orden":                 s.OrderNumber,
		"cuit_comprador":            s.BuyerCUIT,
		"nro_act_comprador":         s.BuyerActivity,
		"nro_ing_bruto_comprador":   s.BuyerGrossIncomeNo,
		"cod_tipo_operacion":        s.OperationType,
		"es_liquidacion_propia":     s.OwnSettlement,
		"es_canje":                  s.Exchange,
		"cod_puerto":                s.PortCode,
		"des_puerto_localidad":      s.PortLocality,
		"cod_grano":                 s.GrainCode,
		"cuit_vendedor":             s.SellerCUIT,
		"nro_ing_bruto_vendedor":    s.SellerGrossIncomeNo,
		"actua_corredor":            s.BrokerActs,
		"liquida_corredor":          s.BrokerSettles,
		"cuit_corredor":             s.BrokerCUIT,
		"comision_corredor":         s.BrokerCommission,
		"nro_ing_bruto_corredor":    s.BrokerGrossIncomeNo,
		"fecha_precio_operacion":    s.PriceDate,
		"precio_ref_tn":             s.ReferencePricePerTon,
		"cod_grado_ref":             s.ReferenceGrade,
		"cod_grado_ent":             s.DeliveredGrade,
		"factor_ent":                s.DeliveredFactor,
		"precio_flete_tn":           s.FreightPricePerTon,
		"cont_proteico":             s.ProteinContent,
		"alic_iva_operacion":        s.IVARate,
		"campania_ppal":             s.Campaign,
		"cod_localidad_procedencia": s.OriginLocality,
		"datos_adicionales":         s.AdditionalData,
		"pto_emision":               s.IssuePoint,
		"errores":                   joinMessages(errs),
	}
	if a != nil {
		values["coe"] = a.COE
		values["estado"] = a.State
		values["total_neto_a_pagar"] = a.TotalNetToPay
		values["importe_iva"] = a.IVAAmount
		values["operacion_con_iva"] = a.OperationWithIVA
		values["total_peso_neto"] = a.TotalNetWeight
	}
	return HeaderFormat.Write(w, values)
}

// ReadRecords parses settlement headers from a file. Certificates and the
// other detail lines are not part of this record.
func ReadRecords(r io.Reader) ([]*Settlement, error) {
	records, err := HeaderFormat.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var out []*Settlement
	for _, rec := range records {
		if rec["tipo_reg"] != "0" {
			continue
		}
		out = append(out, &Settlement{
			IssuePoint:           int(rec.Int("pto_emision")),
			OrderNumber:          rec.Int("nro_orden"),
			BuyerCUIT:            rec.Int("cuit_comprador"),
			BuyerActivity:        int(rec.Int("nro_act_comprador")),
			BuyerGrossIncomeNo:   rec.Int("nro_ing_bruto_comprador"),
			OperationType:        int(rec.Int("cod_tipo_operacion")),
			OwnSettlement:        rec["es_liquidacion_propia"] == "S",
			Exchange:             rec["es_canje"] == "S",
			PortCode:             int(rec.Int("cod_puerto")),
			PortLocality:         rec["des_puerto_localidad"],
			GrainCode:            int(rec.Int("cod_grano")),
			SellerCUIT:           rec.Int("cuit_vendedor"),
			SellerGrossIncomeNo:  rec.Int("nro_ing_bruto_vendedor"),
			BrokerActs:           rec["actua_corredor"] == "S",
			BrokerSettles:        rec["liquida_corredor"] == "S",
			BrokerCUIT:           rec.Int("cuit_corredor"),
			BrokerCommission:     rec.Decimal("comision_corredor"),
			BrokerGrossIncomeNo:  rec.Int("nro_ing_bruto_corredor"),
			PriceDate:            rec.Date("fecha_precio_operacion"),
			ReferencePricePerTon: rec.Decimal("precio_ref_tn"),
			ReferenceGrade:       rec["cod_grado_ref"],
			DeliveredGrade:       rec["cod_grado_ent"],
			DeliveredFactor:      rec.Decimal("factor_ent"),
			FreightPricePerTon:   rec.Decimal("precio_flete_tn"),
			ProteinContent:       rec.Decimal("cont_proteico"),
			IVARate:              rec.Decimal("alic_iva_operacion"),
			Campaign:             int(rec.Int("campania_ppal")),
			OriginLocality:       int(rec.Int("cod_localidad_procedencia")),
			AdditionalData:       rec["datos_adicionales"],
		})
	}
	return out, nil
}

func joinMessages(msgs []model.Message) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, m.String())
	}
	return strings.Join(parts, "; ")
}
