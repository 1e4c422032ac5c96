package wsctg

import (
	"io"
	"strings"

	"github.com/rezonia/afipws/internal/flatfile"
	"github.com/rezonia/afipws/internal/model"
)

// RecordFormat is the fixed-width CTG exchange record
var RecordFormat = flatfile.Format{
	flatfile.A("tipo_reg", 1),
	flatfile.N("numero_carta_de_porte", 13),
	flatfile.N("codigo_especie", 5),
	flatfile.N("cuit_canjeador", 11),
	flatfile.N("cuit_destino", 11),
	flatfile.N("cuit_destinatario", 11),
	flatfile.N("codigo_localidad_origen", 6),
	flatfile.N("codigo_localidad_destino", 6),
	flatfile.A("codigo_cosecha", 4),
	flatfile.N("peso_neto_carga", 5),
	flatfile.N("cant_horas", 2),
	flatfile.A("patente_vehiculo", 10),
	flatfile.N("cuit_transportista", 11),
	flatfile.N("km_a_recorrer", 4),
	flatfile.N("establecimiento", 6),
	flatfile.N("numero_ctg", 8),
	flatfile.A("fecha_hora", 19),
	flatfile.A("vigencia_desde", 10),
	flatfile.A("vigencia_hasta", 10),
	flatfile.N("transaccion", 12),
	flatfile.I("tarifa_referencia", 8, 2),
	flatfile.A("estado", 20),
	flatfile.A("observaciones", 200),
	flatfile.A("errores", 1000),
	flatfile.A("controles", 1000),
}

// WriteRecord writes a request and, when not nil, its result as one line
func WriteRecord(w io.Writer, in InitialRequest, res *Result, errs []model.Message) error {
	values := map[string]any{
		"tipo_reg":                 "0",
		"numero_carta_de_porte":    in.WaybillNumber,
		"codigo_especie":           in.SpeciesCode,
		"cuit_canjeador":           in.ExchangerCUIT,
		"cuit_destino":             in.DestinationCUIT,
		"cuit_destinatario":        in.RecipientCUIT,
		"codigo_localidad_origen":  in.OriginLocalityCode,
		"codigo_localidad_destino": in.DestinationLocalityCode,
		"codigo_cosecha":           in.HarvestCode,
		"peso_neto_carga":          in.NetWeight,
		"cant_horas":               in.Hours,
		"patente_vehiculo":         in.Plate,
		"cuit_transportista":       in.CarrierCUIT,
		"km_a_recorrer":            in.KmToTravel,
		"tarifa_referencia":        in.ReferenceRate,
		"errores":                  joinMessages(errs),
	}
	if res != nil {
		values["numero_ctg"] = res.CTG
		values["fecha_hora"] = res.Timestamp
		values["vigencia_desde"] = res.ValidFrom
		values["vigencia_hasta"] = res.ValidTo
		values["transaccion"] = res.TransactionCode
		values["observaciones"] = res.Observations
		values["controles"] = joinMessages(res.Controls)
		if !res.ReferenceRate.IsZero() {
			values["tarifa_referencia"] = res.ReferenceRate
		}
	}
	return RecordFormat.Write(w, values)
}

// ReadRecords parses a CTG file into initial requests
func ReadRecords(r io.Reader) ([]InitialRequest, error) {
	records, err := RecordFormat.ReadAll(r)
	if err != nil {
		return nil, err
	}
	out := make([]InitialRequest, 0, len(records))
	for _, rec := range records {
		if rec["tipo_reg"] != "0" {
			continue
		}
		out = append(out, InitialRequest{
			WaybillNumber:           rec.Int("numero_carta_de_porte"),
			SpeciesCode:             int(rec.Int("codigo_especie")),
			ExchangerCUIT:           rec.Int("cuit_canjeador"),
			DestinationCUIT:         rec.Int("cuit_destino"),
			RecipientCUIT:           rec.Int("cuit_destinatario"),
			OriginLocalityCode:      int(rec.Int("codigo_localidad_origen")),
			DestinationLocalityCode: int(rec.Int("codigo_localidad_destino")),
			HarvestCode:             rec["codigo_cosecha"],
			NetWeight:               rec.Int("peso_neto_carga"),
			Hours:                   int(rec.Int("cant_horas")),
			Plate:                   rec["patente_vehiculo"],
			CarrierCUIT:             rec.Int("cuit_transportista"),
			KmToTravel:              int(rec.Int("km_a_recorrer")),
			ReferenceRate:           rec.Decimal("tarifa_referencia"),
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
