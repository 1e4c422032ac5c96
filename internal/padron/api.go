package padron

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/rezonia/afipws/internal/document"
	"github.com/rezonia/afipws/internal/metrics"
	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/internal/soap"
)

// Tax codes used to derive the registry flags from a REST lookup
const (
	taxIncome      = 10
	taxIncomeOther = 11
	taxMonotributo = 20
	taxIVA         = 30
	taxIVAExempt   = 32
	taxEmployer    = 301
)

const maxResponseSize = 16 << 20

// API queries the public AFIP registry REST service
type API struct {
	baseURL     string
	httpClient  soap.Doer
	limiter     *rate.Limiter
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// APIOption configures an API
type APIOption func(*API)

// WithHTTPClient sets the HTTP client
func WithHTTPClient(d soap.Doer) APIOption {
	return func(a *API) {
		a.httpClient = d
	}
}

// WithRateLimit limits the requests per second sent to the service
func WithRateLimit(rps float64, burst int) APIOption {
	return func(a *API) {
		if rps > 0 {
			a.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
		}
	}
}

// WithConcurrency bounds the parallel lookups of BuscarVarios
func WithConcurrency(n int) APIOption {
	return func(a *API) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) APIOption {
	return func(a *API) {
		a.logger = l
	}
}

// WithMetrics enables call metrics
func WithMetrics(m *metrics.Metrics) APIOption {
	return func(a *API) {
		a.metrics = m
	}
}

// NewAPI creates a registry client rooted at baseURL
// (https://soa.afip.gob.ar/ in production)
func NewAPI(baseURL string, opts ...APIOption) *API {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	a := &API{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: soap.DefaultTimeout},
		limiter:     rate.NewLimiter(rate.Limit(5), 1),
		concurrency: 4,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type apiError struct {
	Message string `json:"mensaje"`
	Type    string `json:"tipoError"`
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

type personData struct {
	ID             int64  `json:"idPersona"`
	PersonType     string `json:"tipoPersona"`
	KeyState       string `json:"estadoClave"`
	Name           string `json:"nombre"`
	ClosingMonth   int    `json:"mesCierre"`
	Taxes          []int  `json:"impuestos"`
	Activities     []int  `json:"actividades"`
	FiscalDomicile struct {
		Street     string `json:"direccion"`
		Locality   string `json:"localidad"`
		PostalCode string `json:"codPostal"`
		Province   int    `json:"idProvincia"`
	} `json:"domicilioFiscal"`
}

// get sends a rate-limited GET and returns the body and content type
func (a *API) get(ctx context.Context, op, path string) ([]byte, string, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json, application/pdf")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.metrics.ObserveCall(string(model.ServicePadron), op, metrics.OutcomeTransport, start)
		return nil, "", fmt.Errorf("failed to call padron %s: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		a.metrics.ObserveCall(string(model.ServicePadron), op, metrics.OutcomeTransport, start)
		return nil, "", fmt.Errorf("failed to read padron %s response: %w", op, err)
	}
	ct := resp.Header.Get("Content-Type")
	isJSON := strings.Contains(ct, "json")
	a.metrics.ObserveCall(string(model.ServicePadron), op, outcome(resp.StatusCode, isJSON), start)
	// the service reports unknown CUITs as JSON errors with a 4xx status
	if resp.StatusCode >= http.StatusMultipleChoices && !isJSON {
		return nil, "", &soap.HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(data)}
	}
	a.logger.Debug("padron call", "operation", op, "status", resp.StatusCode, "duration", time.Since(start))
	return data, ct, nil
}

// outcome classifies a response for the call metrics. JSON error bodies are
// faults reported by the service itself.
func outcome(status int, isJSON bool) string {
	switch {
	case status < http.StatusMultipleChoices:
		return metrics.OutcomeOK
	case isJSON:
		return metrics.OutcomeFault
	}
	return metrics.OutcomeError
}

// decode unwraps the success/data envelope
func decode(op string, data []byte) (json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, model.NewParseError(model.ServicePadron, op, "response is not JSON", err)
	}
	if !env.Success {
		msg := model.Message{Code: "error", Description: "unsuccessful response"}
		if env.Error != nil {
			msg = model.Message{Code: env.Error.Type, Description: env.Error.Message}
		}
		return nil, model.NewServiceError(model.ServicePadron, op, []model.Message{msg})
	}
	return env.Data, nil
}

// Consultar looks a CUIT up in the REST registry and derives the flags the
// local registry uses
func (a *API) Consultar(ctx context.Context, cuit int64) (*Taxpayer, error) {
	if cuit <= 0 {
		return nil, model.NewValidationError("cuit", cuit, "required", "CUIT is required")
	}
	data, _, err := a.get(ctx, "consultar", "sr-padron/v2/persona/"+strconv.FormatInt(cuit, 10))
	if err != nil {
		return nil, err
	}
	raw, err := decode("consultar", data)
	if err != nil {
		return nil, err
	}
	var p personData
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, model.NewParseError(model.ServicePadron, "data", "unexpected person layout", err)
	}
	if p.ID == 0 {
		p.ID = cuit
	}
	return fromPerson(p), nil
}

func fromPerson(p personData) *Taxpayer {
	has := func(code int) bool {
		for _, t := range p.Taxes {
			if t == code {
				return true
			}
		}
		return false
	}
	flag := func(ok bool) string {
		if ok {
			return "S"
		}
		return "N"
	}

	t := &Taxpayer{
		DocType:      DocTypeCUIT,
		DocNumber:    p.ID,
		Name:         p.Name,
		PersonType:   p.PersonType,
		KeyState:     p.KeyState,
		Address:      p.FiscalDomicile.Street,
		Locality:     p.FiscalDomicile.Locality,
		Province:     p.FiscalDomicile.Province,
		PostalCode:   p.FiscalDomicile.PostalCode,
		ClosingMonth: p.ClosingMonth,
		Taxes:        p.Taxes,
		Activities:   p.Activities,
	}
	switch {
	case has(taxIVAExempt):
		t.IVA = "EX"
	case has(taxIVA):
		t.IVA = "S"
	default:
		t.IVA = "N"
	}
	t.Monotributo = flag(has(taxMonotributo))
	t.IncomeTax = flag(has(taxIncome) || has(taxIncomeOther))
	t.Employer = flag(has(taxEmployer))
	t.SocietyMember = "N"
	t.IVACategory = Category(t.IVA, t.Monotributo)
	return t
}

// DescargarConstancia saves the registration certificate of cuit as a PDF
func (a *API) DescargarConstancia(ctx context.Context, cuit int64, path string) (*document.Info, error) {
	if cuit <= 0 {
		return nil, model.NewValidationError("cuit", cuit, "required", "CUIT is required")
	}
	data, ct, err := a.get(ctx, "constancia", "sr-padron/v1/constancia/"+strconv.FormatInt(cuit, 10))
	if err != nil {
		return nil, err
	}
	if strings.Contains(ct, "json") {
		if _, err := decode("constancia", data); err != nil {
			return nil, err
		}
		return nil, model.NewParseError(model.ServicePadron, "constancia", "expected a PDF document", nil)
	}
	return document.SavePDF(path, data)
}

// ObtenerTablaParametros returns a parameter table (impuestos, actividades,
// provincias...) one row per item, every value wrapped by sep
func (a *API) ObtenerTablaParametros(ctx context.Context, resource, sep string) ([]string, error) {
	if sep == "" {
		sep = model.DefaultSeparator
	}
	data, _, err := a.get(ctx, "parametros", "parametros/v1/"+resource)
	if err != nil {
		return nil, err
	}
	raw, err := decode("parametros", data)
	if err != nil {
		return nil, err
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, model.NewParseError(model.ServicePadron, "data", "expected a list", err)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		values, err := orderedValues(item)
		if err != nil {
			return nil, model.NewParseError(model.ServicePadron, "data", "unexpected item", err)
		}
		out = append(out, sep+" "+strings.Join(values, " "+sep+" ")+" "+sep)
	}
	return out, nil
}

// orderedValues returns the scalar values of a JSON object in document order
func orderedValues(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected an object")
	}
	var values []string
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		switch x := v.(type) {
		case nil:
			values = append(values, "")
		case string:
			values = append(values, x)
		case json.Number:
			values = append(values, x.String())
		case bool:
			values = append(values, strconv.FormatBool(x))
		default:
			b, _ := json.Marshal(x)
			values = append(values, string(b))
		}
	}
	return values, nil
}

// Lookup is one result of BuscarVarios
type Lookup struct {
	CUIT     int64     `json:"cuit"`
	Taxpayer *Taxpayer `json:"taxpayer,omitempty"`
	Err      error     `json:"-"`
}

// BuscarVarios looks several CUITs up concurrently, honouring the rate limit.
// Per-CUIT failures are reported in the results; only cancellation aborts.
func (a *API) BuscarVarios(ctx context.Context, cuits []int64) ([]Lookup, error) {
	results := make([]Lookup, len(cuits))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, cuit := range cuits {
		g.Go(func() error {
			t, err := a.Consultar(ctx, cuit)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			results[i] = Lookup{CUIT: cuit, Taxpayer: t, Err: err}
			if err != nil {
				a.logger.Warn("padron lookup failed", "cuit", cuit, "error", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
