// Package traza implements the medicine, veterinary, agrochemical, medical
// product and precursor traceability services run by PAMI for ANMAT,
// SENASA and SEDRONAR. All of them are JAX-WS endpoints taking positional
// argN parameters, authenticated twice: a WS-Security UsernameToken for the
// web service account plus the usuario/password of the informing agent.
package traza

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/internal/soap"
)

const (
	// Namespace is shared by every traceability endpoint
	Namespace = "http://business.mywebservice.inssjp.com/"

	wsseNS = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd"
	pwType = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-username-token-profile-1.0#PasswordText"

	// DateLayout is the date format of events and filters
	DateLayout = "02/01/2006"

	// TimeLayout is the hour format of events
	TimeLayout = "15:04"
)

// Credentials are the two pairs of user and password the services need
type Credentials struct {
	WSUsername string // web service account, sent in the UsernameToken
	WSPassword string
	User       string // informing agent, sent as arguments
	Password   string
}

// Response is the common answer of the send operations
type Response struct {
	Result          bool            `json:"resultado"`
	TransactionCode string          `json:"codigo_transaccion,omitempty"`
	Errors          []model.Message `json:"errores,omitempty"`
}

// Record is one item of a transaction, catalogue or stock list. Keys are
// the response element names without the leading underscore.
type Record map[string]string

// Int64 reads a numeric value, zero when absent or malformed
func (r Record) Int64(key string) int64 {
	v, _ := strconv.ParseInt(r[key], 10, 64)
	return v
}

// Page is a page of a list query
type Page struct {
	Records  []Record        `json:"list"`
	Pages    int             `json:"cant_paginas"`
	HasError bool            `json:"hay_error"`
	Errors   []model.Message `json:"errores,omitempty"`
}

// Client holds the connection and the state of the last call
type Client struct {
	sc          *soap.Client
	errorPrefix string

	mu           sync.Mutex
	creds        Credentials
	result       string
	code         string
	errors       []model.Message
	transactions []Record
	pages        int
	hasError     bool
}

func newClient(service model.Service, endpoint string, creds Credentials, errorPrefix string, opts []soap.Option) *Client {
	c := &Client{creds: creds, errorPrefix: errorPrefix}
	opts = append([]soap.Option{soap.WithRequestHook(c.addSecurity)}, opts...)
	c.sc = soap.NewClient(service, endpoint, Namespace, opts...)
	return c
}

// addSecurity adds the WS-Security UsernameToken header
func (c *Client) addSecurity(req *soap.Request) {
	c.mu.Lock()
	user, password := c.creds.WSUsername, c.creds.WSPassword
	c.mu.Unlock()

	sec := req.Header().Group("wsse:Security")
	sec.Etree().CreateAttr("xmlns:wsse", wsseNS)
	token := sec.Group("wsse:UsernameToken")
	token.Add("wsse:Username", user)
	pw := token.Etree().CreateElement("wsse:Password")
	pw.CreateAttr("Type", pwType)
	pw.SetText(password)
}

// Service returns the service identifier
func (c *Client) Service() model.Service {
	return c.sc.Service()
}

// SOAP exposes the underlying SOAP client
func (c *Client) SOAP() *soap.Client {
	return c.sc
}

// SetUsername changes the web service account user
func (c *Client) SetUsername(user string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds.WSUsername = user
}

// SetPassword changes the web service account password
func (c *Client) SetPassword(password string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds.WSPassword = password
}

// SetAgent changes the informing agent credentials sent as arguments
func (c *Client) SetAgent(user, password string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds.User = user
	c.creds.Password = password
}

// Username returns the web service account user
func (c *Client) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds.WSUsername
}

func (c *Client) agent() (string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds.User, c.creds.Password
}

// Resultado returns the raw resultado of the last call, empty before any
func (c *Client) Resultado() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// CodigoTransaccion returns the transaction code of the last send
func (c *Client) CodigoTransaccion() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code
}

// CantPaginas returns the page count of the last list query
func (c *Client) CantPaginas() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pages
}

// HayError reports the hay_error flag of the last list query
func (c *Client) HayError() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasError
}

// Errores returns the errors of the last call
func (c *Client) Errores() []model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Message(nil), c.errors...)
}

// LeerTransaccion pops the next record of the last list query. It returns
// false when none are left.
func (c *Client) LeerTransaccion() (Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.transactions) == 0 {
		return nil, false
	}
	r := c.transactions[0]
	c.transactions = c.transactions[1:]
	return r, true
}

// LeerError pops the next error of the last call, formatted "code: text".
// It returns false when none are left.
func (c *Client) LeerError() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.errors) == 0 {
		return "", false
	}
	m := c.errors[0]
	c.errors = c.errors[1:]
	return m.String(), true
}

// Limpiar resets the state of the last call
func (c *Client) Limpiar() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result = ""
	c.code = ""
	c.errors = nil
	c.transactions = nil
	c.pages = 0
	c.hasError = false
}

// field is a named member of a DTO argument
type field struct {
	name  string
	value any
}

// dto is an argument sent as a group of fields
type dto []field

// invoke sends op with positional arguments arg0..argN. Zero scalars are
// omitted, a dto becomes a group and a []dto repeats the argument.
func (c *Client) invoke(ctx context.Context, op string, args ...any) (*soap.Node, error) {
	req := c.sc.NewRequest(op)
	for i, arg := range args {
		name := "arg" + strconv.Itoa(i)
		switch v := arg.(type) {
		case dto:
			addDTO(req.Group(name), v)
		case []dto:
			for _, d := range v {
				addDTO(req.Group(name), d)
			}
		default:
			req.AddOptional(name, v)
		}
	}

	resp, err := c.sc.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	ret := resp.Child("return")
	if !ret.Exists() {
		return nil, model.NewParseError(c.Service(), op+"Response", "missing return element", nil)
	}
	return ret, nil
}

func addDTO(e *soap.Element, d dto) {
	for _, f := range d {
		e.AddOptional(f.name, f.value)
	}
}

// send runs a send operation and records resultado, codigoTransaccion and
// errores. Service errors are returned along with the response.
func (c *Client) send(ctx context.Context, op string, args ...any) (*Response, error) {
	c.Limpiar()
	ret, err := c.invoke(ctx, op, args...)
	if err != nil {
		return nil, err
	}
	res := &Response{
		Result:          ret.Bool("resultado"),
		TransactionCode: ret.Text("codigoTransaccion"),
		Errors:          c.parseErrors(ret),
	}

	c.mu.Lock()
	c.result = ret.Text("resultado")
	c.code = res.TransactionCode
	c.errors = append([]model.Message(nil), res.Errors...)
	c.mu.Unlock()

	if se := model.NewServiceError(c.Service(), op, res.Errors); se != nil {
		return res, se
	}
	return res, nil
}

// list runs a paginated query and queues its records for LeerTransaccion
func (c *Client) list(ctx context.Context, op string, args ...any) (*Page, error) {
	c.Limpiar()
	ret, err := c.invoke(ctx, op, args...)
	if err != nil {
		return nil, err
	}
	page := &Page{
		Pages:    ret.Int("cantPaginas"),
		HasError: ret.Bool("hay_error"),
		Errors:   c.parseErrors(ret),
	}
	for _, item := range ret.All("list") {
		rec := make(Record)
		for k, v := range item.Leaves() {
			rec[strings.TrimPrefix(k, "_")] = v
		}
		page.Records = append(page.Records, rec)
	}

	c.mu.Lock()
	c.result = ret.Text("resultado")
	c.pages = page.Pages
	c.hasError = page.HasError
	c.errors = append([]model.Message(nil), page.Errors...)
	c.transactions = append([]Record(nil), page.Records...)
	c.mu.Unlock()

	if se := model.NewServiceError(c.Service(), op, page.Errors); se != nil {
		return page, se
	}
	return page, nil
}

func (c *Client) parseErrors(ret *soap.Node) []model.Message {
	var out []model.Message
	for _, e := range ret.All("errores") {
		out = append(out, model.Message{
			Code:        e.Text(c.errorPrefix + "c_error"),
			Description: e.Text(c.errorPrefix + "d_error"),
		})
	}
	return out
}

// AnalizarErrores loads the errores of a response document, for replaying
// stored answers. It returns the number of errors found.
func (c *Client) AnalizarErrores(data []byte) (int, error) {
	root, err := soap.ParseNode(data)
	if err != nil {
		return 0, err
	}
	ret := root
	if r := root.Find("return"); r.Exists() {
		ret = r
	}
	errs := c.parseErrors(ret)
	c.mu.Lock()
	c.errors = errs
	c.mu.Unlock()
	return len(errs), nil
}

func date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

func hour(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(TimeLayout)
}

// Paging selects a page of a list query
type Paging struct {
	Page     int
	PageSize int
}

func (p Paging) page() int {
	if p.Page < 1 {
		return 1
	}
	return p.Page
}

func (p Paging) size() int {
	if p.PageSize < 1 {
		return 100
	}
	return p.PageSize
}
