package soap

import (
	"encoding/xml"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
)

// Version selects the SOAP envelope namespace and content type
type Version int

const (
	Version11 Version = iota
	Version12
)

const (
	envelopeNS11 = "http://schemas.xmlsoap.org/soap/envelope/"
	envelopeNS12 = "http://www.w3.org/2003/05/soap-envelope"

	envPrefix = "soapenv"
	opPrefix  = "ns1"

	// DateLayout is the date format used by the AFIP services
	DateLayout = "2006-01-02"
)

// Element is a node of an outgoing payload
type Element struct {
	el     *etree.Element
	prefix string
}

// Add appends a child element holding value and returns e for chaining
func (e *Element) Add(name string, value any) *Element {
	child := e.el.CreateElement(e.tag(name))
	child.SetText(formatValue(value))
	return e
}

// AddOptional is Add for values that are omitted when zero
func (e *Element) AddOptional(name string, value any) *Element {
	if isZero(value) {
		return e
	}
	return e.Add(name, value)
}

// Group appends an empty child element and returns it
func (e *Element) Group(name string) *Element {
	return &Element{el: e.el.CreateElement(e.tag(name)), prefix: e.prefix}
}

// AddStruct marshals v with encoding/xml and grafts the result under e
func (e *Element) AddStruct(v any) error {
	data, err := xml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %T: %w", v, err)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return fmt.Errorf("failed to read marshalled %T: %w", v, err)
	}
	if root := doc.Root(); root != nil {
		e.el.AddChild(root)
	}
	return nil
}

// Etree exposes the underlying element
func (e *Element) Etree() *etree.Element {
	return e.el
}

func (e *Element) tag(name string) string {
	if e.prefix == "" {
		return name
	}
	return e.prefix + ":" + name
}

// Request is a SOAP envelope for a single operation. The embedded Element is
// the operation element; children are unqualified unless Qualified is called.
type Request struct {
	Element
	Operation string
	Namespace string

	version Version
	doc     *etree.Document
	env     *etree.Element
	header  *etree.Element
}

// NewRequest creates a SOAP 1.1 envelope for operation in namespace
func NewRequest(namespace, operation string) *Request {
	return newRequest(namespace, operation, Version11)
}

func newRequest(namespace, operation string, version Version) *Request {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	env := doc.CreateElement(envPrefix + ":Envelope")
	if version == Version12 {
		env.CreateAttr("xmlns:"+envPrefix, envelopeNS12)
	} else {
		env.CreateAttr("xmlns:"+envPrefix, envelopeNS11)
	}
	env.CreateAttr("xmlns:"+opPrefix, namespace)

	body := env.CreateElement(envPrefix + ":Body")
	op := body.CreateElement(opPrefix + ":" + operation)

	return &Request{
		Element:   Element{el: op},
		Operation: operation,
		Namespace: namespace,
		version:   version,
		doc:       doc,
		env:       env,
	}
}

// Qualified makes child elements carry the operation namespace prefix
func (r *Request) Qualified() *Request {
	r.prefix = opPrefix
	return r
}

// Header returns the SOAP header, creating it on first use
func (r *Request) Header() *Element {
	if r.header == nil {
		r.header = etree.NewElement(envPrefix + ":Header")
		r.env.InsertChildAt(0, r.header)
	}
	return &Element{el: r.header}
}

// DeclareNamespace adds an xmlns declaration on the envelope
func (r *Request) DeclareNamespace(prefix, uri string) {
	r.env.CreateAttr("xmlns:"+prefix, uri)
}

// Version returns the envelope version
func (r *Request) Version() Version {
	return r.version
}

// Bytes serializes the envelope
func (r *Request) Bytes() ([]byte, error) {
	return r.doc.WriteToBytes()
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case decimal.Decimal:
		return v.String()
	case time.Time:
		return v.Format(DateLayout)
	case fmt.Stringer:
		return v.String()
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		return formatValue(rv.Elem().Interface())
	}
	return fmt.Sprint(value)
}

func isZero(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case decimal.Decimal:
		return v.IsZero()
	case time.Time:
		return v.IsZero()
	}
	return reflect.ValueOf(value).IsZero()
}
