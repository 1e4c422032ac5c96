// Package soaptest provides an httptest server that answers SOAP calls with
// canned bodies, keyed by operation name.
package soaptest

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/beevik/etree"
)

// Envelope wraps body in a SOAP 1.1 envelope
func Envelope(body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>` +
		`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>` +
		body + `</soap:Body></soap:Envelope>`
}

// Fault builds a SOAP 1.1 fault envelope
func Fault(code, message string) string {
	return Envelope(fmt.Sprintf(`<soap:Fault><faultcode>%s</faultcode><faultstring>%s</faultstring></soap:Fault>`, code, message))
}

// Server answers SOAP requests with registered bodies
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	responses map[string]string
	requests  map[string][]*etree.Document
}

// NewServer starts a server and closes it when the test ends
func NewServer(t *testing.T) *Server {
	t.Helper()
	s := &Server{
		responses: make(map[string]string),
		requests:  make(map[string][]*etree.Document),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Handle registers the response body (without envelope) for operation
func (s *Server) Handle(operation, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[operation] = Envelope(body)
}

// HandleRaw registers a complete response document for operation
func (s *Server) HandleRaw(operation, document string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[operation] = document
}

// Requests returns the envelopes received for operation
func (s *Server) Requests(operation string) []*etree.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[operation]
}

// LastRequest returns the payload element of the last call to operation
func (s *Server) LastRequest(operation string) *etree.Element {
	reqs := s.Requests(operation)
	if len(reqs) == 0 {
		return nil
	}
	return reqs[len(reqs)-1].FindElement("//Body/" + operation)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	body := doc.FindElement("//Body")
	if body == nil || len(body.ChildElements()) == 0 {
		http.Error(w, "no body", http.StatusBadRequest)
		return
	}
	op := body.ChildElements()[0].Tag

	s.mu.Lock()
	s.requests[op] = append(s.requests[op], doc)
	resp, ok := s.responses[op]
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, Fault("soap:Server", "unknown operation "+op))
		return
	}
	if strings.Contains(resp, ":Fault>") {
		w.WriteHeader(http.StatusInternalServerError)
	}
	_, _ = io.WriteString(w, resp)
}
