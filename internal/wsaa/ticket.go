package wsaa

import (
	"fmt"
	"regexp"
	"time"

	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/internal/soap"
)

var destinationCUIT = regexp.MustCompile(`CUIT\s*(\d{11})`)

// Ticket is an access ticket (TA) granted by WSAA for one service
type Ticket struct {
	Service        string    `json:"service" msgpack:"service"`
	Token          string    `json:"-" msgpack:"token"`
	Sign           string    `json:"-" msgpack:"sign"`
	Source         string    `json:"source" msgpack:"source"`
	Destination    string    `json:"destination" msgpack:"destination"`
	UniqueID       int64     `json:"unique_id" msgpack:"unique_id"`
	GenerationTime time.Time `json:"generation_time" msgpack:"generation_time"`
	ExpirationTime time.Time `json:"expiration_time" msgpack:"expiration_time"`
	XML            string    `json:"-" msgpack:"xml"`
}

// ParseTicket reads a loginTicketResponse document
func ParseTicket(data []byte) (*Ticket, error) {
	root, err := soap.ParseNode(data)
	if err != nil {
		return nil, model.NewParseError(model.ServiceWSAA, "loginTicketResponse", "invalid ticket XML", err)
	}
	if root.Name() != "loginTicketResponse" {
		return nil, model.NewParseError(model.ServiceWSAA, "loginTicketResponse", fmt.Sprintf("unexpected root element %q", root.Name()), nil)
	}

	t := &Ticket{
		Token:          root.Text("credentials", "token"),
		Sign:           root.Text("credentials", "sign"),
		Source:         root.Text("header", "source"),
		Destination:    root.Text("header", "destination"),
		UniqueID:       root.Int64("header", "uniqueId"),
		GenerationTime: root.Time(TimeLayout, "header", "generationTime"),
		ExpirationTime: root.Time(TimeLayout, "header", "expirationTime"),
		XML:            string(data),
	}
	if t.Token == "" || t.Sign == "" {
		return nil, model.NewParseError(model.ServiceWSAA, "credentials", "token or sign missing", nil)
	}
	if t.ExpirationTime.IsZero() {
		return nil, model.NewParseError(model.ServiceWSAA, "expirationTime", "missing or malformed", nil)
	}
	return t, nil
}

// Expired reports whether the ticket is no longer accepted at now
func (t *Ticket) Expired(now time.Time) bool {
	return !now.Before(t.ExpirationTime)
}

// ValidFor reports whether the ticket is still good for at least margin
func (t *Ticket) ValidFor(now time.Time, margin time.Duration) bool {
	return t != nil && t.Token != "" && now.Add(margin).Before(t.ExpirationTime)
}

// CUIT returns the represented taxpayer from the ticket destination
func (t *Ticket) CUIT() string {
	if m := destinationCUIT.FindStringSubmatch(t.Destination); m != nil {
		return m[1]
	}
	return ""
}
