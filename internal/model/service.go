package model

import "fmt"

// Service identifies a remote web service
type Service string

const (
	ServiceWSAA         Service = "wsaa"
	ServiceWSCOC        Service = "wscoc"
	ServiceWSCTG        Service = "wsctg"
	ServiceWSLPG        Service = "wslpg"
	ServiceDepFiel      Service = "wDigDepFiel"
	ServicePadron       Service = "padron"
	ServiceCOT          Service = "cot"
	ServiceIIBB         Service = "iibb"
	ServiceTrazaMed     Service = "trazamed"
	ServiceTrazaVet     Service = "trazavet"
	ServiceTrazaFito    Service = "trazafito"
	ServiceTrazaProdMed Service = "trazaprodmed"
	ServiceTrazaRenpre  Service = "trazarenpre"
)

// Message is a code/description pair reported by a service (error,
// observation, control or inconsistency)
type Message struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (m Message) String() string {
	if m.Code == "" {
		return m.Description
	}
	return fmt.Sprintf("%s: %s", m.Code, m.Description)
}

// ServerStatus is the result of a Dummy call
type ServerStatus struct {
	AppServer  string `json:"app_server"`
	DBServer   string `json:"db_server"`
	AuthServer string `json:"auth_server"`
}

// OK reports whether every reported server answered "OK"
func (s ServerStatus) OK() bool {
	for _, v := range []string{s.AppServer, s.DBServer, s.AuthServer} {
		if v != "" && v != "OK" {
			return false
		}
	}
	return s.AppServer != ""
}

// Parameter is an entry of a service lookup table
type Parameter struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// DefaultSeparator wraps the values of parameter rows when no separator is given
const DefaultSeparator = "||"

// Format renders the entry as a separated row, e.g. "|| 1 || Dólar ||"
func (p Parameter) Format(sep string) string {
	return fmt.Sprintf("%s %s %s %s %s", sep, p.Code, sep, p.Description, sep)
}

// FormatParameters renders every entry with sep, DefaultSeparator when empty
func FormatParameters(params []Parameter, sep string) []string {
	if sep == "" {
		sep = DefaultSeparator
	}
	out := make([]string, 0, len(params))
	for _, p := range params {
		out = append(out, p.Format(sep))
	}
	return out
}
