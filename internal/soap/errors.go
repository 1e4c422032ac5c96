package soap

import "fmt"

// Fault is a SOAP fault returned by the remote endpoint
type Fault struct {
	Code   string
	String string
	Actor  string
	Detail string
}

func (f *Fault) Error() string {
	if f.Detail != "" {
		return fmt.Sprintf("soap fault %s: %s (%s)", f.Code, f.String, f.Detail)
	}
	return fmt.Sprintf("soap fault %s: %s", f.Code, f.String)
}

// HTTPError is a non-2xx response that carried no SOAP fault
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("unexpected HTTP status %s: %s", e.Status, body)
}

func parseFault(body *Node) *Fault {
	fault := body.Child("Fault")
	if !fault.Exists() {
		return nil
	}
	// SOAP 1.2 nests code and reason
	if code := fault.Child("Code"); code.Exists() {
		return &Fault{
			Code:   code.Text("Value"),
			String: fault.Text("Reason", "Text"),
			Actor:  fault.Text("Role"),
			Detail: detailText(fault.Child("Detail")),
		}
	}
	return &Fault{
		Code:   fault.Text("faultcode"),
		String: fault.Text("faultstring"),
		Actor:  fault.Text("faultactor"),
		Detail: detailText(fault.Child("detail")),
	}
}

func detailText(detail *Node) string {
	if !detail.Exists() {
		return ""
	}
	if text := detail.Text(); text != "" {
		return text
	}
	for _, c := range detail.Children() {
		if text := c.Text(); text != "" {
			return text
		}
		for _, cc := range c.Children() {
			if text := cc.Text(); text != "" {
				return text
			}
		}
	}
	return ""
}
