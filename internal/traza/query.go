package traza

import "time"

// Query filters the transaction lists. Zero fields are not sent.
type Query struct {
	TransactionID      int64
	InformerAgentID    string
	OriginAgentID      string // GLN or agent id, depending on the service
	DestinationAgentID string
	GTIN               string
	EventID            int
	OperationFrom      time.Time
	OperationTo        time.Time
	TransactionFrom    time.Time
	TransactionTo      time.Time
	ExpiryFrom         time.Time
	ExpiryTo           time.Time
	Remito             string
	Invoice            string
	State              int
	Lot                string
	Serial             string
	ProvinceID         int
	TransactionType    int
	AnalyticQuantity   int
	Paging
}

// CatalogQuery filters the electronic catalogue
type CatalogQuery struct {
	GTIN          string
	GLN           string
	Brand         string
	Model         string
	CUIT          string
	GenericNameID int
	Paging
}

func (q CatalogQuery) args(c *Client) []any {
	user, password := c.agent()
	return []any{
		user, password,
		q.GTIN,
		q.GLN,
		q.Brand,
		q.Model,
		q.CUIT,
		q.GenericNameID,
		q.page(), q.size(),
	}
}

// StockQuery filters the stock query
type StockQuery struct {
	GTIN        string
	GLN         string
	Description string
	Quantity    int
	Paging
}
