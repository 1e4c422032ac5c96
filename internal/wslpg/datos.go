package wslpg

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/rezonia/afipws/internal/model"
)

// settlementQueue holds the settlements of the last consultation or
// adjustment until they are read
type settlementQueue struct {
	mu    sync.Mutex
	items []*Authorization
}

func (q *settlementQueue) set(items ...*Authorization) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = q.items[:0]
	for _, a := range items {
		if a != nil {
			q.items = append(q.items, a)
		}
	}
}

func (q *settlementQueue) pop() (*Authorization, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	a := q.items[0]
	q.items = q.items[1:]
	return a, true
}

// LeerDatosLiquidacion returns the next settlement of the last
// consultation or adjustment (credit side first, then debit). ok is false
// once every settlement was read.
func (c *Client) LeerDatosLiquidacion() (a *Authorization, ok bool) {
	return c.settlements.pop()
}

func adjustmentParts(res *AdjustmentResult) []*Authorization {
	if res == nil {
		return nil
	}
	return []*Authorization{res.Credit, res.Debit}
}

// localityCache keeps locality tables by province
type localityCache struct {
	mu     sync.Mutex
	tables map[int][]model.Parameter
}

func (lc *localityCache) get(province int) ([]model.Parameter, bool) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	t, ok := lc.tables[province]
	return t, ok
}

func (lc *localityCache) put(province int, table []model.Parameter) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if lc.tables == nil {
		lc.tables = make(map[int][]model.Parameter)
	}
	lc.tables[province] = table
}

// BuscarLocalidades returns the description of a locality. The province
// table is fetched once and then served from memory.
func (c *Client) BuscarLocalidades(ctx context.Context, province, locality int) (string, error) {
	table, ok := c.localities.get(province)
	if !ok {
		var err error
		if table, err = c.ConsultarLocalidadesPorProvincia(ctx, province); err != nil {
			return "", err
		}
		c.localities.put(province, table)
	}
	for _, p := range table {
		if code, err := strconv.Atoi(strings.TrimSpace(p.Code)); err == nil && code == locality {
			return p.Description, nil
		}
	}
	return "", model.NewValidationError("cod_localidad", locality, "exists", "unknown locality for the province")
}
