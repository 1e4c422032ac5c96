package padron

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rezonia/afipws/internal/flatfile"
)

// Store is the local registry database
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the sqlite database at path. ":memory:"
// gives a throwaway database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at '%s': %w", path, err)
	}
	// sqlite serializes writers and ":memory:" is per connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database connection test failed for '%s': %w", path, err)
	}
	if err := initializeDatabase(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initializeDatabase(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS padron (
			tipo_doc INTEGER NOT NULL,
			nro_doc INTEGER NOT NULL,
			denominacion TEXT NOT NULL DEFAULT '',
			imp_ganancias TEXT NOT NULL DEFAULT '',
			imp_iva TEXT NOT NULL DEFAULT '',
			monotributo TEXT NOT NULL DEFAULT '',
			integrante_soc TEXT NOT NULL DEFAULT '',
			empleador TEXT NOT NULL DEFAULT '',
			actividad_monotributo TEXT NOT NULL DEFAULT '',
			cat_iva INTEGER NOT NULL DEFAULT 0,
			email TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (tipo_doc, nro_doc)
		);

		CREATE INDEX IF NOT EXISTS idx_padron_denominacion ON padron(denominacion);

		CREATE TABLE IF NOT EXISTS domicilio (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tipo_doc INTEGER NOT NULL,
			nro_doc INTEGER NOT NULL,
			direccion TEXT NOT NULL,
			localidad TEXT NOT NULL DEFAULT '',
			provincia INTEGER NOT NULL DEFAULT 0,
			cod_postal TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_domicilio_doc ON domicilio(tipo_doc, nro_doc);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create database schema: %w", err)
	}
	return nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Import loads registry lines from r in a single transaction. With replace
// the previous content is dropped first. It returns the number of rows.
func (s *Store) Import(ctx context.Context, r io.Reader, replace bool) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if replace {
		if _, err := tx.ExecContext(ctx, `DELETE FROM padron`); err != nil {
			return 0, fmt.Errorf("failed to clear registry: %w", err)
		}
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO padron (tipo_doc, nro_doc, denominacion, imp_ganancias, imp_iva,
			monotributo, integrante_soc, empleador, actividad_monotributo, cat_iva)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare import: %w", err)
	}
	defer stmt.Close()

	count := 0
	err = RegistryFormat.Each(r, func(rec flatfile.Record) error {
		t := fromRecord(rec)
		if t.DocNumber == 0 {
			return nil
		}
		if _, err := stmt.ExecContext(ctx, t.DocType, t.DocNumber, t.Name, t.IncomeTax, t.IVA,
			t.Monotributo, t.SocietyMember, t.Employer, t.MonotributoActivity, t.IVACategory); err != nil {
			return fmt.Errorf("failed to insert %d: %w", t.DocNumber, err)
		}
		count++
		return nil
	})
	if err != nil {
		return 0, err
	}
	if replace {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM domicilio WHERE NOT EXISTS (
				SELECT 1 FROM padron p WHERE p.tipo_doc = domicilio.tipo_doc AND p.nro_doc = domicilio.nro_doc
			)
		`); err != nil {
			return 0, fmt.Errorf("failed to clear stale addresses: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}
	return count, nil
}

// Buscar looks a taxpayer up by document. It returns ErrNotFound when absent.
func (s *Store) Buscar(ctx context.Context, docNumber int64, docType int) (*Taxpayer, error) {
	if docType == 0 {
		docType = DocTypeCUIT
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT tipo_doc, nro_doc, denominacion, imp_ganancias, imp_iva, monotributo,
			integrante_soc, empleador, actividad_monotributo, cat_iva, email
		FROM padron
		WHERE tipo_doc = ? AND nro_doc = ?
	`, docType, docNumber)

	var t Taxpayer
	err := row.Scan(&t.DocType, &t.DocNumber, &t.Name, &t.IncomeTax, &t.IVA, &t.Monotributo,
		&t.SocietyMember, &t.Employer, &t.MonotributoActivity, &t.IVACategory, &t.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up %d: %w", docNumber, err)
	}

	addrs, err := s.addresses(ctx, docNumber, docType)
	if err != nil {
		return nil, err
	}
	if len(addrs) > 0 {
		t.Address = addrs[0].Street
		t.Locality = addrs[0].Locality
		t.Province = addrs[0].Province
		t.PostalCode = addrs[0].PostalCode
	}
	return &t, nil
}

// likeEscaper quotes the LIKE wildcards of user input
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// BuscarCUIT returns the CUITs whose name contains name, at most limit
func (s *Store) BuscarCUIT(ctx context.Context, name string, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT nro_doc FROM padron
		WHERE tipo_doc = ? AND denominacion LIKE '%' || ? || '%' ESCAPE '\'
		ORDER BY denominacion
		LIMIT ?
	`, DocTypeCUIT, likeEscaper.Replace(strings.ToUpper(strings.TrimSpace(name))), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search %q: %w", name, err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var cuit int64
		if err := rows.Scan(&cuit); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		out = append(out, cuit)
	}
	return out, rows.Err()
}

// Guardar inserts or replaces a taxpayer and records its address when set.
// The IVA category is derived when not given.
func (s *Store) Guardar(ctx context.Context, t *Taxpayer) error {
	if t.DocType == 0 {
		t.DocType = DocTypeCUIT
	}
	if t.IncomeTax == "" {
		t.IncomeTax = "NI"
	}
	if t.IVA == "" {
		t.IVA = "NI"
	}
	if t.Monotributo == "" {
		t.Monotributo = "NI"
	}
	if t.SocietyMember == "" {
		t.SocietyMember = "N"
	}
	if t.Employer == "" {
		t.Employer = "N"
	}
	if t.IVACategory == 0 {
		t.IVACategory = Category(t.IVA, t.Monotributo)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin save: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO padron (tipo_doc, nro_doc, denominacion, imp_ganancias, imp_iva,
			monotributo, integrante_soc, empleador, actividad_monotributo, cat_iva, email)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.DocType, t.DocNumber, t.Name, t.IncomeTax, t.IVA, t.Monotributo,
		t.SocietyMember, t.Employer, t.MonotributoActivity, t.IVACategory, t.Email)
	if err != nil {
		return fmt.Errorf("failed to save %d: %w", t.DocNumber, err)
	}

	if t.Address != "" {
		var exists int
		err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM domicilio WHERE tipo_doc = ? AND nro_doc = ? AND direccion = ?
		`, t.DocType, t.DocNumber, t.Address).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check address: %w", err)
		}
		if exists == 0 {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO domicilio (tipo_doc, nro_doc, direccion, localidad, provincia, cod_postal)
				VALUES (?, ?, ?, ?, ?, ?)
			`, t.DocType, t.DocNumber, t.Address, t.Locality, t.Province, t.PostalCode)
			if err != nil {
				return fmt.Errorf("failed to save address: %w", err)
			}
		}
	}
	return tx.Commit()
}

// Address is a stored address of a taxpayer
type Address struct {
	ID         int64  `json:"id"`
	Street     string `json:"direccion"`
	Locality   string `json:"localidad,omitempty"`
	Province   int    `json:"provincia,omitempty"`
	PostalCode string `json:"cod_postal,omitempty"`
}

// ConsultarDomicilios lists the addresses of a taxpayer in insertion order.
// A non-zero ivaCategory restricts the result to taxpayers of that category.
func (s *Store) ConsultarDomicilios(ctx context.Context, docNumber int64, docType, ivaCategory int) ([]string, error) {
	if docType == 0 {
		docType = DocTypeCUIT
	}
	if ivaCategory != 0 {
		var cat int
		err := s.db.QueryRowContext(ctx, `
			SELECT cat_iva FROM padron WHERE tipo_doc = ? AND nro_doc = ?
		`, docType, docNumber).Scan(&cat)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to look up %d: %w", docNumber, err)
		}
		if cat != ivaCategory {
			return nil, nil
		}
	}
	addrs, err := s.addresses(ctx, docNumber, docType)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.Street)
	}
	return out, nil
}

func (s *Store) addresses(ctx context.Context, docNumber int64, docType int) ([]Address, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, direccion, localidad, provincia, cod_postal
		FROM domicilio
		WHERE tipo_doc = ? AND nro_doc = ?
		ORDER BY id
	`, docType, docNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses of %d: %w", docNumber, err)
	}
	defer rows.Close()

	var out []Address
	for rows.Next() {
		var a Address
		if err := rows.Scan(&a.ID, &a.Street, &a.Locality, &a.Province, &a.PostalCode); err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Count returns the number of registry rows
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM padron`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count registry: %w", err)
	}
	return n, nil
}
