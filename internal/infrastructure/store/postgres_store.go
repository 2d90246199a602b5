package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/storefront/internal/model"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresStore implements Store on PostgreSQL. Cart snapshots are kept as a
// jsonb column; everything else is plain columns.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ConnectPostgres establishes a connection to PostgreSQL
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, err
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// Migrate creates the schema when it does not exist yet.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS counters (
			entity TEXT PRIMARY KEY,
			value  BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			key         UUID PRIMARY KEY,
			id          BIGINT UNIQUE NOT NULL,
			ts          TEXT NOT NULL,
			title       TEXT NOT NULL,
			description TEXT NOT NULL,
			code        TEXT NOT NULL,
			photo       TEXT NOT NULL,
			value       DOUBLE PRECISION NOT NULL,
			stock       INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS carts (
			key      UUID PRIMARY KEY,
			id       BIGINT UNIQUE NOT NULL,
			ts       TEXT NOT NULL,
			products JSONB NOT NULL,
			revision BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			key           UUID PRIMARY KEY,
			username      TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// NextID allocates the next domain id with a single atomic upsert.
func (s *PostgresStore) NextID(ctx context.Context, entity string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO counters (entity, value) VALUES ($1, 1)
		 ON CONFLICT (entity) DO UPDATE SET value = counters.value + 1
		 RETURNING value`,
		entity,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("next id for %s: %w", entity, err)
	}
	return id, nil
}

// Product operations

func (s *PostgresStore) ListProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, id, ts, title, description, code, photo, value, stock
		 FROM products ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.Key, &p.ID, &p.Timestamp, &p.Title, &p.Description, &p.Code, &p.Photo, &p.Value, &p.Stock); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *PostgresStore) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	var p model.Product
	err := s.db.QueryRowContext(ctx,
		`SELECT key, id, ts, title, description, code, photo, value, stock
		 FROM products WHERE id = $1`,
		id,
	).Scan(&p.Key, &p.ID, &p.Timestamp, &p.Title, &p.Description, &p.Code, &p.Photo, &p.Value, &p.Stock)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return &p, nil
}

func (s *PostgresStore) InsertProduct(ctx context.Context, p *model.Product) error {
	if p.Key == "" {
		p.Key = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO products (key, id, ts, title, description, code, photo, value, stock)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.Key, p.ID, p.Timestamp, p.Title, p.Description, p.Code, p.Photo, p.Value, p.Stock,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert product %d: %w", p.ID, err)
	}
	return nil
}

func (s *PostgresStore) UpdateProduct(ctx context.Context, p *model.Product) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products
		 SET title = $1, description = $2, code = $3, photo = $4, value = $5, stock = $6
		 WHERE id = $7`,
		p.Title, p.Description, p.Code, p.Photo, p.Value, p.Stock, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update product %d: %w", p.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update product %d: %w", p.ID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Cart operations

func (s *PostgresStore) GetCart(ctx context.Context, id int64) (*model.Cart, error) {
	var c model.Cart
	var productsJSON []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT key, id, ts, products, revision FROM carts WHERE id = $1`,
		id,
	).Scan(&c.Key, &c.ID, &c.Timestamp, &productsJSON, &c.Revision)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cart %d: %w", id, err)
	}
	if err := json.Unmarshal(productsJSON, &c.Products); err != nil {
		return nil, fmt.Errorf("decode cart %d products: %w", id, err)
	}
	if c.Products == nil {
		c.Products = []model.Product{}
	}
	return &c, nil
}

func (s *PostgresStore) InsertCart(ctx context.Context, c *model.Cart) error {
	if c.Key == "" {
		c.Key = uuid.New().String()
	}
	productsJSON, err := json.Marshal(c.Products)
	if err != nil {
		return fmt.Errorf("encode cart %d products: %w", c.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO carts (key, id, ts, products, revision) VALUES ($1, $2, $3, $4, 0)`,
		c.Key, c.ID, c.Timestamp, productsJSON,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert cart %d: %w", c.ID, err)
	}
	return nil
}

// UpdateCart rewrites the snapshot list behind a revision check so that two
// concurrent read-modify-write cycles cannot silently drop each other.
func (s *PostgresStore) UpdateCart(ctx context.Context, c *model.Cart) error {
	productsJSON, err := json.Marshal(c.Products)
	if err != nil {
		return fmt.Errorf("encode cart %d products: %w", c.ID, err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE carts SET products = $1, revision = revision + 1
		 WHERE id = $2 AND revision = $3`,
		productsJSON, c.ID, c.Revision,
	)
	if err != nil {
		return fmt.Errorf("update cart %d: %w", c.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update cart %d: %w", c.ID, err)
	}
	if n == 0 {
		// Distinguish a vanished cart from a lost race.
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM carts WHERE id = $1)`, c.ID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("update cart %d: %w", c.ID, err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrConflict
	}
	c.Revision++
	return nil
}

func (s *PostgresStore) DeleteCart(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete cart %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete cart %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// User operations

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := s.db.QueryRowContext(ctx,
		`SELECT key, username, password_hash, created_at FROM users WHERE username = $1`,
		username,
	).Scan(&u.Key, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", username, err)
	}
	return &u, nil
}

func (s *PostgresStore) InsertUser(ctx context.Context, u *model.User) error {
	if u.Key == "" {
		u.Key = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (key, username, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		u.Key, u.Username, u.PasswordHash, u.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert user %s: %w", u.Username, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}
