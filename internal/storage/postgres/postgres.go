package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avelskoog/storefront/internal/pricing"
	store "github.com/avelskoog/storefront/internal/storage"
	"github.com/avelskoog/storefront/internal/types/order"
	"github.com/avelskoog/storefront/internal/types/product"
	"github.com/avelskoog/storefront/internal/types/user"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type PostgresStorage struct {
	db *sql.DB
}

var _ store.Storage = (*PostgresStorage)(nil)

func NewPostgresStorage(dsn string) (*PostgresStorage, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s := &PostgresStorage{db: db}

	if err := s.db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStorage) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            login TEXT UNIQUE NOT NULL,
            is_admin BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS products (
            id SERIAL PRIMARY KEY,
            tag BIGINT UNIQUE NOT NULL,
            name TEXT NOT NULL,
            description TEXT,
            category TEXT,
            price DOUBLE PRECISION NOT NULL,
            tax_exempt BOOLEAN NOT NULL DEFAULT FALSE,
            comments TEXT
        )`,
		`CREATE TABLE IF NOT EXISTS orders (
            id SERIAL PRIMARY KEY,
            uuid TEXT UNIQUE NOT NULL,
            user_id INT NOT NULL REFERENCES users(id),
            cart_detail JSONB NOT NULL,
            pay_history JSONB NOT NULL,
            subtotal DOUBLE PRECISION NOT NULL,
            tax DOUBLE PRECISION NOT NULL,
            user_comments TEXT,
            comments TEXT,
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS payment_intents (
            id TEXT PRIMARY KEY,
            order_uuid TEXT NOT NULL,
            op TEXT NOT NULL,
            amount DOUBLE PRECISION NOT NULL,
            state TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL,
            settled_at TIMESTAMPTZ
        )`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

func (s *PostgresStorage) FindByLogin(ctx context.Context, login string) (*user.User, error) {
	u := &user.User{}
	q := `SELECT id,login,is_admin,created_at FROM users WHERE login=$1`
	if err := s.db.QueryRowContext(ctx, q, login).
		Scan(&u.ID, &u.Login, &u.IsAdmin, &u.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user not found")
		}
		return nil, err
	}
	return u, nil
}

// Resolve implements the pricing catalog over the products table. The
// stored flag is an exemption, so taxability is its negation.
func (s *PostgresStorage) Resolve(ctx context.Context, tag int64) (*pricing.ResolvedProduct, error) {
	p := &product.Product{}
	q := `SELECT id, tag, name, price, tax_exempt FROM products WHERE tag=$1`
	if err := s.db.QueryRowContext(ctx, q, tag).
		Scan(&p.ID, &p.Tag, &p.Name, &p.Price, &p.TaxExempt); err != nil {
		return nil, err
	}
	return &pricing.ResolvedProduct{Price: p.Price, Taxable: !p.TaxExempt}, nil
}

func (s *PostgresStorage) CreateOrder(ctx context.Context, o *order.Order) error {
	cart, history, err := marshalOrder(o)
	if err != nil {
		return err
	}
	q := `
        INSERT INTO orders (uuid,user_id,cart_detail,pay_history,subtotal,tax,user_comments,comments,created_at,updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id`
	return s.db.QueryRowContext(ctx, q,
		o.UUID, o.UserID, cart, history, o.Subtotal, o.Tax,
		nullString(o.UserComments), nullString(o.Comments), o.CreatedAt, o.UpdatedAt,
	).Scan(&o.ID)
}

func (s *PostgresStorage) FindOrderByUUID(ctx context.Context, uuid string) (*order.Order, error) {
	const q = `
    SELECT id, uuid, user_id, cart_detail, pay_history, subtotal, tax, user_comments, comments, created_at, updated_at
    FROM orders WHERE uuid = $1`
	return scanOrder(s.db.QueryRowContext(ctx, q, uuid))
}

func (s *PostgresStorage) UpdateOrder(ctx context.Context, o *order.Order) error {
	cart, history, err := marshalOrder(o)
	if err != nil {
		return err
	}
	q := `
        UPDATE orders
        SET cart_detail=$1, pay_history=$2, subtotal=$3, tax=$4,
            user_comments=$5, comments=$6, updated_at=$7
        WHERE uuid=$8`
	_, err = s.db.ExecContext(ctx, q,
		cart, history, o.Subtotal, o.Tax,
		nullString(o.UserComments), nullString(o.Comments), o.UpdatedAt, o.UUID,
	)
	return err
}

func (s *PostgresStorage) RemoveOrder(ctx context.Context, uuid string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE uuid=$1`, uuid)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStorage) ListOrders(ctx context.Context, limit, skip int) ([]order.Order, error) {
	const q = `
        SELECT id, uuid, user_id, cart_detail, pay_history, subtotal, tax, user_comments, comments, created_at, updated_at
        FROM orders
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2`
	return s.queryOrders(ctx, q, limit, skip)
}

func (s *PostgresStorage) ListOrdersByUser(ctx context.Context, userID int64, limit, skip int) ([]order.Order, error) {
	const q = `
        SELECT id, uuid, user_id, cart_detail, pay_history, subtotal, tax, user_comments, comments, created_at, updated_at
        FROM orders
        WHERE user_id = $1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3`
	return s.queryOrders(ctx, q, userID, limit, skip)
}

func (s *PostgresStorage) queryOrders(ctx context.Context, q string, args ...any) ([]order.Order, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (s *PostgresStorage) CreateIntent(ctx context.Context, in *order.PaymentIntent) error {
	q := `
        INSERT INTO payment_intents (id, order_uuid, op, amount, state, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := s.db.ExecContext(ctx, q, in.ID, in.OrderUUID, in.Op, in.Amount, in.State, in.CreatedAt)
	return err
}

func (s *PostgresStorage) SettleIntent(ctx context.Context, id, state string, settledAt time.Time) error {
	q := `UPDATE payment_intents SET state=$1, settled_at=$2 WHERE id=$3`
	_, err := s.db.ExecContext(ctx, q, state, settledAt, id)
	return err
}

func (s *PostgresStorage) ListPendingIntentsBefore(ctx context.Context, cutoff time.Time) ([]order.PaymentIntent, error) {
	const q = `
        SELECT id, order_uuid, op, amount, state, created_at, settled_at
        FROM payment_intents
        WHERE state = 'pending' AND created_at < $1
        ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, q, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []order.PaymentIntent
	for rows.Next() {
		var in order.PaymentIntent
		var settledAt sql.NullTime
		if err := rows.Scan(&in.ID, &in.OrderUUID, &in.Op, &in.Amount, &in.State, &in.CreatedAt, &settledAt); err != nil {
			return nil, err
		}
		if settledAt.Valid {
			t := settledAt.Time
			in.SettledAt = &t
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (s *PostgresStorage) MarkIntentStale(ctx context.Context, id string) error {
	q := `UPDATE payment_intents SET state='stale' WHERE id=$1 AND state='pending'`
	_, err := s.db.ExecContext(ctx, q, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*order.Order, error) {
	var o order.Order
	var cart, history []byte
	var userComments, comments sql.NullString
	if err := row.Scan(
		&o.ID, &o.UUID, &o.UserID, &cart, &history,
		&o.Subtotal, &o.Tax, &userComments, &comments,
		&o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(cart, &o.CartDetail); err != nil {
		return nil, fmt.Errorf("decode cart detail: %w", err)
	}
	if err := json.Unmarshal(history, &o.PayHistory); err != nil {
		return nil, fmt.Errorf("decode pay history: %w", err)
	}
	if userComments.Valid {
		o.UserComments = userComments.String
	}
	if comments.Valid {
		o.Comments = comments.String
	}
	return &o, nil
}

func marshalOrder(o *order.Order) (cart, history []byte, err error) {
	cart, err = json.Marshal(o.CartDetail)
	if err != nil {
		return nil, nil, fmt.Errorf("encode cart detail: %w", err)
	}
	history, err = json.Marshal(o.PayHistory)
	if err != nil {
		return nil, nil, fmt.Errorf("encode pay history: %w", err)
	}
	return cart, history, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
