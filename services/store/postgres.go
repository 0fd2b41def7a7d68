package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/dealmungchi/offerwatcher/internal/offer"
	apperrors "github.com/dealmungchi/offerwatcher/pkg/errors"
)

const storeSource = "store"

//go:embed schema.sql
var schema string

// Connect opens and pings a Postgres connection pool
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, apperrors.NewPersistence(storeSource, "connect to database", err)
	}
	return db, nil
}

// Migrate creates the subscriptions and offers tables if they do not exist
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return apperrors.NewPersistence(storeSource, "apply schema", err)
	}
	return nil
}

// PostgresStore implements OfferStore and SubscriptionStore on Postgres
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a store on an open connection pool
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Exists reports whether url was recorded for the subscription
func (s *PostgresStore) Exists(ctx context.Context, subscriptionID int64, url string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM offers WHERE subscription_id = $1 AND url = $2)`,
		subscriptionID, url,
	)
	if err != nil {
		return false, apperrors.NewPersistence(storeSource, "check offer existence", err)
	}
	return exists, nil
}

// InsertIfAbsent relies on the (subscription_id, url) unique constraint, so
// concurrent inserts of the same pair record it exactly once.
func (s *PostgresStore) InsertIfAbsent(ctx context.Context, subscriptionID int64, o offer.Offer) (bool, error) {
	query := `
		INSERT INTO offers (
			subscription_id, url, title, price, image_url, mileage,
			fuel_type, gearbox, year_of_production, location, posted_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
		ON CONFLICT (subscription_id, url) DO NOTHING
		RETURNING id`

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		subscriptionID,
		o.URL,
		o.Title,
		o.Price,
		o.ImageURL,
		o.Mileage,
		o.FuelType,
		o.Gearbox,
		o.Year,
		o.Location,
		o.PostedAt,
	).Scan(&id)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewPersistence(storeSource, "insert offer", err)
	}
	return true, nil
}

// ListOffers returns the offers recorded for a subscription, oldest first
func (s *PostgresStore) ListOffers(ctx context.Context, subscriptionID int64) ([]offer.Offer, error) {
	var offers []offer.Offer
	err := s.db.SelectContext(ctx, &offers, `
		SELECT url, title, price, image_url, mileage, fuel_type, gearbox,
			year_of_production, location, posted_at
		FROM offers
		WHERE subscription_id = $1
		ORDER BY id`, subscriptionID)
	if err != nil {
		return nil, apperrors.NewPersistence(storeSource, "list offers", err)
	}
	return offers, nil
}

// List returns all subscriptions ordered by id
func (s *PostgresStore) List(ctx context.Context) ([]offer.Subscription, error) {
	var subs []offer.Subscription
	err := s.db.SelectContext(ctx, &subs,
		`SELECT id, url, notification_target, last_sync FROM subscriptions ORDER BY id`)
	if err != nil {
		return nil, apperrors.NewPersistence(storeSource, "list subscriptions", err)
	}
	return subs, nil
}

// Create adds a subscription
func (s *PostgresStore) Create(ctx context.Context, url, notificationTarget string) (*offer.Subscription, error) {
	var sub offer.Subscription
	err := s.db.GetContext(ctx, &sub, `
		INSERT INTO subscriptions (url, notification_target)
		VALUES ($1, $2)
		RETURNING id, url, notification_target, last_sync`,
		url, notificationTarget,
	)
	if err != nil {
		return nil, apperrors.NewPersistence(storeSource, "create subscription", err)
	}
	return &sub, nil
}

// Delete removes a subscription; its offers go with it
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return apperrors.NewPersistence(storeSource, "delete subscription", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewPersistence(storeSource, "delete subscription", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchLastSync updates the diagnostic last sync time
func (s *PostgresStore) TouchLastSync(ctx context.Context, id int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE subscriptions SET last_sync = $2 WHERE id = $1`, id, at)
	if err != nil {
		return apperrors.NewPersistence(storeSource, "update last sync", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
