package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver

	"github.com/coffeed/coffeed-admin/models"
)

const uniqueViolation = "23505"

var (
	ErrShopNotFound   = errors.New("coffee shop not found")
	ErrDuplicatePlace = errors.New("a coffee shop with this place id already exists")
)

// ShopRepository stores imported coffee shops across the coffee_shops,
// addresses, contacts and schedules tables.
type ShopRepository struct {
	db *sql.DB
}

func NewShopRepository(db *sql.DB) *ShopRepository {
	return &ShopRepository{db: db}
}

// CreateShop inserts the shop and its child rows in a single transaction and
// returns the new shop id.
func (repo *ShopRepository) CreateShop(ctx context.Context, shop *models.ImportedShop) (string, error) {
	id := uuid.NewString()

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	const insertShop = `INSERT INTO coffee_shops
		(id, name, description, image, location_latitude, location_longitude, google_place_id, google_maps_url, plus_code, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	lat, lng := location(shop.Address)

	_, err = tx.ExecContext(ctx, insertShop,
		id,
		shop.Name,
		nullString(shop.Description),
		nullString(shop.ImageURL),
		lat,
		lng,
		nullString(shop.PlaceID),
		nullString(shop.GoogleMapsURL),
		nullString(shop.PlusCode),
		shop.Active,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return "", ErrDuplicatePlace
		}

		return "", fmt.Errorf("failed to create coffee shop: %w", err)
	}

	const insertAddress = `INSERT INTO addresses (coffee_shop_id, street, city, state, country, postal_code)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = tx.ExecContext(ctx, insertAddress,
		id,
		shop.Address.Street,
		shop.Address.City,
		nullString(shop.Address.State),
		nullString(shop.Address.Country),
		nullString(shop.Address.PostalCode),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create address: %w", err)
	}

	const insertContact = `INSERT INTO contacts (coffee_shop_id, type, value) VALUES ($1, $2, $3)`

	for _, c := range shop.Contacts() {
		if _, err := tx.ExecContext(ctx, insertContact, id, string(c.Type), c.Value); err != nil {
			return "", fmt.Errorf("failed to create %s contact: %w", c.Type, err)
		}
	}

	const insertSchedule = `INSERT INTO schedules (coffee_shop_id, day_of_week, open_time, close_time, closed, deleted)
		VALUES ($1, $2, $3, $4, $5, FALSE)`

	for _, s := range shop.Schedule {
		var open, closeAt sql.NullString
		if !s.IsClosed {
			open = nullString(s.OpenTime)
			closeAt = nullString(s.CloseTime)
		}

		if _, err := tx.ExecContext(ctx, insertSchedule, id, s.DayOfWeek, open, closeAt, s.IsClosed); err != nil {
			return "", fmt.Errorf("failed to create schedule for day %d: %w", s.DayOfWeek, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit coffee shop: %w", err)
	}

	return id, nil
}

// GetShop loads a stored shop with its address, contacts and schedule.
func (repo *ShopRepository) GetShop(ctx context.Context, id string) (*models.ImportedShop, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrShopNotFound
	}

	const q = `SELECT s.id, s.name, COALESCE(s.description, ''), COALESCE(s.image, ''),
		s.location_latitude, s.location_longitude,
		COALESCE(s.google_place_id, ''), COALESCE(s.google_maps_url, ''), COALESCE(s.plus_code, ''), s.active,
		COALESCE(a.street, ''), COALESCE(a.city, ''), COALESCE(a.state, ''), COALESCE(a.country, ''), COALESCE(a.postal_code, '')
		FROM coffee_shops s
		LEFT JOIN addresses a ON a.coffee_shop_id = s.id
		WHERE s.id = $1
		LIMIT 1`

	var (
		shop     models.ImportedShop
		lat, lng sql.NullFloat64
	)

	err := repo.db.QueryRowContext(ctx, q, id).Scan(
		&shop.ID,
		&shop.Name,
		&shop.Description,
		&shop.ImageURL,
		&lat,
		&lng,
		&shop.PlaceID,
		&shop.GoogleMapsURL,
		&shop.PlusCode,
		&shop.Active,
		&shop.Address.Street,
		&shop.Address.City,
		&shop.Address.State,
		&shop.Address.Country,
		&shop.Address.PostalCode,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShopNotFound
		}

		return nil, fmt.Errorf("failed to get coffee shop: %w", err)
	}

	shop.Address.Latitude = lat.Float64
	shop.Address.Longitude = lng.Float64

	if err := repo.loadContacts(ctx, &shop); err != nil {
		return nil, err
	}

	if err := repo.loadSchedule(ctx, &shop); err != nil {
		return nil, err
	}

	return &shop, nil
}

func (repo *ShopRepository) loadContacts(ctx context.Context, shop *models.ImportedShop) error {
	const q = `SELECT type, value FROM contacts WHERE coffee_shop_id = $1 ORDER BY id`

	rows, err := repo.db.QueryContext(ctx, q, shop.ID)
	if err != nil {
		return fmt.Errorf("failed to select contacts: %w", err)
	}

	defer rows.Close()

	for rows.Next() {
		var kind, value string
		if err := rows.Scan(&kind, &value); err != nil {
			return fmt.Errorf("failed to scan contact: %w", err)
		}

		switch models.ContactType(kind) {
		case models.ContactPhone:
			shop.Phone = value
		case models.ContactWeb:
			shop.Website = value
		}
	}

	return rows.Err()
}

func (repo *ShopRepository) loadSchedule(ctx context.Context, shop *models.ImportedShop) error {
	const q = `SELECT day_of_week,
		COALESCE(to_char(open_time, 'HH24:MI'), ''), COALESCE(to_char(close_time, 'HH24:MI'), ''), closed
		FROM schedules
		WHERE coffee_shop_id = $1 AND deleted = FALSE
		ORDER BY CASE WHEN day_of_week = 0 THEN 7 ELSE day_of_week END`

	rows, err := repo.db.QueryContext(ctx, q, shop.ID)
	if err != nil {
		return fmt.Errorf("failed to select schedules: %w", err)
	}

	defer rows.Close()

	for rows.Next() {
		var s models.DaySchedule
		if err := rows.Scan(&s.DayOfWeek, &s.OpenTime, &s.CloseTime, &s.IsClosed); err != nil {
			return fmt.Errorf("failed to scan schedule: %w", err)
		}

		shop.Schedule = append(shop.Schedule, s)
	}

	return rows.Err()
}

func location(a models.Address) (lat, lng sql.NullFloat64) {
	if a.Latitude == 0 && a.Longitude == 0 {
		return lat, lng
	}

	return sql.NullFloat64{Float64: a.Latitude, Valid: true}, sql.NullFloat64{Float64: a.Longitude, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
