package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/coffeed/coffeed-admin/models"
)

func testShop() *models.ImportedShop {
	schedule := make([]models.DaySchedule, 0, 7)
	for _, day := range []int{1, 2, 3, 4, 5, 6, 0} {
		schedule = append(schedule, models.DaySchedule{DayOfWeek: day, OpenTime: "08:00", CloseTime: "19:00"})
	}

	schedule[6] = models.DaySchedule{DayOfWeek: 0, OpenTime: "09:00", CloseTime: "18:00", IsClosed: true}

	return &models.ImportedShop{
		Name:          "Café Tres",
		Description:   "Una cafetería.",
		Phone:         "+56912345678",
		Website:       "https://cafetres.cl",
		GoogleMapsURL: "https://maps.google.com/?cid=1",
		PlaceID:       "ChIJcafe",
		Address: models.Address{
			Street:    "Av. Providencia 123",
			City:      "Providencia",
			State:     "Región Metropolitana",
			Country:   "Chile",
			Latitude:  -33.43,
			Longitude: -70.61,
		},
		Schedule: schedule,
		Active:   true,
	}
}

func newMock(t *testing.T) (*ShopRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	return NewShopRepository(db), mock
}

func TestCreateShop(t *testing.T) {
	repo, mock := newMock(t)
	shop := testShop()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO coffee_shops").
		WithArgs(sqlmock.AnyArg(), "Café Tres", "Una cafetería.", nil, -33.43, -70.61, "ChIJcafe",
			"https://maps.google.com/?cid=1", nil, true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO addresses").
		WithArgs(sqlmock.AnyArg(), "Av. Providencia 123", "Providencia", "Región Metropolitana", "Chile", nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO contacts").
		WithArgs(sqlmock.AnyArg(), "phone", "+56912345678").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO contacts").
		WithArgs(sqlmock.AnyArg(), "web", "https://cafetres.cl").
		WillReturnResult(sqlmock.NewResult(2, 1))

	for _, day := range []int{1, 2, 3, 4, 5, 6} {
		mock.ExpectExec("INSERT INTO schedules").
			WithArgs(sqlmock.AnyArg(), day, "08:00", "19:00", false).
			WillReturnResult(sqlmock.NewResult(int64(day), 1))
	}

	mock.ExpectExec("INSERT INTO schedules").
		WithArgs(sqlmock.AnyArg(), 0, nil, nil, true).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectCommit()

	id, err := repo.CreateShop(context.Background(), shop)
	require.NoError(t, err)
	require.Len(t, id, 36)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateShopRollsBackOnChildFailure(t *testing.T) {
	repo, mock := newMock(t)
	shop := testShop()
	shop.Phone = ""
	shop.Website = ""

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO coffee_shops").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO addresses").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := repo.CreateShop(context.Background(), shop)
	require.ErrorContains(t, err, "failed to create address")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateShopDuplicatePlace(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO coffee_shops").WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	_, err := repo.CreateShop(context.Background(), testShop())
	require.ErrorIs(t, err, ErrDuplicatePlace)
	require.NoError(t, mock.ExpectationsWereMet())
}

const storedShopID = "7d2b5c8e-1f3a-4c6d-9e0b-2a4f6c8d0e1f"

func TestGetShop(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery("FROM coffee_shops s").
		WithArgs(storedShopID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "description", "image", "location_latitude", "location_longitude",
			"google_place_id", "google_maps_url", "plus_code", "active",
			"street", "city", "state", "country", "postal_code",
		}).AddRow(
			storedShopID, "Café Tres", "Una cafetería.", "", -33.43, -70.61,
			"ChIJcafe", "", "47RFH9R9+X2", true,
			"Av. Providencia 123", "Providencia", "", "Chile", "",
		))
	mock.ExpectQuery("FROM contacts").
		WithArgs(storedShopID).
		WillReturnRows(sqlmock.NewRows([]string{"type", "value"}).
			AddRow("phone", "+56912345678").
			AddRow("web", "https://cafetres.cl"))
	mock.ExpectQuery("FROM schedules").
		WithArgs(storedShopID).
		WillReturnRows(sqlmock.NewRows([]string{"day_of_week", "open_time", "close_time", "closed"}).
			AddRow(1, "08:00", "19:00", false).
			AddRow(0, "", "", true))

	shop, err := repo.GetShop(context.Background(), storedShopID)
	require.NoError(t, err)

	require.Equal(t, "Café Tres", shop.Name)
	require.Equal(t, -33.43, shop.Address.Latitude)
	require.Equal(t, "Providencia", shop.Address.City)
	require.Equal(t, "+56912345678", shop.Phone)
	require.Equal(t, "https://cafetres.cl", shop.Website)
	require.Equal(t, []models.DaySchedule{
		{DayOfWeek: 1, OpenTime: "08:00", CloseTime: "19:00"},
		{DayOfWeek: 0, IsClosed: true},
	}, shop.Schedule)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetShopNotFound(t *testing.T) {
	repo, mock := newMock(t)

	missing := "00000000-0000-4000-8000-000000000000"
	mock.ExpectQuery("FROM coffee_shops s").WithArgs(missing).WillReturnError(sql.ErrNoRows)

	_, err := repo.GetShop(context.Background(), missing)
	require.ErrorIs(t, err, ErrShopNotFound)

	_, err = repo.GetShop(context.Background(), "not-a-uuid")
	require.ErrorIs(t, err, ErrShopNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
