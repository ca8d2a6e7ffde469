package config

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/coffeed/coffeed-admin/resolver"
)

const selectValue = "SELECT value FROM system_config"

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	return New(db), mock
}

func TestGetStringCaches(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery(selectValue).
		WithArgs("description.model").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("gemini-2.5-flash"))

	for range 3 {
		v, err := svc.GetString(context.Background(), "description.model", "x")
		require.NoError(t, err)
		require.Equal(t, "gemini-2.5-flash", v)
	}

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheExpires(t *testing.T) {
	svc, mock := newMockService(t)

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	mock.ExpectQuery(selectValue).WithArgs("resolver.photo_max_width").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("800"))
	mock.ExpectQuery(selectValue).WithArgs("resolver.photo_max_width").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("1600"))

	v, err := svc.GetInt(context.Background(), KeyPhotoMaxWidth, 1200)
	require.NoError(t, err)
	require.Equal(t, 800, v)

	now = now.Add(2 * time.Minute)

	v, err = svc.GetInt(context.Background(), KeyPhotoMaxWidth, 1200)
	require.NoError(t, err)
	require.Equal(t, 1600, v)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMissingKeyUsesDefault(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery(selectValue).WillReturnError(sql.ErrNoRows)

	v, err := svc.GetBool(context.Background(), "feature.enabled", true)
	require.NoError(t, err)
	require.True(t, v)
}

func TestQueryError(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery(selectValue).WillReturnError(errors.New("connection refused"))

	_, err := svc.GetString(context.Background(), "description.model", "x")
	require.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("RESOLVER_PHONE_COUNTRY_CODE", "54")

	svc, mock := newMockService(t)

	v, err := svc.GetString(context.Background(), KeyPhoneCountryCode, "56")
	require.NoError(t, err)
	require.Equal(t, "54", v)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUnparsableIntUsesDefault(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery(selectValue).WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("wide"))

	v, err := svc.GetInt(context.Background(), KeyPhotoMaxWidth, 1200)
	require.NoError(t, err)
	require.Equal(t, 1200, v)
}

func TestUpsertInvalidatesCache(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery(selectValue).WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("9"))
	mock.ExpectExec("INSERT INTO system_config").
		WithArgs(KeyPhoneMobilePrefix, "15", "mobile prefix").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(selectValue).WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("15"))

	ctx := context.Background()

	v, err := svc.GetString(ctx, KeyPhoneMobilePrefix, "")
	require.NoError(t, err)
	require.Equal(t, "9", v)

	require.NoError(t, svc.Upsert(ctx, KeyPhoneMobilePrefix, "15", "mobile prefix"))

	v, err = svc.GetString(ctx, KeyPhoneMobilePrefix, "")
	require.NoError(t, err)
	require.Equal(t, "15", v)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestImportSettingsWithoutDatabase(t *testing.T) {
	svc := New(nil)

	settings, err := svc.ImportSettings(context.Background())
	require.NoError(t, err)

	require.Equal(t, resolver.DefaultPhoneFormat, settings.Phone)
	require.Equal(t, 1200, settings.PhotoMaxWidth)
	require.Equal(t, "gemini-2.0-flash", settings.DescriptionModel)
	require.True(t, settings.DescriptionEnabled)

	require.Error(t, svc.Upsert(context.Background(), "k", "v", ""))
}

func TestImportSettingsFromDatabase(t *testing.T) {
	svc, mock := newMockService(t)

	rows := map[string]string{
		KeyPhoneCountryCode:    "54",
		KeyPhoneMobilePrefix:   "9",
		KeyPhoneMinLocalDigits: "10",
		KeyPhotoMaxWidth:       "800",
	}

	for _, key := range []string{KeyPhoneCountryCode, KeyPhoneMobilePrefix, KeyPhoneMinLocalDigits, KeyPhotoMaxWidth} {
		mock.ExpectQuery(selectValue).WithArgs(key).
			WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(rows[key]))
	}

	mock.ExpectQuery(selectValue).WithArgs(KeyDescriptionModel).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(selectValue).WithArgs(KeyDescriptionEnabled).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("false"))

	settings, err := svc.ImportSettings(context.Background())
	require.NoError(t, err)

	require.Equal(t, resolver.PhoneFormat{CountryCode: "54", MobilePrefix: "9", MinLocalDigits: 10}, settings.Phone)
	require.Equal(t, 800, settings.PhotoMaxWidth)
	require.Equal(t, "gemini-2.0-flash", settings.DescriptionModel)
	require.False(t, settings.DescriptionEnabled)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestImportSettingsFallBackOnError(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery(selectValue).WithArgs(KeyPhoneCountryCode).WillReturnError(errors.New("connection reset"))

	for _, key := range []string{KeyPhoneMobilePrefix, KeyPhoneMinLocalDigits, KeyPhotoMaxWidth, KeyDescriptionModel, KeyDescriptionEnabled} {
		mock.ExpectQuery(selectValue).WithArgs(key).WillReturnError(sql.ErrNoRows)
	}

	settings, err := svc.ImportSettings(context.Background())
	require.Error(t, err)
	require.Equal(t, DefaultImportSettings(), settings)
}

func TestSet(t *testing.T) {
	svc, mock := newMockService(t)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO system_config").
		WithArgs(KeyPhotoMaxWidth, "800", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO system_config").
		WithArgs(KeyDescriptionEnabled, "false", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, svc.Set(ctx, KeyPhotoMaxWidth, " 800 "))
	require.NoError(t, svc.Set(ctx, KeyDescriptionEnabled, "false"))

	require.ErrorIs(t, svc.Set(ctx, "billing.plan", "pro"), ErrUnknownKey)
	require.ErrorIs(t, svc.Set(ctx, KeyPhotoMaxWidth, "wide"), ErrInvalidValue)
	require.ErrorIs(t, svc.Set(ctx, KeyPhotoMaxWidth, "-1"), ErrInvalidValue)
	require.ErrorIs(t, svc.Set(ctx, KeyDescriptionEnabled, "maybe"), ErrInvalidValue)
	require.ErrorIs(t, svc.Set(ctx, KeyPhoneCountryCode, "  "), ErrInvalidValue)

	require.NoError(t, mock.ExpectationsWereMet())
}
