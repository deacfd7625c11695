package services

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bematende/bematende-backend/internal/common/apperr"
	"github.com/bematende/bematende-backend/internal/management/models"
	"github.com/bematende/bematende-backend/pkg/clock"
	"github.com/bematende/bematende-backend/pkg/storage/schema"
	"github.com/bematende/bematende-backend/pkg/storage/sqlite"
	"github.com/bematende/bematende-backend/pkg/utils"
)

const testSecret = "test-secret"

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, schema.Migrate(ctx, db, schema.SQLite))
	return db
}

func newServices(t *testing.T) (*FacilityService, *UserService) {
	t.Helper()
	db := openDB(t)
	clk := clock.NewManual(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	facilities := NewFacilityService(db, "Itaim", zerolog.Nop())
	users := NewUserService(db, facilities, clk, testSecret, time.Hour, zerolog.Nop())
	return facilities, users
}

func TestFacilityAddRejectsDuplicatesIgnoringCase(t *testing.T) {
	facilities, _ := newServices(t)
	ctx := context.Background()

	f, err := facilities.Add(ctx, "  Pinheiros ")
	require.NoError(t, err)
	assert.Equal(t, "Pinheiros", f.Name)

	_, err = facilities.Add(ctx, "PINHEIROS")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = facilities.Add(ctx, "   ")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	list, err := facilities.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestFacilityUpdateAndDelete(t *testing.T) {
	facilities, _ := newServices(t)
	ctx := context.Background()

	a, err := facilities.Add(ctx, "Moema")
	require.NoError(t, err)
	b, err := facilities.Add(ctx, "Lapa")
	require.NoError(t, err)

	_, err = facilities.Update(ctx, "missing", "Anything")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = facilities.Update(ctx, a.ID, "lapa")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	renamed, err := facilities.Update(ctx, a.ID, "moema sul")
	require.NoError(t, err)
	assert.Equal(t, "moema sul", renamed.Name)

	// ganti kapitalisasi nama sendiri tetap boleh
	_, err = facilities.Update(ctx, b.ID, "LAPA")
	require.NoError(t, err)

	require.NoError(t, facilities.Delete(ctx, a.ID))
	assert.ErrorIs(t, facilities.Delete(ctx, a.ID), apperr.ErrNotFound)
}

func TestFacilityDefaultIDCreatesOnce(t *testing.T) {
	facilities, _ := newServices(t)
	ctx := context.Background()

	first, err := facilities.DefaultID(ctx)
	require.NoError(t, err)
	second, err := facilities.DefaultID(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	f, err := facilities.Get(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "Itaim", f.Name)
}

func TestFacilityStorageErrorsAreWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, name FROM facilities").WillReturnError(errors.New("connection refused"))

	_, err = NewFacilityService(db, "", zerolog.Nop()).List(context.Background())
	assert.ErrorIs(t, err, apperr.ErrStorageUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFacilityDefaultIDRereadsAfterConcurrentInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	byName := "FROM facilities WHERE name_key"
	mock.ExpectQuery(byName).WithArgs("itaim").WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	mock.ExpectQuery(byName).WithArgs("itaim").WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	mock.ExpectExec("INSERT INTO facilities").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'itaim' for key 'name_key'"})
	mock.ExpectQuery(byName).WithArgs("itaim").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("f-1", "Itaim"))

	id, err := NewFacilityService(db, "Itaim", zerolog.Nop()).DefaultID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "f-1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUniqueViolationOnInsertIsConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'admin' for key 'username'"})

	clk := clock.NewManual(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	users := NewUserService(db, NewFacilityService(db, "", zerolog.Nop()), clk, testSecret, time.Hour, zerolog.Nop())
	_, err = users.EnsureAdmin(context.Background(), "admin", "admin")
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterMapsRoleAndDefaults(t *testing.T) {
	facilities, users := newServices(t)
	ctx := context.Background()

	doctor, err := users.Register(ctx, models.RegisterRequest{
		Username: "drsilva", Password: "secret", ProfessionalType: "doctor",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleDoctor, doctor.Role)
	assert.Equal(t, models.ProfessionalDoctor, doctor.ProfessionalType)
	assert.Equal(t, "drsilva", doctor.Name)

	defaultID, err := facilities.DefaultID(ctx)
	require.NoError(t, err)
	assert.Equal(t, defaultID, doctor.FacilityID)

	nurse, err := users.Register(ctx, models.RegisterRequest{
		Username: "ana", Password: "secret", Name: "Ana Souza", ProfessionalType: "NURSE",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleNurse, nurse.Role)
	assert.Equal(t, "Ana Souza", nurse.Name)

	tech, err := users.Register(ctx, models.RegisterRequest{
		Username: "tec", Password: "secret", ProfessionalType: "NURSING_TECHNICIAN",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, tech.Role)
}

func TestRegisterValidation(t *testing.T) {
	facilities, users := newServices(t)
	ctx := context.Background()

	_, err := users.Register(ctx, models.RegisterRequest{Username: "x", ProfessionalType: "DOCTOR"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = users.Register(ctx, models.RegisterRequest{Username: "x", Password: "p", ProfessionalType: "PILOT"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = users.Register(ctx, models.RegisterRequest{Username: "x", Password: "p", ProfessionalType: "NURSE", FacilityID: "nope"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = users.Register(ctx, models.RegisterRequest{Username: "x", Password: "p", ProfessionalType: "NURSE"})
	require.NoError(t, err)
	_, err = users.Register(ctx, models.RegisterRequest{Username: "x", Password: "q", ProfessionalType: "DOCTOR"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	list, err := facilities.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestLoginIssuesToken(t *testing.T) {
	_, users := newServices(t)
	ctx := context.Background()

	_, err := users.Register(ctx, models.RegisterRequest{Username: "ana", Password: "secret", ProfessionalType: "NURSE"})
	require.NoError(t, err)

	_, err = users.Login(ctx, "ana", "wrong")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = users.Login(ctx, "ghost", "secret")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	session, err := users.Login(ctx, "ana", "secret")
	require.NoError(t, err)
	assert.Equal(t, "ana", session.User.Username)

	claims, err := utils.ValidateJWTToken(testSecret, session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.UserID)
	assert.Equal(t, models.RoleNurse, claims.Role)
	assert.Equal(t, session.User.FacilityID, claims.FacilityID)
}

func TestUpdateUserFacility(t *testing.T) {
	facilities, users := newServices(t)
	ctx := context.Background()

	_, err := users.Register(ctx, models.RegisterRequest{Username: "ana", Password: "secret", ProfessionalType: "NURSE"})
	require.NoError(t, err)
	created, err := users.EnsureAdmin(ctx, "root", "toor")
	require.NoError(t, err)
	require.True(t, created)

	lapa, err := facilities.Add(ctx, "Lapa")
	require.NoError(t, err)

	_, err = users.UpdateUserFacility(ctx, "ana", "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = users.UpdateUserFacility(ctx, "ghost", lapa.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = users.UpdateUserFacility(ctx, "root", lapa.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	moved, err := users.UpdateUserFacility(ctx, "ana", lapa.ID)
	require.NoError(t, err)
	assert.Equal(t, lapa.ID, moved.FacilityID)

	// user lepas dari unit yang dihapus
	require.NoError(t, facilities.Delete(ctx, lapa.ID))
	ana, err := users.GetByUsername(ctx, "ana")
	require.NoError(t, err)
	assert.Empty(t, ana.FacilityID)
}

func TestEnsureAdminSeedsOnlyOnce(t *testing.T) {
	_, users := newServices(t)
	ctx := context.Background()

	created, err := users.EnsureAdmin(ctx, "", "")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = users.EnsureAdmin(ctx, "other", "pw")
	require.NoError(t, err)
	assert.False(t, created)

	session, err := users.Login(ctx, "admin", "admin")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, session.User.Role)

	list, err := users.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestHashUserPasswords(t *testing.T) {
	out, changed, err := HashUserPasswords([]byte(`{"users":[
		{"username":"ana","password":"secret"},
		{"username":"bia","passwordHash":"$2a$10$existing"}
	]}`))
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	assert.NotContains(t, string(out), `"password":`)
	assert.Contains(t, string(out), `"$2a$10$existing"`)

	out, changed, err = HashUserPasswords([]byte(`{"users":[{"username":"bia","passwordHash":"x"}]}`))
	require.NoError(t, err)
	assert.Zero(t, changed)
	assert.Nil(t, out)

	_, _, err = HashUserPasswords([]byte(`{"users":{}}`))
	assert.Error(t, err)
}

func TestHashUsersFileRewritesOnlyWhenChanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"users":[{"username":"ana","password":"secret"}]}`), 0o600))

	changed, err := HashUsersFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	doc, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(doc), "passwordHash")

	changed, err = HashUsersFile(path)
	require.NoError(t, err)
	assert.Zero(t, changed)
}
