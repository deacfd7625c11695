package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bematende/bematende-backend/internal/common/apperr"
	"github.com/bematende/bematende-backend/internal/management/models"
	"github.com/bematende/bematende-backend/pkg/clock"
	"github.com/bematende/bematende-backend/pkg/storage/schema"
	"github.com/bematende/bematende-backend/pkg/utils"
)

const userColumns = `id, username, name, role, professional_type, facility_id, created_at`

type UserService struct {
	DB         *sql.DB
	facilities *FacilityService
	clock      clock.Clock
	jwtSecret  string
	tokenTTL   time.Duration
	log        zerolog.Logger
}

func NewUserService(db *sql.DB, facilities *FacilityService, clk clock.Clock, jwtSecret string, tokenTTL time.Duration, log zerolog.Logger) *UserService {
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	return &UserService{
		DB:         db,
		facilities: facilities,
		clock:      clk,
		jwtSecret:  jwtSecret,
		tokenTTL:   tokenTTL,
		log:        log.With().Str("component", "user_service").Logger(),
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner, extra ...interface{}) (models.User, error) {
	var u models.User
	var professional string
	var facility sql.NullString
	dest := append([]interface{}{&u.ID, &u.Username, &u.Name, &u.Role, &professional, &facility, &u.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return models.User{}, err
	}
	u.ProfessionalType = models.ProfessionalType(professional)
	u.FacilityID = facility.String
	return u, nil
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (models.User, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, strings.TrimSpace(username))
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.NotFound("user %s not found", username)
	}
	if err != nil {
		return models.User{}, apperr.StorageUnavailable("get user", err)
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, apperr.StorageUnavailable("list users", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, apperr.StorageUnavailable("scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.StorageUnavailable("list users", err)
	}
	return users, nil
}

// Register membuat akun petugas. Role diturunkan dari jenis profesi, nama
// default ke username dan unit default ke unit utama.
func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (models.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" || strings.TrimSpace(req.ProfessionalType) == "" {
		return models.User{}, apperr.Validation("username, password and professionalType are required")
	}
	professional, ok := models.ParseProfessionalType(req.ProfessionalType)
	if !ok {
		return models.User{}, apperr.Validation("unknown professionalType %q", req.ProfessionalType)
	}
	if _, err := s.GetByUsername(ctx, username); err == nil {
		return models.User{}, apperr.Conflict("username %s already exists", username)
	} else if apperr.KindOf(err) != apperr.KindNotFound {
		return models.User{}, err
	}

	facilityID := strings.TrimSpace(req.FacilityID)
	if facilityID != "" {
		if _, err := s.facilities.Get(ctx, facilityID); err != nil {
			return models.User{}, err
		}
	} else {
		id, err := s.facilities.DefaultID(ctx)
		if err != nil {
			return models.User{}, err
		}
		facilityID = id
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = username
	}
	return s.insert(ctx, models.User{
		ID:               uuid.NewString(),
		Username:         username,
		Name:             name,
		Role:             models.RoleFor(professional),
		ProfessionalType: professional,
		FacilityID:       facilityID,
		CreatedAt:        clock.UnixMilli(s.clock),
	}, req.Password)
}

func (s *UserService) insert(ctx context.Context, u models.User, password string) (models.User, error) {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	var facility interface{}
	if u.FacilityID != "" {
		facility = u.FacilityID
	}
	if _, err := s.DB.ExecContext(ctx,
		`INSERT INTO users (id, username, name, password_hash, role, professional_type, facility_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Name, hash, u.Role, string(u.ProfessionalType), facility, u.CreatedAt,
	); err != nil {
		if schema.IsUniqueViolation(err) {
			return models.User{}, apperr.Conflict("username %s already exists", u.Username)
		}
		return models.User{}, apperr.StorageUnavailable("insert user", err)
	}
	s.log.Info().Str("username", u.Username).Str("role", u.Role).Msg("user registered")
	return u, nil
}

// Login memeriksa password dan menerbitkan token sesi. Username yang tidak
// ada dan password yang salah menghasilkan error yang sama.
func (s *UserService) Login(ctx context.Context, username, password string) (models.Session, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+`, password_hash FROM users WHERE username = ?`, strings.TrimSpace(username))
	var hash string
	u, err := scanUser(row, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, apperr.Unauthorized("invalid credentials")
	}
	if err != nil {
		return models.Session{}, apperr.StorageUnavailable("get user", err)
	}
	if !utils.CheckPassword(hash, password) {
		return models.Session{}, apperr.Unauthorized("invalid credentials")
	}

	exp := s.clock.Now().Add(s.tokenTTL)
	token, err := utils.GenerateJWTToken(s.jwtSecret, utils.Claims{
		UserID:     u.ID,
		Username:   u.Username,
		Role:       u.Role,
		FacilityID: u.FacilityID,
	}, exp)
	if err != nil {
		return models.Session{}, err
	}
	s.log.Info().Str("username", u.Username).Msg("user logged in")
	return models.Session{Token: token, ExpiresAt: exp.UnixMilli(), User: u}, nil
}

// UpdateUserFacility memindahkan petugas ke unit lain. Akun admin tidak
// terikat unit dan tidak bisa dipindah.
func (s *UserService) UpdateUserFacility(ctx context.Context, username, facilityID string) (models.User, error) {
	if strings.TrimSpace(facilityID) == "" {
		return models.User{}, apperr.Validation("facilityId is required")
	}
	if _, err := s.facilities.Get(ctx, facilityID); err != nil {
		return models.User{}, err
	}
	u, err := s.GetByUsername(ctx, username)
	if err != nil {
		return models.User{}, err
	}
	if u.Role == models.RoleAdmin {
		return models.User{}, apperr.Forbidden("admin users cannot be assigned to a facility")
	}
	if _, err := s.DB.ExecContext(ctx, `UPDATE users SET facility_id = ? WHERE id = ?`, facilityID, u.ID); err != nil {
		return models.User{}, apperr.StorageUnavailable("update user facility", err)
	}
	u.FacilityID = facilityID
	s.log.Info().Str("username", u.Username).Str("facility_id", facilityID).Msg("user facility updated")
	return u, nil
}

// EnsureAdmin membuat akun admin bila belum ada satu pun. Mengembalikan true
// jika akun baru dibuat.
func (s *UserService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	var count int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = ?`, models.RoleAdmin).Scan(&count); err != nil {
		return false, apperr.StorageUnavailable("count admins", err)
	}
	if count > 0 {
		return false, nil
	}
	if strings.TrimSpace(username) == "" {
		username = "admin"
	}
	if password == "" {
		password = "admin"
		s.log.Warn().Str("username", username).Msg("ADMIN_PASSWORD not set, seeding admin with default password")
	}
	_, err := s.insert(ctx, models.User{
		ID:               uuid.NewString(),
		Username:         username,
		Name:             "Administrator",
		Role:             models.RoleAdmin,
		ProfessionalType: models.ProfessionalAttendant,
		CreatedAt:        clock.UnixMilli(s.clock),
	}, password)
	if err != nil {
		return false, err
	}
	return true, nil
}
