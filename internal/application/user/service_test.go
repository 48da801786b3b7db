package user

import (
	"context"
	"testing"

	"helpmate-backend/internal/domain"
	"helpmate-backend/internal/infrastructure/database"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func TestRegister_Volunteer(t *testing.T) {
	db := setupDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Fullname: "  ana   maria pop ", Email: "Ana@Example.com", Password: "Passw0rd!", Role: "volunteer"})
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria Pop", u.Fullname)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.NotEqual(t, "Passw0rd!", u.PasswordHash)

	v, err := database.NewStore(db).Volunteer(ctx, u.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria Pop", v.Fullname)
	assert.False(t, v.ProfileComplete)

	_, err = svc.Register(ctx, RegisterInput{Fullname: "Other", Email: "ana@example.com", Password: "Passw0rd!", Role: "organizer"})
	assert.ErrorIs(t, err, ErrEmailRegistered)
}

func TestRegister_OrganizerHasNoVolunteerProfile(t *testing.T) {
	db := setupDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Fullname: "Org One", Email: "org@example.com", Password: "Passw0rd!", Role: "Organizer"})
	require.NoError(t, err)
	assert.Equal(t, "organizer", u.Role)

	_, err = database.NewStore(db).Volunteer(ctx, u.UserID)
	assert.ErrorIs(t, err, domain.ErrVolunteerNotFound)

	got, err := svc.ViewUser(ctx, u.UserID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)

	_, err = svc.ViewUser(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestRegister_Validation(t *testing.T) {
	svc := &Service{DB: setupDB(t)}
	ctx := context.Background()
	cases := []RegisterInput{
		{Fullname: "Ana", Email: "bad", Password: "Passw0rd!", Role: "volunteer"},
		{Fullname: "Ana", Email: "ana@example.com", Password: "weak", Role: "volunteer"},
		{Fullname: "Ana", Email: "ana@example.com", Password: "Passw0rd!", Role: "admin"},
		{Fullname: "", Email: "ana@example.com", Password: "Passw0rd!", Role: "volunteer"},
	}
	for _, in := range cases {
		_, err := svc.Register(ctx, in)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "%+v", in)
	}
}

type welcomeRecorder struct{ sent []string }

func (w *welcomeRecorder) SendWelcome(_ context.Context, u *domain.User) error {
	w.sent = append(w.sent, u.Email)
	return assert.AnError
}

func TestRegister_WelcomeFailureDoesNotFailSignup(t *testing.T) {
	w := &welcomeRecorder{}
	svc := &Service{DB: setupDB(t), Welcomer: w}

	u, err := svc.Register(context.Background(), RegisterInput{Fullname: "Ion Popescu", Email: "ion@example.com", Password: "Passw0rd!", Role: "organizer"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ion@example.com"}, w.sent)
	assert.NotEqual(t, uuid.Nil, u.UserID)
}
