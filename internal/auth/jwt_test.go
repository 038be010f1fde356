package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minds-hub/backend/internal/models"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService("secret", 1)
	id := uuid.New()

	token, err := svc.Generate(id, "ah.ma@example.com", models.RoleParticipant)
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, models.RoleParticipant, claims.Role)

	ident, err := svc.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, id, ident.UserID)
	assert.Equal(t, "ah.ma@example.com", ident.Email)
}

func TestJWTService_Rejects(t *testing.T) {
	svc := NewJWTService("secret", 1)
	token, err := svc.Generate(uuid.New(), "a@example.com", models.RoleStaff)
	require.NoError(t, err)

	t.Run("other secret", func(t *testing.T) {
		_, err := NewJWTService("other", 1).Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		later := NewJWTService("secret", 1)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := later.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unknown role", func(t *testing.T) {
		claims := Claims{UserID: uuid.New(), Role: "admin", RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = svc.Validate(forged)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		claims := Claims{UserID: uuid.New(), Role: models.RoleStaff}
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.Validate(unsigned)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestHandler_ResolveRole(t *testing.T) {
	h := &Handler{staffCode: "letmein"}
	tests := []struct {
		name    string
		req     RegisterRequest
		want    models.Role
		wantMsg bool
	}{
		{name: "default participant", req: RegisterRequest{}, want: models.RoleParticipant},
		{name: "volunteer", req: RegisterRequest{Role: "volunteer"}, want: models.RoleVolunteer},
		{name: "unknown", req: RegisterRequest{Role: "admin"}, wantMsg: true},
		{name: "staff without code", req: RegisterRequest{Role: "staff"}, wantMsg: true},
		{name: "staff wrong code", req: RegisterRequest{Role: "staff", StaffCode: "nope"}, wantMsg: true},
		{name: "staff with code", req: RegisterRequest{Role: "staff", StaffCode: "letmein"}, want: models.RoleStaff},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, msg := h.resolveRole(&tt.req)
			if tt.wantMsg {
				assert.NotEmpty(t, msg)
				return
			}
			assert.Empty(t, msg)
			assert.Equal(t, tt.want, role)
		})
	}

	closed := &Handler{}
	_, msg := closed.resolveRole(&RegisterRequest{Role: "staff"})
	assert.NotEmpty(t, msg)
}
