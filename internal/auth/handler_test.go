package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/minds-hub/backend/internal/middleware"
	"github.com/minds-hub/backend/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeStore struct {
	mu      sync.Mutex
	users   map[uuid.UUID]*models.User
	updates int
}

func newFakeStore(users ...*models.User) *fakeStore {
	s := &fakeStore{users: map[uuid.UUID]*models.User{}}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (s *fakeStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) List(_ context.Context, role models.Role) ([]models.UserPublic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := []models.UserPublic{}
	for _, u := range s.users {
		if role == "" || u.Role == role {
			list = append(list, u.ToPublic())
		}
	}
	return list, nil
}

func (s *fakeStore) Create(_ context.Context, p CreateUserParams) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == p.Email {
			return nil, ErrEmailTaken
		}
	}
	u := &models.User{
		ID: uuid.New(), Email: p.Email, Password: p.PasswordHash, FullName: p.FullName, Role: p.Role,
		MembershipType: p.MembershipType, Phone: p.Phone, CaregiverPhone: p.CaregiverPhone,
		PreferredLanguage: p.PreferredLanguage, WheelchairRequired: p.WheelchairRequired,
	}
	s.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (s *fakeStore) UpdateProfile(_ context.Context, id uuid.UUID, p ProfileUpdate) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	s.updates++
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.MembershipType != nil {
		u.MembershipType = *p.MembershipType
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.CaregiverPhone != nil {
		u.CaregiverPhone = *p.CaregiverPhone
	}
	if p.PreferredLanguage != nil {
		u.PreferredLanguage = *p.PreferredLanguage
	}
	if p.WheelchairRequired != nil {
		u.WheelchairRequired = *p.WheelchairRequired
	}
	cp := *u
	return &cp, nil
}

func (s *fakeStore) tier(id uuid.UUID) models.MembershipType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id].MembershipType
}

func newTestRouter(store Store, caller *middleware.Identity) *gin.Engine {
	h := NewHandler(store, NewJWTService("secret", 1), "letmein", zap.NewNop())
	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	authed := r.Group("/")
	authed.Use(func(c *gin.Context) {
		if caller != nil {
			middleware.SetIdentity(c, caller)
		}
		c.Next()
	})
	authed.PATCH("/me", h.UpdateProfile)
	authed.PATCH("/users/:user_id/membership", middleware.RequireRole(models.RoleStaff), h.UpdateMembership)
	return r
}

func send(t *testing.T, r http.Handler, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(payload))
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func onceWeekly() *models.User {
	return &models.User{
		ID: uuid.New(), Email: "ah.ma@example.com", FullName: "Ah Ma", Role: models.RoleParticipant,
		MembershipType: models.MembershipOnceWeekly, PreferredLanguage: models.LanguageEnglish,
	}
}

func TestHandler_ParticipantCannotChangeOwnTier(t *testing.T) {
	u := onceWeekly()
	store := newFakeStore(u)
	r := newTestRouter(store, &middleware.Identity{UserID: u.ID, Role: models.RoleParticipant})

	for _, tier := range []string{"", "ad_hoc", "3_plus"} {
		w := send(t, r, http.MethodPatch, "/me", gin.H{"membership_type": tier, "phone": "+6591234567"})
		assert.Equal(t, http.StatusForbidden, w.Code, tier)
	}
	assert.Equal(t, models.MembershipOnceWeekly, store.tier(u.ID))
	assert.Zero(t, store.updates)
}

func TestHandler_UpdateProfile(t *testing.T) {
	u := onceWeekly()
	store := newFakeStore(u)
	r := newTestRouter(store, &middleware.Identity{UserID: u.ID, Role: models.RoleParticipant})

	w := send(t, r, http.MethodPatch, "/me", gin.H{"phone": "+6591234567", "preferred_language": "zh"})
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data models.User `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "+6591234567", body.Data.Phone)
	assert.Equal(t, "zh", body.Data.PreferredLanguage)
	assert.Equal(t, models.MembershipOnceWeekly, body.Data.MembershipType)

	w = send(t, r, http.MethodPatch, "/me", gin.H{"preferred_language": "fr"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_UpdateMembership(t *testing.T) {
	participant := onceWeekly()
	volunteer := &models.User{ID: uuid.New(), Email: "v@example.com", Role: models.RoleVolunteer}
	staff := &middleware.Identity{UserID: uuid.New(), Role: models.RoleStaff}

	tests := []struct {
		name     string
		caller   *middleware.Identity
		userID   string
		payload  gin.H
		wantCode int
		wantTier models.MembershipType
	}{
		{name: "staff downgrades", caller: staff, userID: participant.ID.String(), payload: gin.H{"membership_type": "twice_weekly"}, wantCode: http.StatusOK, wantTier: models.MembershipTwiceWeekly},
		{name: "staff clears", caller: staff, userID: participant.ID.String(), payload: gin.H{"membership_type": ""}, wantCode: http.StatusOK, wantTier: ""},
		{name: "participant blocked", caller: &middleware.Identity{UserID: participant.ID, Role: models.RoleParticipant}, userID: participant.ID.String(), payload: gin.H{"membership_type": "ad_hoc"}, wantCode: http.StatusForbidden, wantTier: models.MembershipOnceWeekly},
		{name: "unknown tier", caller: staff, userID: participant.ID.String(), payload: gin.H{"membership_type": "daily"}, wantCode: http.StatusBadRequest, wantTier: models.MembershipOnceWeekly},
		{name: "missing field", caller: staff, userID: participant.ID.String(), payload: gin.H{}, wantCode: http.StatusBadRequest, wantTier: models.MembershipOnceWeekly},
		{name: "volunteer has no tier", caller: staff, userID: volunteer.ID.String(), payload: gin.H{"membership_type": "ad_hoc"}, wantCode: http.StatusBadRequest},
		{name: "unknown user", caller: staff, userID: uuid.NewString(), payload: gin.H{"membership_type": "ad_hoc"}, wantCode: http.StatusNotFound},
		{name: "bad id", caller: staff, userID: "nope", payload: gin.H{"membership_type": "ad_hoc"}, wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, v := *participant, *volunteer
			store := newFakeStore(&p, &v)
			w := send(t, newTestRouter(store, tt.caller), http.MethodPatch, "/users/"+tt.userID+"/membership", tt.payload)
			assert.Equal(t, tt.wantCode, w.Code)
			if tt.userID == participant.ID.String() {
				assert.Equal(t, tt.wantTier, store.tier(participant.ID))
			}
		})
	}
}

func TestHandler_RegisterThenLogin(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store, nil)

	w := send(t, r, http.MethodPost, "/auth/register", gin.H{
		"email": "Ah.Ma@Example.com", "password": "secret1", "full_name": "Ah Ma", "membership_type": "once_weekly",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = send(t, r, http.MethodPost, "/auth/register", gin.H{"email": "ah.ma@example.com", "password": "secret1", "full_name": "Again"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = send(t, r, http.MethodPost, "/auth/register", gin.H{"email": "boss@example.com", "password": "secret1", "full_name": "Boss", "role": "staff", "staff_code": "guess"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send(t, r, http.MethodPost, "/auth/login", gin.H{"email": "ah.ma@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = send(t, r, http.MethodPost, "/auth/login", gin.H{"email": "ah.ma@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data TokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Data.Token)
	assert.Equal(t, models.MembershipOnceWeekly, body.Data.User.MembershipType)
}
