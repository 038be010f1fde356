package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/minds-hub/backend/internal/middleware"
	"github.com/minds-hub/backend/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeLister struct {
	gotUser  uuid.UUID
	gotLimit int
}

func (f *fakeLister) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	f.gotUser, f.gotLimit = userID, limit
	return []models.Notification{}, nil
}

func newTestRouter(t *testing.T, f *fixture, lister Lister, caller *middleware.Identity) *gin.Engine {
	h := NewHandler(lister, f.inline(t), zaptest.NewLogger(t))
	r := gin.New()
	r.Use(func(c *gin.Context) {
		middleware.SetIdentity(c, caller)
		c.Next()
	})
	r.GET("/me/notifications", h.List)
	r.GET("/users/:user_id/notifications", h.List)
	r.POST("/users/:user_id/notifications", h.Send)
	r.POST("/notifications/bulk", h.SendBulk)
	r.POST("/activities/:id/reminders", h.Remind)
	return r
}

func serve(r http.Handler, method, path string, payload any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if payload != nil {
		_ = json.NewEncoder(&buf).Encode(payload)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_List(t *testing.T) {
	me := &middleware.Identity{UserID: uuid.New(), Role: models.RoleParticipant}
	lister := &fakeLister{}
	r := newTestRouter(t, newFixture(), lister, me)

	w := serve(r, http.MethodGet, "/me/notifications?limit=10", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, me.UserID, lister.gotUser)
	assert.Equal(t, 10, lister.gotLimit)

	w = serve(r, http.MethodGet, "/users/"+uuid.NewString()+"/notifications", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(r, http.MethodGet, "/me/notifications?limit=1000", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_SendAndRemind(t *testing.T) {
	staff := &middleware.Identity{UserID: uuid.New(), Role: models.RoleStaff}
	f := newFixture()
	u, a := participant(), taiChi()
	f.users[u.ID], f.acts[a.ID] = u, a
	f.store.attendees[a.ID] = []uuid.UUID{u.ID}
	r := newTestRouter(t, f, &fakeLister{}, staff)

	w := serve(r, http.MethodPost, "/users/"+u.ID.String()+"/notifications", gin.H{"message": "Bring water"})
	require.Equal(t, http.StatusAccepted, w.Code)
	var body struct {
		Data Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Data.Queued)
	assert.Equal(t, models.ChannelSMS, f.store.all()[0].Channel)

	w = serve(r, http.MethodPost, "/notifications/bulk", gin.H{"user_ids": []uuid.UUID{u.ID}, "message": "hi", "channel": "email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, http.MethodPost, "/notifications/bulk", gin.H{"user_ids": []uuid.UUID{}, "message": "hi"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, http.MethodPost, "/activities/"+a.ID.String()+"/reminders", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = serve(r, http.MethodPost, "/activities/"+uuid.NewString()+"/reminders", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
