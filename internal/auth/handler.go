package auth

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/minds-hub/backend/internal/middleware"
	"github.com/minds-hub/backend/internal/models"
	"github.com/minds-hub/backend/pkg/response"
	"github.com/minds-hub/backend/pkg/utils"
)

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Email              string `json:"email" binding:"required,email"`
	Password           string `json:"password" binding:"required,min=6"`
	FullName           string `json:"full_name" binding:"required"`
	Role               string `json:"role"` // defaults to participant
	MembershipType     string `json:"membership_type"`
	Phone              string `json:"phone"`
	CaregiverPhone     string `json:"caregiver_phone"`
	PreferredLanguage  string `json:"preferred_language"`
	WheelchairRequired bool   `json:"wheelchair_required"`
	StaffCode          string `json:"staff_code"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ProfileRequest is the body for PATCH /me. MembershipType is accepted only to refuse it: the
// tier sets the weekly quota and is staff-managed.
type ProfileRequest struct {
	FullName           *string `json:"full_name"`
	MembershipType     *string `json:"membership_type"`
	Phone              *string `json:"phone"`
	CaregiverPhone     *string `json:"caregiver_phone"`
	PreferredLanguage  *string `json:"preferred_language"`
	WheelchairRequired *bool   `json:"wheelchair_required"`
}

// MembershipRequest is the body for PATCH /users/:user_id/membership. An empty value clears the tier.
type MembershipRequest struct {
	MembershipType *string `json:"membership_type"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Store is the user persistence behind the handler.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, role models.Role) ([]models.UserPublic, error)
	Create(ctx context.Context, p CreateUserParams) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, p ProfileUpdate) (*models.User, error)
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo      Store
	jwt       *JWTService
	staffCode string
	logger    *zap.Logger
}

// NewHandler creates an auth handler. Staff sign-up requires staffCode; an empty code disables it.
func NewHandler(repo Store, jwt *JWTService, staffCode string, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, jwt: jwt, staffCode: staffCode, logger: logger}
}

func validLanguage(lang string) bool {
	switch lang {
	case models.LanguageEnglish, models.LanguageMandarin, models.LanguageMalay, models.LanguageTamil:
		return true
	}
	return false
}

// resolveRole checks the requested role and the staff code that guards staff accounts.
func (h *Handler) resolveRole(req *RegisterRequest) (models.Role, string) {
	role := models.RoleParticipant
	if req.Role != "" {
		role = models.Role(req.Role)
	}
	if !role.Valid() {
		return "", "invalid role"
	}
	if role == models.RoleStaff {
		if h.staffCode == "" || subtle.ConstantTimeCompare([]byte(req.StaffCode), []byte(h.staffCode)) != 1 {
			return "", "staff registration requires a valid staff code"
		}
	}
	return role, ""
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	role, msg := h.resolveRole(&req)
	if msg != "" {
		response.BadRequest(c, msg)
		return
	}
	membership := models.MembershipType(req.MembershipType)
	if !membership.Valid() {
		response.BadRequest(c, "invalid membership_type")
		return
	}
	if role != models.RoleParticipant {
		membership = ""
	}
	lang := req.PreferredLanguage
	if lang == "" {
		lang = models.LanguageEnglish
	}
	if !validLanguage(lang) {
		response.BadRequest(c, "invalid preferred_language")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		response.BadRequest(c, err.Error())
		return
	}
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	user, err := h.repo.Create(c.Request.Context(), CreateUserParams{
		Email:              utils.NormalizeEmail(req.Email),
		PasswordHash:       hash,
		FullName:           req.FullName,
		Role:               role,
		MembershipType:     membership,
		Phone:              req.Phone,
		CaregiverPhone:     req.CaregiverPhone,
		PreferredLanguage:  lang,
		WheelchairRequired: req.WheelchairRequired,
	})
	if errors.Is(err, ErrEmailTaken) {
		response.Conflict(c, "email already registered")
		return
	}
	if err != nil {
		h.logger.Error("create user", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, user.Role)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	h.logger.Info("user registered", zap.String("user_id", user.ID.String()), zap.String("role", string(user.Role)))
	response.Created(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), utils.NormalizeEmail(req.Email))
	if err != nil {
		h.logger.Error("load user", zap.Error(err))
		response.Internal(c, "failed to load user")
		return
	}
	if user == nil || !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, user.Role)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Me handles GET /me.
func (h *Handler) Me(c *gin.Context) {
	user, err := h.repo.GetByID(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		h.logger.Error("load user", zap.Error(err))
		response.Internal(c, "failed to load user")
		return
	}
	if user == nil {
		response.NotFound(c, "user not found")
		return
	}
	response.OK(c, user)
}

// UpdateProfile handles PATCH /me.
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.MembershipType != nil {
		response.Forbidden(c, "membership_type can only be changed by staff")
		return
	}
	upd := ProfileUpdate{
		FullName:           req.FullName,
		Phone:              req.Phone,
		CaregiverPhone:     req.CaregiverPhone,
		PreferredLanguage:  req.PreferredLanguage,
		WheelchairRequired: req.WheelchairRequired,
	}
	if req.PreferredLanguage != nil && !validLanguage(*req.PreferredLanguage) {
		response.BadRequest(c, "invalid preferred_language")
		return
	}

	user, err := h.repo.UpdateProfile(c.Request.Context(), middleware.CallerID(c), upd)
	if err != nil {
		h.logger.Error("update profile", zap.Error(err))
		response.Internal(c, "failed to update profile")
		return
	}
	if user == nil {
		response.NotFound(c, "user not found")
		return
	}
	response.OK(c, user)
}

// UpdateMembership handles PATCH /users/:user_id/membership (staff only).
func (h *Handler) UpdateMembership(c *gin.Context) {
	id, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var req MembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.MembershipType == nil {
		response.BadRequest(c, "membership_type is required")
		return
	}
	m := models.MembershipType(*req.MembershipType)
	if !m.Valid() {
		response.BadRequest(c, "invalid membership_type")
		return
	}

	ctx := c.Request.Context()
	user, err := h.repo.GetByID(ctx, id)
	if err != nil {
		h.logger.Error("load user", zap.Error(err))
		response.Internal(c, "failed to load user")
		return
	}
	if user == nil {
		response.NotFound(c, "user not found")
		return
	}
	if user.Role != models.RoleParticipant && m != "" {
		response.BadRequest(c, "only participants have a membership type")
		return
	}

	user, err = h.repo.UpdateProfile(ctx, id, ProfileUpdate{MembershipType: &m})
	if err != nil {
		h.logger.Error("update membership", zap.Error(err))
		response.Internal(c, "failed to update membership")
		return
	}
	if user == nil {
		response.NotFound(c, "user not found")
		return
	}
	h.logger.Info("membership updated",
		zap.String("user_id", id.String()),
		zap.String("membership_type", string(m)),
		zap.String("by", middleware.CallerID(c).String()),
	)
	response.OK(c, user)
}

// List handles GET /users (staff only). ?role= narrows to one role.
func (h *Handler) List(c *gin.Context) {
	role := models.Role(c.Query("role"))
	if role != "" && !role.Valid() {
		response.BadRequest(c, "invalid role")
		return
	}
	list, err := h.repo.List(c.Request.Context(), role)
	if err != nil {
		h.logger.Error("list users", zap.Error(err))
		response.Internal(c, "failed to list users")
		return
	}
	response.OK(c, list)
}
