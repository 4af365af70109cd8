package devbackend

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"mvp/internal/database"
	"mvp/internal/validation"
)

const (
	accessTokenTTL       = time.Hour
	confirmationTokenTTL = 24 * time.Hour
	tokenIssuer          = "mvp-devbackend"
	authenticatedRole    = "authenticated"
	purposeSignup        = "signup"
)

// authError is the error body of the auth endpoints.
type authError struct {
	status    int
	Code      int    `json:"code"`
	ErrorCode string `json:"error_code"`
	Msg       string `json:"msg"`
}

func (e *authError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.status, e.ErrorCode, e.Msg)
}

func newAuthError(status int, code, msg string) *authError {
	return &authError{status: status, Code: status, ErrorCode: code, Msg: msg}
}

type userBody struct {
	ID                 string `json:"id"`
	Aud                string `json:"aud"`
	Role               string `json:"role"`
	Email              string `json:"email"`
	EmailConfirmedAt   string `json:"email_confirmed_at,omitempty"`
	ConfirmationSentAt string `json:"confirmation_sent_at,omitempty"`
	CreatedAt          string `json:"created_at"`
}

type sessionBody struct {
	AccessToken  string   `json:"access_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int      `json:"expires_in"`
	ExpiresAt    int64    `json:"expires_at"`
	RefreshToken string   `json:"refresh_token"`
	User         userBody `json:"user"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) parseCredentials(c *fiber.Ctx) (credentials, error) {
	var req credentials
	if err := c.BodyParser(&req); err != nil {
		return req, newAuthError(http.StatusBadRequest, "bad_json", "Could not parse request body as JSON")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	return req, nil
}

// Signup handles POST /auth/v1/signup. It creates the account and its
// profile. With email confirmation enabled only the user is returned and a
// confirmation link is logged.
func (s *Server) Signup(c *fiber.Ctx) error {
	req, err := s.parseCredentials(c)
	if err != nil {
		return err
	}
	if err := validation.Struct(validation.RegisterForm{Email: req.Email, Password: req.Password}); err != nil {
		details := validation.ToDetails(err)
		if msg, ok := details["email"]; ok {
			return newAuthError(http.StatusBadRequest, "validation_failed", "Unable to validate email address: "+msg)
		}
		return newAuthError(http.StatusUnprocessableEntity, "weak_password", details["password"])
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := database.FormatTime(s.now())
	account := database.Account{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         authenticatedRole,
		Confirmed:    !s.config.RequireEmailConfirmation,
		CreatedAt:    now,
	}
	username, _, _ := strings.Cut(req.Email, "@")
	profile := database.Profile{
		ID:        account.ID,
		Email:     req.Email,
		Username:  username,
		CreatedAt: &now,
	}

	ctx := c.UserContext()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&account).Error; err != nil {
			return err
		}
		return tx.Create(&profile).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return newAuthError(http.StatusUnprocessableEntity, "user_already_exists", "User already registered")
	}
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	if !account.Confirmed {
		link, err := s.confirmationLink(account.ID, c.Query("redirect_to"))
		if err != nil {
			return err
		}
		s.logger.InfoContext(ctx, "confirmation required",
			slog.String("email", account.Email),
			slog.String("link", link),
		)
		user := s.userBody(account)
		user.ConfirmationSentAt = now
		return c.JSON(user)
	}

	session, err := s.issueSession(account)
	if err != nil {
		return err
	}
	return c.JSON(session)
}

// Token handles POST /auth/v1/token?grant_type=password.
func (s *Server) Token(c *fiber.Ctx) error {
	if grant := c.Query("grant_type"); grant != "password" {
		return newAuthError(http.StatusBadRequest, "unsupported_grant_type", fmt.Sprintf("unsupported grant type %q", grant))
	}
	req, err := s.parseCredentials(c)
	if err != nil {
		return err
	}

	invalid := newAuthError(http.StatusBadRequest, "invalid_credentials", "Invalid login credentials")
	var account database.Account
	err = s.db.WithContext(c.UserContext()).Where("email = ?", req.Email).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return invalid
	}
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)) != nil {
		return invalid
	}
	if !account.Confirmed {
		return newAuthError(http.StatusBadRequest, "email_not_confirmed", "Email not confirmed")
	}

	session, err := s.issueSession(account)
	if err != nil {
		return err
	}
	return c.JSON(session)
}

// Logout handles POST /auth/v1/logout. Access tokens are stateless, so a
// valid token is all that is checked.
func (s *Server) Logout(c *fiber.Ctx) error {
	if _, err := s.bearerSubject(c); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CurrentUser handles GET /auth/v1/user.
func (s *Server) CurrentUser(c *fiber.Ctx) error {
	sub, err := s.bearerSubject(c)
	if err != nil {
		return err
	}
	var account database.Account
	err = s.db.WithContext(c.UserContext()).First(&account, "id = ?", sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return newAuthError(http.StatusNotFound, "user_not_found", "User from sub claim in JWT does not exist")
	}
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	return c.JSON(s.userBody(account))
}

// Verify handles the confirmation link GET /auth/v1/verify?token=...
func (s *Server) Verify(c *fiber.Ctx) error {
	claims, err := s.parseToken(c.Query("token"))
	if err != nil || claims["purpose"] != purposeSignup {
		return newAuthError(http.StatusForbidden, "otp_expired", "Email link is invalid or has expired")
	}
	sub, _ := claims["sub"].(string)

	res := s.db.WithContext(c.UserContext()).Model(&database.Account{}).Where("id = ?", sub).Update("confirmed", true)
	if res.Error != nil {
		return fmt.Errorf("confirm account: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return newAuthError(http.StatusNotFound, "user_not_found", "User not found")
	}

	if redirect := c.Query("redirect_to"); redirect != "" {
		return c.Redirect(redirect, fiber.StatusSeeOther)
	}
	return c.JSON(fiber.Map{"confirmed": true})
}

func (s *Server) userBody(a database.Account) userBody {
	u := userBody{
		ID:        a.ID,
		Aud:       authenticatedRole,
		Role:      a.Role,
		Email:     a.Email,
		CreatedAt: a.CreatedAt,
	}
	if a.Confirmed {
		u.EmailConfirmedAt = a.CreatedAt
	}
	return u
}

func (s *Server) issueSession(a database.Account) (*sessionBody, error) {
	now := s.now()
	expires := now.Add(accessTokenTTL)
	token, err := s.signToken(jwt.MapClaims{
		"sub":   a.ID,
		"email": a.Email,
		"role":  a.Role,
		"aud":   authenticatedRole,
		"iss":   tokenIssuer,
		"exp":   expires.Unix(),
		"iat":   now.Unix(),
		"jti":   uuid.NewString(),
	})
	if err != nil {
		return nil, err
	}
	return &sessionBody{
		AccessToken:  token,
		TokenType:    "bearer",
		ExpiresIn:    int(accessTokenTTL.Seconds()),
		ExpiresAt:    expires.Unix(),
		RefreshToken: uuid.NewString(),
		User:         s.userBody(a),
	}, nil
}

func (s *Server) confirmationLink(accountID, redirectTo string) (string, error) {
	now := s.now()
	token, err := s.signToken(jwt.MapClaims{
		"sub":     accountID,
		"purpose": purposeSignup,
		"iss":     tokenIssuer,
		"exp":     now.Add(confirmationTokenTTL).Unix(),
		"iat":     now.Unix(),
	})
	if err != nil {
		return "", err
	}
	q := url.Values{"type": {purposeSignup}, "token": {token}}
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	return strings.TrimRight(s.config.PublicURL, "/") + "/auth/v1/verify?" + q.Encode(), nil
}

func (s *Server) signToken(claims jwt.MapClaims) (string, error) {
	if s.config.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

func (s *Server) parseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// bearerSubject returns the user id of the access token in the
// Authorization header.
func (s *Server) bearerSubject(c *fiber.Ctx) (string, error) {
	unauthorized := newAuthError(http.StatusUnauthorized, "no_authorization", "This endpoint requires a valid Bearer token")

	scheme, tokenString, ok := strings.Cut(c.Get(fiber.HeaderAuthorization), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", unauthorized
	}
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return "", newAuthError(http.StatusUnauthorized, "bad_jwt", "invalid JWT: unable to parse or verify signature")
	}
	if _, scoped := claims["purpose"]; scoped {
		return "", unauthorized
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", unauthorized
	}
	return sub, nil
}
