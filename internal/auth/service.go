package auth

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"

	pkgerrors "github.com/angelmondragon/vinoteca-backend/pkg/errors"
	"github.com/angelmondragon/vinoteca-backend/pkg/logger"
	pkgmail "github.com/angelmondragon/vinoteca-backend/pkg/mail"
)

const adminClaim = "admin"

// Service defines the account operations backed by Firebase Authentication.
// Sign-in and sign-out happen client side with the Firebase SDK.
type Service interface {
	Authenticate(ctx context.Context, idToken string) (*Identity, error)
	SignUp(ctx context.Context, req SignUpRequest) (*User, error)
	SendPasswordReset(ctx context.Context, email string) error
	UpdateProfile(ctx context.Context, uid string, req ProfileUpdate) (*User, error)
	CurrentUser(ctx context.Context, uid string) (*User, error)
}

type firebaseClient interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
	CreateUser(ctx context.Context, user *fbauth.UserToCreate) (*fbauth.UserRecord, error)
	UpdateUser(ctx context.Context, uid string, user *fbauth.UserToUpdate) (*fbauth.UserRecord, error)
	GetUser(ctx context.Context, uid string) (*fbauth.UserRecord, error)
	PasswordResetLink(ctx context.Context, email string) (string, error)
}

type mailer interface {
	Send(ctx context.Context, msg pkgmail.Message) error
}

type adminList interface {
	IsAdminEmail(email string) bool
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Firebase firebaseClient
	Mailer   mailer
	Admins   adminList
	Logger   *logger.Logger
}

type service struct {
	firebase firebaseClient
	mailer   mailer
	admins   adminList
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Firebase == nil {
		return nil, fmt.Errorf("firebase auth client is required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		firebase: params.Firebase,
		mailer:   params.Mailer,
		admins:   params.Admins,
		logg:     params.Logger,
	}, nil
}

// Authenticate verifies a Firebase ID token. A caller is an admin when the token
// carries the admin custom claim or its email is in the configured admin list.
func (s *service) Authenticate(ctx context.Context, idToken string) (*Identity, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing token")
	}
	token, err := s.firebase.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	email, _ := token.Claims["email"].(string)
	return &Identity{
		UID:   token.UID,
		Email: email,
		Admin: claimIsTrue(token.Claims, adminClaim) || s.isAdminEmail(email),
	}, nil
}

func (s *service) SignUp(ctx context.Context, req SignUpRequest) (*User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if len(req.Password) < 6 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 6 characters").
			WithDetails(map[string]string{"password": "min=6"})
	}

	params := (&fbauth.UserToCreate{}).Email(email).Password(req.Password)
	if name := strings.TrimSpace(req.DisplayName); name != "" {
		params = params.DisplayName(name)
	}
	rec, err := s.firebase.CreateUser(ctx, params)
	if err != nil {
		if fbauth.IsEmailAlreadyExists(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}
	s.logg.Info(s.logg.WithUserID(ctx, rec.UID), "auth.signup")
	return fromRecord(rec, s.isAdminEmail(email)), nil
}

// SendPasswordReset emails a reset link. Unknown addresses succeed silently so
// the endpoint does not reveal which accounts exist.
func (s *service) SendPasswordReset(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	link, err := s.firebase.PasswordResetLink(ctx, email)
	if err != nil {
		if fbauth.IsUserNotFound(err) || fbauth.IsEmailNotFound(err) {
			s.logg.Warn(ctx, "auth.password_reset_unknown_email")
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate password reset link")
	}

	err = s.mailer.Send(ctx, pkgmail.Message{
		To:      email,
		Subject: "Restablecer contraseña",
		Text:    "Para restablecer tu contraseña abrí el siguiente enlace:\n\n" + link,
		HTML:    fmt.Sprintf(`<p>Para restablecer tu contraseña hacé click <a href="%s">acá</a>.</p>`, link),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send password reset email")
	}
	s.logg.Info(ctx, "auth.password_reset_sent")
	return nil
}

func (s *service) UpdateProfile(ctx context.Context, uid string, req ProfileUpdate) (*User, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if req.DisplayName == nil && req.PhotoURL == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update")
	}
	params := &fbauth.UserToUpdate{}
	if req.DisplayName != nil {
		params = params.DisplayName(strings.TrimSpace(*req.DisplayName))
	}
	if req.PhotoURL != nil {
		params = params.PhotoURL(strings.TrimSpace(*req.PhotoURL))
	}
	rec, err := s.firebase.UpdateUser(ctx, uid, params)
	if err != nil {
		return nil, mapUserError(err, "update user")
	}
	s.logg.Info(s.logg.WithUserID(ctx, uid), "auth.profile_updated")
	return fromRecord(rec, s.isAdminEmail(rec.Email)), nil
}

func (s *service) CurrentUser(ctx context.Context, uid string) (*User, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	rec, err := s.firebase.GetUser(ctx, uid)
	if err != nil {
		return nil, mapUserError(err, "get user")
	}
	return fromRecord(rec, s.isAdminEmail(rec.Email)), nil
}

func (s *service) isAdminEmail(email string) bool {
	return s.admins != nil && s.admins.IsAdminEmail(email)
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid email").
			WithDetails(map[string]string{"email": "invalid"})
	}
	return email, nil
}

func mapUserError(err error, msg string) error {
	if fbauth.IsUserNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
