// Package auth implements registration, email verification, login and guest sessions.
package auth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tazhibayda/event-service/internal/apperr"
	"github.com/tazhibayda/event-service/internal/domain"
	"github.com/tazhibayda/event-service/internal/helper"
	"github.com/tazhibayda/event-service/internal/mail"
	"github.com/tazhibayda/event-service/internal/notify"
	"github.com/tazhibayda/event-service/internal/otp"
	"github.com/tazhibayda/event-service/internal/queue"
	"github.com/tazhibayda/event-service/internal/repo"
	"github.com/tazhibayda/event-service/internal/sanitize"
	"github.com/tazhibayda/event-service/internal/security"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	FindUserByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	FindUserByBrowserID(ctx context.Context, browserID string) (*domain.User, error)
	CreateUser(ctx context.Context, u *domain.User) error
	SetOTP(ctx context.Context, id primitive.ObjectID, code domain.OTP) error
	MarkEmailVerified(ctx context.Context, id primitive.ObjectID) error
	SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error
}

type TokenIssuer interface {
	Issue(ctx context.Context, userID primitive.ObjectID) (string, error)
}

type Service struct {
	users       UserStore
	tokens      TokenIssuer
	otp         *otp.Manager
	mail        notify.Sender
	events      queue.Publisher
	log         *zap.Logger
	senderLabel string

	// HashPassword is swappable so tests can avoid bcrypt's cost.
	HashPassword func(string) (string, error)
	// Invalidate drops any cached copy of a user after its record changes.
	Invalidate func(ctx context.Context, userID string)
}

type Options struct {
	Users       UserStore
	Tokens      TokenIssuer
	OTP         *otp.Manager
	Mail        notify.Sender
	Events      queue.Publisher
	Log         *zap.Logger
	SenderLabel string
	Invalidate  func(ctx context.Context, userID string)
}

func NewService(o Options) *Service {
	s := &Service{
		users:        o.Users,
		tokens:       o.Tokens,
		otp:          o.OTP,
		mail:         o.Mail,
		events:       o.Events,
		log:          o.Log,
		senderLabel:  o.SenderLabel,
		HashPassword: security.HashPassword,
		Invalidate:   o.Invalidate,
	}
	if s.otp == nil {
		s.otp = otp.NewManager(otp.DefaultTTL)
	}
	if s.events == nil {
		s.events = queue.NewNoop()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.senderLabel == "" {
		s.senderLabel = "Doux Event"
	}
	return s
}

// minNameLen applies to the display name after markup is stripped.
const minNameLen = 3

type RegisterRequest struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

func (s *Service) Register(ctx context.Context, in RegisterRequest) error {
	name := sanitize.Text(in.Name)
	if utf8.RuneCountInString(name) < minNameLen {
		return apperr.New(apperr.Validation, "Name must be at least 3 characters")
	}
	email := helper.NormalizeEmail(in.Email)
	existing, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		return apperr.Wrap(apperr.Upstream, err, "User registration failed")
	}
	if existing != nil {
		return apperr.New(apperr.Conflict, "Sorry a user with this email already exists")
	}
	if in.Password != in.ConfirmPassword {
		return apperr.New(apperr.Validation, "Passwords do not match")
	}

	hash, err := s.HashPassword(in.Password)
	if err != nil {
		return apperr.Wrap(apperr.Upstream, err, "User registration failed")
	}
	u := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}
	code, err := s.otp.Issue(u)
	if err != nil {
		return apperr.Wrap(apperr.Upstream, err, "User registration failed")
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return apperr.New(apperr.Conflict, "Sorry a user with this email already exists")
		}
		return apperr.Wrap(apperr.Upstream, err, "User registration failed")
	}
	s.sendOTP(ctx, u, code)

	s.log.Info("user registered", zap.String("user_id", u.ID.Hex()), zap.String("email_hash", helper.Hash8(email)))
	s.publish(ctx, queue.KeyUserRegistered, queue.UserRegistered{UserID: u.ID, Email: u.Email, Name: u.Name})
	return nil
}

func (s *Service) VerifyEmail(ctx context.Context, email, code string) error {
	u, err := s.users.FindUserByEmail(ctx, helper.NormalizeEmail(email))
	if err != nil {
		return apperr.Wrap(apperr.Upstream, err, "Email verification failed")
	}
	if u == nil {
		return apperr.New(apperr.NotFound, "Invalid Email")
	}
	if !s.otp.Check(u, code) {
		return apperr.New(apperr.Auth, "Invalid OTP")
	}
	if err := s.users.MarkEmailVerified(ctx, u.ID); err != nil {
		return apperr.Wrap(apperr.Upstream, err, "Email verification failed")
	}
	s.invalidate(ctx, u.ID)
	if !u.EmailVerified {
		s.publish(ctx, queue.KeyUserVerified, queue.UserVerified{UserID: u.ID, Email: u.Email})
	}
	return nil
}

func (s *Service) ResendOTP(ctx context.Context, email string) error {
	u, err := s.users.FindUserByEmail(ctx, helper.NormalizeEmail(email))
	if err != nil {
		return apperr.Wrap(apperr.Upstream, err, "Failed to send OTP")
	}
	if u == nil {
		return apperr.New(apperr.NotFound, "User doesn't exist")
	}
	return s.reissueOTP(ctx, u, "Failed to send OTP")
}

// Pending identifies an account that must verify its email before it gets a token.
type Pending struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type Session struct {
	User        domain.PublicUser `json:"user"`
	AccessToken string            `json:"accessToken"`
}

type LoginResult struct {
	Session *Session
	Pending *Pending
}

// Login returns a session for verified accounts. For unverified accounts with a correct
// password a new OTP is sent and the result carries Pending alongside an Unverified error.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	u, err := s.users.FindUserByEmail(ctx, helper.NormalizeEmail(email))
	if err != nil {
		return LoginResult{}, apperr.Wrap(apperr.Upstream, err, "User login failed")
	}
	if u == nil {
		return LoginResult{}, apperr.New(apperr.NotFound, "Invalid Email")
	}
	if !security.CheckPassword(u.PasswordHash, password) {
		return LoginResult{}, apperr.New(apperr.Auth, "Invalid Password")
	}
	if !u.EmailVerified {
		if err := s.reissueOTP(ctx, u, "User login failed"); err != nil {
			return LoginResult{}, err
		}
		return LoginResult{Pending: &Pending{Email: u.Email, Name: u.Name}},
			apperr.New(apperr.Unverified, "Email not verified")
	}

	sess, err := s.session(ctx, u, "User login failed")
	if err != nil {
		return LoginResult{}, err
	}
	s.publish(ctx, queue.KeyUserLoggedIn, queue.UserLoggedIn{UserID: u.ID, Email: u.Email})
	return LoginResult{Session: sess}, nil
}

// GuestLogin returns a session for the guest bound to browserID, creating it on first use.
func (s *Service) GuestLogin(ctx context.Context, browserID string) (*Session, error) {
	browserID = strings.TrimSpace(browserID)
	if browserID == "" {
		return nil, apperr.New(apperr.Validation, "Browser ID is required")
	}
	u, err := s.users.FindUserByBrowserID(ctx, browserID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, err, "Guest user login failed")
	}
	if u == nil {
		if u, err = s.createGuest(ctx, browserID); err != nil {
			return nil, err
		}
	}
	sess, err := s.session(ctx, u, "Guest user login failed")
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.KeyUserLoggedIn, queue.UserLoggedIn{UserID: u.ID, Guest: true})
	return sess, nil
}

func (s *Service) createGuest(ctx context.Context, browserID string) (*domain.User, error) {
	suffix, err := security.RandomInt(nil, 1000, 9999)
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, err, "Guest user login failed")
	}
	u := &domain.User{
		Name:      "Guest" + strconv.Itoa(suffix),
		BrowserID: browserID,
		IsGuest:   true,
	}
	err = s.users.CreateUser(ctx, u)
	if errors.Is(err, repo.ErrDuplicate) {
		// a concurrent request created the guest first
		existing, ferr := s.users.FindUserByBrowserID(ctx, browserID)
		if ferr == nil && existing != nil {
			return existing, nil
		}
		if ferr != nil {
			err = ferr
		}
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, err, "Guest user login failed")
	}
	return u, nil
}

type ResetPasswordRequest struct {
	Email           string
	Password        string
	ConfirmPassword string
}

// ResetPassword overwrites the password of the account. No OTP is required.
func (s *Service) ResetPassword(ctx context.Context, in ResetPasswordRequest) error {
	u, err := s.users.FindUserByEmail(ctx, helper.NormalizeEmail(in.Email))
	if err != nil {
		return apperr.Wrap(apperr.Upstream, err, "Failed to reset password")
	}
	if u == nil {
		return apperr.New(apperr.NotFound, "Invalid Email")
	}
	if in.Password != in.ConfirmPassword {
		return apperr.New(apperr.Validation, "Passwords do not match")
	}
	hash, err := s.HashPassword(in.Password)
	if err != nil {
		return apperr.Wrap(apperr.Upstream, err, "Failed to reset password")
	}
	if err := s.users.SetPassword(ctx, u.ID, hash); err != nil {
		return apperr.Wrap(apperr.Upstream, err, "Failed to reset password")
	}
	s.invalidate(ctx, u.ID)
	s.log.Info("password reset", zap.String("user_id", u.ID.Hex()))
	return nil
}

func (s *Service) Profile(ctx context.Context, userID string) (domain.PublicUser, error) {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return domain.PublicUser{}, apperr.New(apperr.NotFound, "User not found")
	}
	u, err := s.users.FindUserByID(ctx, id)
	if err != nil {
		return domain.PublicUser{}, apperr.Wrap(apperr.Upstream, err, "Failed to fetch user profile details")
	}
	if u == nil {
		return domain.PublicUser{}, apperr.New(apperr.NotFound, "User not found")
	}
	return u.Sanitized(), nil
}

func (s *Service) session(ctx context.Context, u *domain.User, failMsg string) (*Session, error) {
	tok, err := s.tokens.Issue(ctx, u.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, err, failMsg)
	}
	return &Session{User: u.Sanitized(), AccessToken: tok}, nil
}

func (s *Service) reissueOTP(ctx context.Context, u *domain.User, failMsg string) error {
	code, err := s.otp.Issue(u)
	if err != nil {
		return apperr.Wrap(apperr.Upstream, err, failMsg)
	}
	if err := s.users.SetOTP(ctx, u.ID, *u.OTP); err != nil {
		return apperr.Wrap(apperr.Upstream, err, failMsg)
	}
	s.sendOTP(ctx, u, code)
	return nil
}

func (s *Service) sendOTP(ctx context.Context, u *domain.User, code int) {
	if s.mail == nil {
		return
	}
	s.mail.Send(ctx, s.senderLabel, u.Email, mail.VerificationSubject, mail.VerificationHTML(u.Name, code))
}

func (s *Service) invalidate(ctx context.Context, id primitive.ObjectID) {
	if s.Invalidate != nil {
		s.Invalidate(ctx, id.Hex())
	}
}

func (s *Service) publish(ctx context.Context, key string, ev any) {
	ctx = context.WithoutCancel(ctx)
	reqID := helper.RequestID(ctx)
	go func() {
		if err := s.events.Publish(ctx, queue.AuthExchange, key, ev, reqID); err != nil {
			s.log.Warn("publish auth event", zap.String("key", key), zap.Error(err))
		}
	}()
}
