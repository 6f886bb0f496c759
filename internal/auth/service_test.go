package auth_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tazhibayda/event-service/internal/apperr"
	"github.com/tazhibayda/event-service/internal/auth"
	"github.com/tazhibayda/event-service/internal/domain"
	"github.com/tazhibayda/event-service/internal/otp"
	"github.com/tazhibayda/event-service/internal/repo"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type memUsers struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]domain.User
	fail error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[primitive.ObjectID]domain.User{}}
}

func (m *memUsers) find(match func(domain.User) bool) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	for _, u := range m.byID {
		if match(u) {
			cp := u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memUsers) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	return m.find(func(u domain.User) bool { return u.Email != "" && u.Email == email })
}

func (m *memUsers) FindUserByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	return m.find(func(u domain.User) bool { return u.ID == id })
}

func (m *memUsers) FindUserByBrowserID(_ context.Context, id string) (*domain.User, error) {
	return m.find(func(u domain.User) bool { return u.BrowserID != "" && u.BrowserID == id })
}

func (m *memUsers) CreateUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.byID {
		if (u.Email != "" && ex.Email == u.Email) || (u.BrowserID != "" && ex.BrowserID == u.BrowserID) {
			return repo.ErrDuplicate
		}
	}
	u.ID = primitive.NewObjectID()
	u.CreatedAt = time.Now()
	m.byID[u.ID] = *u
	return nil
}

func (m *memUsers) update(id primitive.ObjectID, fn func(*domain.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return errors.New("no such user")
	}
	fn(&u)
	m.byID[id] = u
	return nil
}

func (m *memUsers) SetOTP(_ context.Context, id primitive.ObjectID, code domain.OTP) error {
	return m.update(id, func(u *domain.User) { u.OTP = &code })
}

func (m *memUsers) MarkEmailVerified(_ context.Context, id primitive.ObjectID) error {
	return m.update(id, func(u *domain.User) { u.EmailVerified = true })
}

func (m *memUsers) SetPassword(_ context.Context, id primitive.ObjectID, hash string) error {
	return m.update(id, func(u *domain.User) { u.PasswordHash = hash })
}

func (m *memUsers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

func (m *memUsers) code(t *testing.T, email string) string {
	t.Helper()
	u, err := m.FindUserByEmail(context.Background(), email)
	require.NoError(t, err)
	require.NotNil(t, u)
	require.NotNil(t, u.OTP)
	return strconv.Itoa(u.OTP.Code)
}

// fakeTokens issues "tok-<hex>" so tests can map a token back to its user.
type fakeTokens struct{}

func (fakeTokens) Issue(_ context.Context, id primitive.ObjectID) (string, error) {
	return "tok-" + id.Hex(), nil
}

type sentMail struct {
	to, subject, html string
}

type fakeMail struct {
	mu   sync.Mutex
	sent []sentMail
}

func (f *fakeMail) Send(_ context.Context, _, to, subject, html string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{to, subject, html})
}

func (f *fakeMail) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fixture struct {
	svc         *auth.Service
	users       *memUsers
	mail        *fakeMail
	invalidated []string
}

// seqReader feeds crypto/rand.Int a different byte on every read, so consecutive
// OTP codes always differ.
type seqReader struct {
	mu sync.Mutex
	n  byte
}

func (r *seqReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.n = r.n%12 + 1
	for i := range p {
		p[i] = r.n
	}
	return len(p), nil
}

func newFixture() *fixture {
	f := &fixture{users: newMemUsers(), mail: &fakeMail{}}
	codes := otp.NewManager(otp.DefaultTTL)
	codes.Rand = &seqReader{}
	f.svc = auth.NewService(auth.Options{
		Users:  f.users,
		Tokens: fakeTokens{},
		OTP:    codes,
		Mail:   f.mail,
		Invalidate: func(_ context.Context, id string) {
			f.invalidated = append(f.invalidated, id)
		},
	})
	f.svc.HashPassword = func(pw string) (string, error) {
		b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
		return string(b), err
	}
	return f
}

func (f *fixture) register(t *testing.T, name, email, pw string) {
	t.Helper()
	require.NoError(t, f.svc.Register(context.Background(), auth.RegisterRequest{
		Name: name, Email: email, Password: pw, ConfirmPassword: pw,
	}))
}

func TestRegister_CreatesUnverifiedUserAndMailsOTP(t *testing.T) {
	f := newFixture()
	f.register(t, "Alice", "Alice@X.com", "password1")

	u, err := f.users.FindUserByEmail(context.Background(), "alice@x.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.False(t, u.EmailVerified)
	assert.NotEqual(t, "password1", u.PasswordHash)
	require.NotNil(t, u.OTP)

	require.Equal(t, 1, f.mail.count())
	assert.Equal(t, "alice@x.com", f.mail.sent[0].to)
	assert.Equal(t, "Email Verification", f.mail.sent[0].subject)
	assert.Contains(t, f.mail.sent[0].html, strconv.Itoa(u.OTP.Code))
}

func TestRegister_DuplicateAndMismatch(t *testing.T) {
	f := newFixture()
	f.register(t, "Alice", "alice@x.com", "password1")

	err := f.svc.Register(context.Background(), auth.RegisterRequest{
		Name: "Alice2", Email: "alice@x.com", Password: "password1", ConfirmPassword: "password1",
	})
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))
	assert.Equal(t, "Sorry a user with this email already exists", apperr.Message(err))

	err = f.svc.Register(context.Background(), auth.RegisterRequest{
		Name: "Bob", Email: "bob@x.com", Password: "password1", ConfirmPassword: "password2",
	})
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
	assert.Equal(t, "Passwords do not match", apperr.Message(err))
	assert.Equal(t, 1, f.users.count())
}

func TestRegister_NameCheckedAfterMarkupIsStripped(t *testing.T) {
	f := newFixture()
	for _, name := range []string{"<b></b>", "<i>Al</i>", "&lt;b&gt;&lt;/b&gt;"} {
		err := f.svc.Register(context.Background(), auth.RegisterRequest{
			Name: name, Email: "alice@x.com", Password: "password1", ConfirmPassword: "password1",
		})
		assert.Equal(t, apperr.Validation, apperr.KindOf(err), "name %q", name)
		assert.Equal(t, "Name must be at least 3 characters", apperr.Message(err))
	}
	assert.Equal(t, 0, f.users.count())
	assert.Equal(t, 0, f.mail.count())

	f.register(t, "<b>Alice</b>", "alice@x.com", "password1")
	u, err := f.users.FindUserByEmail(context.Background(), "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Name)
}

func TestLogin_UnverifiedIsSoftFailWithoutToken(t *testing.T) {
	f := newFixture()
	f.register(t, "Alice", "alice@x.com", "password1")
	before := f.users.code(t, "alice@x.com")

	res, err := f.svc.Login(context.Background(), "alice@x.com", "password1")
	require.Error(t, err)
	assert.Equal(t, apperr.Unverified, apperr.KindOf(err))
	assert.Nil(t, res.Session)
	require.NotNil(t, res.Pending)
	assert.Equal(t, "alice@x.com", res.Pending.Email)
	assert.Equal(t, "Alice", res.Pending.Name)

	// a fresh code was issued and mailed
	assert.Equal(t, 2, f.mail.count())
	after := f.users.code(t, "alice@x.com")
	require.NotEqual(t, before, after)
	assert.Error(t, f.svc.VerifyEmail(context.Background(), "alice@x.com", before))
}

func TestLogin_Failures(t *testing.T) {
	f := newFixture()
	f.register(t, "Alice", "alice@x.com", "password1")

	_, err := f.svc.Login(context.Background(), "nobody@x.com", "password1")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	assert.Equal(t, "Invalid Email", apperr.Message(err))

	_, err = f.svc.Login(context.Background(), "alice@x.com", "wrong-password")
	assert.Equal(t, apperr.Auth, apperr.KindOf(err))
	assert.Equal(t, "Invalid Password", apperr.Message(err))
}

func TestVerifyEmail(t *testing.T) {
	f := newFixture()
	f.register(t, "Alice", "alice@x.com", "password1")
	code := f.users.code(t, "alice@x.com")

	err := f.svc.VerifyEmail(context.Background(), "alice@x.com", "000000")
	assert.Equal(t, apperr.Auth, apperr.KindOf(err))
	assert.Equal(t, "Invalid OTP", apperr.Message(err))

	err = f.svc.VerifyEmail(context.Background(), "ghost@x.com", code)
	assert.Equal(t, "Invalid Email", apperr.Message(err))

	require.NoError(t, f.svc.VerifyEmail(context.Background(), "alice@x.com", code))
	u, _ := f.users.FindUserByEmail(context.Background(), "alice@x.com")
	assert.True(t, u.EmailVerified)
	assert.Equal(t, []string{u.ID.Hex()}, f.invalidated)

	// the code is not consumed, so a repeat succeeds and the flag stays true
	require.NoError(t, f.svc.VerifyEmail(context.Background(), "alice@x.com", code))
	u, _ = f.users.FindUserByEmail(context.Background(), "alice@x.com")
	assert.True(t, u.EmailVerified)
}

func TestResendOTP_ReplacesCode(t *testing.T) {
	f := newFixture()
	f.register(t, "Alice", "alice@x.com", "password1")

	err := f.svc.ResendOTP(context.Background(), "ghost@x.com")
	assert.Equal(t, "User doesn't exist", apperr.Message(err))

	old := f.users.code(t, "alice@x.com")
	require.NoError(t, f.svc.ResendOTP(context.Background(), "alice@x.com"))
	fresh := f.users.code(t, "alice@x.com")
	assert.Equal(t, 2, f.mail.count())
	require.NotEqual(t, old, fresh)
	err = f.svc.VerifyEmail(context.Background(), "alice@x.com", old)
	assert.Equal(t, "Invalid OTP", apperr.Message(err))
	assert.NoError(t, f.svc.VerifyEmail(context.Background(), "alice@x.com", fresh))
}

func TestEndToEnd_RegisterVerifyLogin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.register(t, "Alice", "alice@x.com", "password1")

	_, err := f.svc.Login(ctx, "alice@x.com", "password1")
	require.True(t, apperr.Is(err, apperr.Unverified))

	require.NoError(t, f.svc.VerifyEmail(ctx, "alice@x.com", f.users.code(t, "alice@x.com")))

	res, err := f.svc.Login(ctx, "alice@x.com", "password1")
	require.NoError(t, err)
	require.NotNil(t, res.Session)
	assert.Equal(t, "tok-"+res.Session.User.ID.Hex(), res.Session.AccessToken)
	assert.Equal(t, "alice@x.com", res.Session.User.Email)
	assert.True(t, res.Session.User.EmailVerified)
}

func TestGuestLogin_Idempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.GuestLogin(ctx, "  ")
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
	assert.Equal(t, "Browser ID is required", apperr.Message(err))

	first, err := f.svc.GuestLogin(ctx, "browser-1")
	require.NoError(t, err)
	second, err := f.svc.GuestLogin(ctx, "browser-1")
	require.NoError(t, err)

	assert.Equal(t, first.User.ID, second.User.ID)
	assert.Equal(t, 1, f.users.count())
	assert.True(t, first.User.IsGuest)
	assert.Regexp(t, `^Guest\d{4}$`, first.User.Name)
}

func TestGuestLogin_ConcurrentCallsShareOneAccount(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]primitive.ObjectID, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := f.svc.GuestLogin(ctx, "browser-race")
			if assert.NoError(t, err) {
				ids[i] = s.User.ID
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, f.users.count())
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestResetPassword(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.register(t, "Alice", "alice@x.com", "password1")
	require.NoError(t, f.svc.VerifyEmail(ctx, "alice@x.com", f.users.code(t, "alice@x.com")))

	err := f.svc.ResetPassword(ctx, auth.ResetPasswordRequest{Email: "ghost@x.com", Password: "newpassword", ConfirmPassword: "newpassword"})
	assert.Equal(t, "Invalid Email", apperr.Message(err))

	err = f.svc.ResetPassword(ctx, auth.ResetPasswordRequest{Email: "alice@x.com", Password: "newpassword", ConfirmPassword: "other"})
	assert.Equal(t, "Passwords do not match", apperr.Message(err))

	require.NoError(t, f.svc.ResetPassword(ctx, auth.ResetPasswordRequest{Email: "alice@x.com", Password: "newpassword", ConfirmPassword: "newpassword"}))

	_, err = f.svc.Login(ctx, "alice@x.com", "password1")
	assert.Equal(t, "Invalid Password", apperr.Message(err))
	res, err := f.svc.Login(ctx, "alice@x.com", "newpassword")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Session.AccessToken)
}

func TestProfile(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	s, err := f.svc.GuestLogin(ctx, "browser-9")
	require.NoError(t, err)

	u, err := f.svc.Profile(ctx, s.User.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, s.User.Name, u.Name)

	_, err = f.svc.Profile(ctx, primitive.NewObjectID().Hex())
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	_, err = f.svc.Profile(ctx, "not-an-id")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestStoreFailureIsUpstream(t *testing.T) {
	f := newFixture()
	f.users.fail = errors.New("mongo down")
	_, err := f.svc.Login(context.Background(), "alice@x.com", "password1")
	assert.Equal(t, apperr.Upstream, apperr.KindOf(err))
	assert.Equal(t, "User login failed", apperr.Message(err))
}
