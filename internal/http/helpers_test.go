package http_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"mime/multipart"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/tazhibayda/event-service/internal/auth"
	"github.com/tazhibayda/event-service/internal/event"
	http "github.com/tazhibayda/event-service/internal/http"
	"github.com/tazhibayda/event-service/internal/log"
	"github.com/tazhibayda/event-service/internal/otp"
	"github.com/tazhibayda/event-service/internal/queue"
	"github.com/tazhibayda/event-service/internal/relay"
	"github.com/tazhibayda/event-service/internal/repo"
	"github.com/tazhibayda/event-service/internal/security"
	"github.com/tazhibayda/event-service/internal/storage"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	T      *testing.T
	Ctx    context.Context
	Mongo  *mongodb.MongoDBContainer
	Store  *repo.Store
	Keys   *security.KeyManager
	Router *gin.Engine

	stopHub context.CancelFunc
}

func genRSA(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return k
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("needs docker")
	}
	ctx := context.Background()

	mc, err := mongodb.Run(ctx, "mongo:6")
	require.NoError(t, err, "mongo container")

	uri, err := mc.ConnectionString(ctx)
	require.NoError(t, err)

	_, err = log.Init(false)
	require.NoError(t, err)

	store, err := repo.NewStore(ctx, uri, "event_test")
	require.NoError(t, err)
	require.NoError(t, store.EnsureIndexes(ctx))

	km := security.NewKeyManagerFromKeys("main", genRSA(t), nil)
	tokens := security.NewTokenService(km, store, 24*time.Hour)

	authSvc := auth.NewService(auth.Options{
		Users:  store,
		Tokens: tokens,
		OTP:    otp.NewManager(otp.DefaultTTL),
		Events: queue.NewNoop(),
	})
	authSvc.HashPassword = func(pw string) (string, error) {
		b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
		return string(b), err
	}

	uploads := t.TempDir()
	disk, err := storage.NewDisk(uploads)
	require.NoError(t, err)

	hub := relay.NewHub(nil)
	hubCtx, stop := context.WithCancel(ctx)
	go hub.Run(hubCtx)

	h := &http.Handler{
		Auth:      authSvc,
		Events:    event.NewService(store, disk, nil),
		Tokens:    tokens,
		Keys:      km,
		Store:     store,
		Hub:       hub,
		UploadDir: uploads,
	}

	gin.SetMode(gin.TestMode)
	return &testEnv{T: t, Ctx: ctx, Mongo: mc, Store: store, Keys: km, Router: http.NewRouter(h), stopHub: stop}
}

func (e *testEnv) Close() {
	if e.stopHub != nil {
		e.stopHub()
	}
	if e.Store != nil {
		_ = e.Store.Close(e.Ctx)
	}
	if e.Mongo != nil {
		_ = e.Mongo.Terminate(e.Ctx)
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

func (e *testEnv) do(method, path, body, token string) (*httptest.ResponseRecorder, envelope) {
	e.T.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	e.Router.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func (e *testEnv) multipart(path, token string, fields map[string]string, image []byte) (*httptest.ResponseRecorder, envelope) {
	e.T.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(e.T, mw.WriteField(k, v))
	}
	if image != nil {
		fw, err := mw.CreateFormFile("event-image", "poster.png")
		require.NoError(e.T, err)
		_, _ = fw.Write(image)
	}
	require.NoError(e.T, mw.Close())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	e.Router.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

// otpFor reads the pending code straight from Mongo.
func (e *testEnv) otpFor(email string) string {
	e.T.Helper()
	u, err := e.Store.FindUserByEmail(e.Ctx, email)
	require.NoError(e.T, err)
	require.NotNil(e.T, u)
	require.NotNil(e.T, u.OTP)
	return strconv.Itoa(u.OTP.Code)
}

// verifiedToken registers, verifies and logs in a user, returning its token.
func (e *testEnv) verifiedToken(name, email string) string {
	e.T.Helper()
	w, _ := e.do("POST", "/api/auth/register",
		`{"name":"`+name+`","email":"`+email+`","password":"password1","cpassword":"password1"}`, "")
	require.Equal(e.T, 201, w.Code, w.Body.String())
	w, _ = e.do("POST", "/api/auth/verify-email", `{"email":"`+email+`","otp":"`+e.otpFor(email)+`"}`, "")
	require.Equal(e.T, 200, w.Code, w.Body.String())
	w, env := e.do("POST", "/api/auth/login", `{"email":"`+email+`","password":"password1"}`, "")
	require.Equal(e.T, 200, w.Code, w.Body.String())
	var sess struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(e.T, json.Unmarshal(env.Data, &sess))
	return sess.AccessToken
}
