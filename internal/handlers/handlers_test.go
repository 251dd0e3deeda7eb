package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/siddhantsaxena45/AI-Interviewer/internal/middleware"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/models"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/services"
)

type mockSessions struct {
	createFn func(ctx context.Context, userID primitive.ObjectID, req models.CreateSessionRequest) (*models.Session, error)
	listFn   func(ctx context.Context, userID primitive.ObjectID) ([]models.Session, error)
	getFn    func(ctx context.Context, userID primitive.ObjectID, id string) (*models.Session, error)
	deleteFn func(ctx context.Context, userID primitive.ObjectID, id string) error
	submitFn func(ctx context.Context, userID primitive.ObjectID, id string, in services.SubmitInput) (int, error)
	endFn    func(ctx context.Context, userID primitive.ObjectID, id string) (*models.Session, error)
}

func (m *mockSessions) Create(ctx context.Context, userID primitive.ObjectID, req models.CreateSessionRequest) (*models.Session, error) {
	if m.createFn == nil {
		panic("unexpected call to Create")
	}
	return m.createFn(ctx, userID, req)
}

func (m *mockSessions) List(ctx context.Context, userID primitive.ObjectID) ([]models.Session, error) {
	if m.listFn == nil {
		panic("unexpected call to List")
	}
	return m.listFn(ctx, userID)
}

func (m *mockSessions) Get(ctx context.Context, userID primitive.ObjectID, id string) (*models.Session, error) {
	if m.getFn == nil {
		panic("unexpected call to Get")
	}
	return m.getFn(ctx, userID, id)
}

func (m *mockSessions) Delete(ctx context.Context, userID primitive.ObjectID, id string) error {
	if m.deleteFn == nil {
		panic("unexpected call to Delete")
	}
	return m.deleteFn(ctx, userID, id)
}

func (m *mockSessions) Submit(ctx context.Context, userID primitive.ObjectID, id string, in services.SubmitInput) (int, error) {
	if m.submitFn == nil {
		panic("unexpected call to Submit")
	}
	return m.submitFn(ctx, userID, id, in)
}

func (m *mockSessions) End(ctx context.Context, userID primitive.ObjectID, id string) (*models.Session, error) {
	if m.endFn == nil {
		panic("unexpected call to End")
	}
	return m.endFn(ctx, userID, id)
}

type mockAccounts struct {
	registerFn      func(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	loginFn         func(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	googleLoginFn   func(ctx context.Context, req models.GoogleLoginRequest) (*models.AuthResponse, error)
	profileFn       func(user *models.User) (*models.AuthResponse, error)
	updateProfileFn func(ctx context.Context, userID primitive.ObjectID, req models.UpdateProfileRequest) (*models.AuthResponse, error)
}

func (m *mockAccounts) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	if m.registerFn == nil {
		panic("unexpected call to Register")
	}
	return m.registerFn(ctx, req)
}

func (m *mockAccounts) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	if m.loginFn == nil {
		panic("unexpected call to Login")
	}
	return m.loginFn(ctx, req)
}

func (m *mockAccounts) GoogleLogin(ctx context.Context, req models.GoogleLoginRequest) (*models.AuthResponse, error) {
	if m.googleLoginFn == nil {
		panic("unexpected call to GoogleLogin")
	}
	return m.googleLoginFn(ctx, req)
}

func (m *mockAccounts) Profile(user *models.User) (*models.AuthResponse, error) {
	if m.profileFn == nil {
		panic("unexpected call to Profile")
	}
	return m.profileFn(user)
}

func (m *mockAccounts) UpdateProfile(ctx context.Context, userID primitive.ObjectID, req models.UpdateProfileRequest) (*models.AuthResponse, error) {
	if m.updateProfileFn == nil {
		panic("unexpected call to UpdateProfile")
	}
	return m.updateProfileFn(ctx, userID, req)
}

var testUser = &models.User{ID: primitive.NewObjectID(), Name: "Ann", Email: "ann@example.com"}

// withTestUser stands in for the auth middleware.
func withTestUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(middleware.WithUser(r.Context(), testUser)))
	})
}

func decodeError(t *testing.T, body io.Reader) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
