package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gdg-garage/ecsnova-registration-api/internal/auth"
	"github.com/gdg-garage/ecsnova-registration-api/internal/config"
	"github.com/gdg-garage/ecsnova-registration-api/internal/database"
	"github.com/gdg-garage/ecsnova-registration-api/internal/models"
	"github.com/gdg-garage/ecsnova-registration-api/internal/registration"
	"github.com/gdg-garage/ecsnova-registration-api/internal/uploads"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testServer struct {
	handler http.Handler
	db      *gorm.DB
	store   *uploads.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		JWTSecret:         "test-secret",
		DashboardPassword: "ecs nova",
		MaxUploadBytes:    1 << 20,
		Events:            config.DefaultEvents,
	}

	store, err := uploads.NewStore(filepath.Join(t.TempDir(), "uploads"), db, nil, nil)
	require.NoError(t, err)

	authHandler := auth.NewAuthHandler(cfg, nil)
	registrationHandler := NewRegistrationHandler(registration.NewService(db, store, nil, nil, nil), nil)
	uploadHandler := NewUploadHandler(store, "", nil)

	r := chi.NewRouter()
	RegisterRoutes(r, cfg, authHandler, registrationHandler, uploadHandler, nil)

	return &testServer{handler: r, db: db, store: store}
}

func (s *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) postJSON(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return s.do(t, req)
}

func (s *testServer) get(t *testing.T, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	}
	return s.do(t, req)
}

func (s *testServer) login(t *testing.T) string {
	t.Helper()
	rr := s.postJSON(t, "/api/dashboard/login", map[string]string{"password": "ecs nova"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c.Value
		}
	}
	t.Fatal("login did not set the auth cookie")
	return ""
}

func (s *testServer) upload(t *testing.T, field, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = io.WriteString(fw, content)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file here"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Host = "reg.example.com"
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.do(t, req)
}

func scenarioBody() map[string]any {
	return map[string]any{
		"name":              "A",
		"college_name":      "X",
		"email":             "a@x.com",
		"course_of_study":   "CS",
		"whatsapp_number":   "9876543210",
		"selected_events":   []string{"Quiz"},
		"transaction_id":    "TXN1",
		"payment_proof_url": "http://h/u/f.pdf",
	}
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return body.Error
}

func jsonKeys(t *testing.T, raw []byte) []string {
	t.Helper()
	var obj map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &obj), string(raw))
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	return keys
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rr := s.get(t, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"Server is running"}`, rr.Body.String())
}

func TestEvents(t *testing.T) {
	s := newTestServer(t)
	rr := s.get(t, "/api/events", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Events []string `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Len(t, body.Events, 6)
	assert.Contains(t, body.Events, "Quiz")
}

func TestHandleRegister_Scenario(t *testing.T) {
	s := newTestServer(t)

	rr := s.postJSON(t, "/api/register", scenarioBody())
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created struct {
		Message      string `json:"message"`
		Registration struct {
			ID    string `json:"id"`
			Email string `json:"email"`
			Name  string `json:"name"`
		} `json:"registration"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "Registration successful", created.Message)
	assert.Equal(t, "a@x.com", created.Registration.Email)
	assert.Equal(t, "A", created.Registration.Name)
	assert.NotEmpty(t, created.Registration.ID)
	assert.ElementsMatch(t, []string{"message", "registration"}, jsonKeys(t, rr.Body.Bytes()))
	assert.NotContains(t, rr.Body.String(), "payment_proof_url")

	repeat := scenarioBody()
	repeat["email"] = "b@x.com"
	rr = s.postJSON(t, "/api/register", repeat)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "transaction_id already registered", errorMessage(t, rr))
	assert.ElementsMatch(t, []string{"error"}, jsonKeys(t, rr.Body.Bytes()))

	sameEmail := scenarioBody()
	sameEmail["transaction_id"] = "TXN2"
	rr = s.postJSON(t, "/api/register", sameEmail)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "email already registered", errorMessage(t, rr))
}

func TestHandleRegister_Rejections(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name    string
		mutate  func(b map[string]any)
		message string
	}{
		{"MissingName", func(b map[string]any) { delete(b, "name") }, "All fields are required"},
		{"EmptyTransactionID", func(b map[string]any) { b["transaction_id"] = "" }, "All fields are required"},
		{"MissingEvents", func(b map[string]any) { delete(b, "selected_events") }, "All fields are required"},
		{"EmptyEvents", func(b map[string]any) { b["selected_events"] = []string{} }, "selected_events: At least one event must be selected"},
		{"NineDigitWhatsapp", func(b map[string]any) { b["whatsapp_number"] = "987654321" }, "whatsapp_number: Please provide a valid 10-digit phone number"},
		{"ElevenDigitWhatsapp", func(b map[string]any) { b["whatsapp_number"] = "98765432101" }, "whatsapp_number: Please provide a valid 10-digit phone number"},
		{"BadEmail", func(b map[string]any) { b["email"] = "nope" }, "email: Please provide a valid email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := scenarioBody()
			tt.mutate(body)
			rr := s.postJSON(t, "/api/register", body)
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			assert.Equal(t, tt.message, errorMessage(t, rr))
		})
	}

	var count int64
	s.db.Model(&models.Registration{}).Count(&count)
	assert.Zero(t, count)
}

func TestHandleRegister_BodyShape(t *testing.T) {
	s := newTestServer(t)

	t.Run("UnknownFieldsIgnored", func(t *testing.T) {
		body := scenarioBody()
		body["referral"] = "friend"
		rr := s.postJSON(t, "/api/register", body)
		assert.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	})

	t.Run("WrongTypeIsBadRequest", func(t *testing.T) {
		body := scenarioBody()
		body["email"] = "n@x.com"
		body["transaction_id"] = "TXN-NUM"
		body["whatsapp_number"] = 9876543210
		rr := s.postJSON(t, "/api/register", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
		assert.NotEmpty(t, errorMessage(t, rr))
	})
}

func TestHandleUpload(t *testing.T) {
	s := newTestServer(t)

	t.Run("SameNameTwice", func(t *testing.T) {
		var urls []string
		for _, content := range []string{"first proof", "second proof"} {
			rr := s.upload(t, "file", "proof.pdf", content)
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

			var body struct {
				URL string `json:"url"`
			}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.True(t, strings.HasPrefix(body.URL, "http://reg.example.com/uploads/"), body.URL)
			assert.True(t, strings.HasSuffix(body.URL, "-proof.pdf"), body.URL)
			urls = append(urls, body.URL)
		}
		require.NotEqual(t, urls[0], urls[1])

		for i, want := range []string{"first proof", "second proof"} {
			u, err := url.Parse(urls[i])
			require.NoError(t, err)
			rr := s.get(t, u.Path, "")
			require.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, want, rr.Body.String())
		}
	})

	t.Run("NoFile", func(t *testing.T) {
		rr := s.upload(t, "", "", "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "No file uploaded", errorMessage(t, rr))
	})

	t.Run("UnknownFile", func(t *testing.T) {
		rr := s.get(t, "/uploads/does-not-exist.pdf", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestUploadThenRegisterClaimsFile(t *testing.T) {
	s := newTestServer(t)

	rr := s.upload(t, "file", "receipt.png", "png-bytes")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var uploaded struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &uploaded))

	body := scenarioBody()
	body["payment_proof_url"] = uploaded.URL
	rr = s.postJSON(t, "/api/register", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var upload models.Upload
	require.NoError(t, s.db.First(&upload, "filename = ?", uploads.NameFromURL(uploaded.URL)).Error)
	assert.NotNil(t, upload.RegistrationID)
}

func TestDashboardAccess(t *testing.T) {
	s := newTestServer(t)

	rr := s.postJSON(t, "/api/register", scenarioBody())
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created struct {
		Registration struct {
			ID string `json:"id"`
		} `json:"registration"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	t.Run("ListingRequiresSession", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, s.get(t, "/api/registrations", "").Code)
		assert.Equal(t, http.StatusUnauthorized, s.get(t, "/api/registrations/"+created.Registration.ID, "").Code)
		assert.Equal(t, http.StatusUnauthorized, s.get(t, "/api/registrations", "forged").Code)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		rr := s.postJSON(t, "/api/dashboard/login", map[string]string{"password": "wrong"})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "Incorrect password", errorMessage(t, rr))
	})

	token := s.login(t)

	t.Run("ListOmitsPaymentProof", func(t *testing.T) {
		rr := s.get(t, "/api/registrations", token)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var list []map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
		require.Len(t, list, 1)
		assert.NotContains(t, list[0], "payment_proof_url")
		assert.Equal(t, "a@x.com", list[0]["email"])
	})

	t.Run("GetReturnsFullRecord", func(t *testing.T) {
		rr := s.get(t, "/api/registrations/"+created.Registration.ID, token)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var reg map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &reg))
		assert.Equal(t, "http://h/u/f.pdf", reg["payment_proof_url"])
		assert.Equal(t, "TXN1", reg["transaction_id"])
		assert.Equal(t, []any{"Quiz"}, reg["selected_events"])
		assert.ElementsMatch(t, []string{
			"id", "name", "college_name", "email", "course_of_study", "whatsapp_number",
			"selected_events", "transaction_id", "payment_proof_url", "created_at",
		}, jsonKeys(t, rr.Body.Bytes()))
	})

	t.Run("GetUnknown", func(t *testing.T) {
		rr := s.get(t, "/api/registrations/7f1b5a52-3c55-4f0e-9d8e-6a0f2b9c1d11", token)
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "Registration not found", errorMessage(t, rr))
	})

	t.Run("GetMalformedID", func(t *testing.T) {
		rr := s.get(t, "/api/registrations/not-a-uuid", token)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Me", func(t *testing.T) {
		rr := s.get(t, "/api/dashboard/me", token)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"subject":"organizer"`)
	})

	t.Run("Logout", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/dashboard/logout", nil)
		rr := s.do(t, req)
		assert.Equal(t, http.StatusNoContent, rr.Code)
	})
}
