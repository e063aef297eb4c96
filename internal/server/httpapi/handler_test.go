package httpapi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/storeit-app/storeit/internal/common"
	"github.com/storeit-app/storeit/internal/dbx"
	"github.com/storeit-app/storeit/internal/logging"
	"github.com/storeit-app/storeit/internal/server/models"
	accountsrepo "github.com/storeit-app/storeit/internal/server/repositories/accounts"
	filesrepo "github.com/storeit-app/storeit/internal/server/repositories/files"
	otprepo "github.com/storeit-app/storeit/internal/server/repositories/otptokens"
	sessionsrepo "github.com/storeit-app/storeit/internal/server/repositories/sessions"
	usersrepo "github.com/storeit-app/storeit/internal/server/repositories/users"
	"github.com/storeit-app/storeit/internal/server/services"
)

// --- fakes ---

type noopLogger struct{}

func (noopLogger) Info(context.Context, string, ...any)  {}
func (noopLogger) Warn(context.Context, string, ...any)  {}
func (noopLogger) Error(context.Context, string, ...any) {}
func (l noopLogger) With(...any) logging.Logger          { return l }

type fakeUsersRepo struct {
	byEmailOut *models.User
	byEmailErr error

	byAccountOut *models.User
	byAccountErr error

	created []*models.User

	updateOut *models.User
	updateErr error
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.created = append(f.created, u)
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.byEmailErr != nil {
		return nil, f.byEmailErr
	}
	return f.byEmailOut, nil
}

func (f *fakeUsersRepo) GetByAccountID(ctx context.Context, accountID string) (*models.User, error) {
	if f.byAccountErr != nil {
		return nil, f.byAccountErr
	}
	return f.byAccountOut, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) Update(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if f.updateOut != nil {
		return f.updateOut, nil
	}
	return &models.User{ID: id}, nil
}

type fakeFilesRepo struct {
	created []*models.File

	byIDOut *models.File
	byIDErr error

	listOut []*models.File

	deleted []string

	summaryOut map[string]models.TypeUsage
}

func (f *fakeFilesRepo) Create(ctx context.Context, file *models.File) (*models.File, error) {
	f.created = append(f.created, file)
	return file, nil
}

func (f *fakeFilesRepo) GetByID(ctx context.Context, id string) (*models.File, error) {
	if f.byIDErr != nil {
		return nil, f.byIDErr
	}
	return f.byIDOut, nil
}

func (f *fakeFilesRepo) List(ctx context.Context, ownerID string, q filesrepo.ListQuery) ([]*models.File, error) {
	return f.listOut, nil
}

func (f *fakeFilesRepo) Rename(ctx context.Context, id string, name string) (*models.File, error) {
	return &models.File{ID: id, Name: name}, nil
}

func (f *fakeFilesRepo) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeFilesRepo) SummaryByType(ctx context.Context, ownerID string) (map[string]models.TypeUsage, error) {
	return f.summaryOut, nil
}

type fakeRepoManager struct {
	users *fakeUsersRepo
	files *fakeFilesRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository          { return m.users }
func (m *fakeRepoManager) Files(dbx.DBTX) filesrepo.Repository          { return m.files }
func (m *fakeRepoManager) Accounts(dbx.DBTX) accountsrepo.Repository    { return nil }
func (m *fakeRepoManager) OTPTokens(dbx.DBTX) otprepo.Repository        { return nil }
func (m *fakeRepoManager) Sessions(dbx.DBTX) sessionsrepo.Repository    { return nil }

type fakeIdentity struct {
	emailTokenOut string
	emailTokenErr error

	sessionOut *models.Session
	sessionErr error

	accountOut *models.Account
	accountErr error

	deleteErr error
	deleted   []string
}

func (f *fakeIdentity) CreateEmailToken(ctx context.Context, candidateID, email string) (string, error) {
	if f.emailTokenErr != nil {
		return "", f.emailTokenErr
	}
	if f.emailTokenOut != "" {
		return f.emailTokenOut, nil
	}
	return candidateID, nil
}

func (f *fakeIdentity) CreateSession(ctx context.Context, accountID, secret string) (*models.Session, error) {
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return f.sessionOut, nil
}

func (f *fakeIdentity) GetAccount(ctx context.Context, sessionSecret string) (*models.Account, error) {
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	return f.accountOut, nil
}

func (f *fakeIdentity) DeleteSession(ctx context.Context, sessionSecret string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, sessionSecret)
	return nil
}

type fakeBlobStore struct {
	uploads   []string
	uploadErr error
	deletes   []string
}

func (f *fakeBlobStore) Upload(ctx context.Context, id, contentType string, data []byte) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploads = append(f.uploads, id)
	return nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, id string) error {
	f.deletes = append(f.deletes, id)
	return nil
}

func (f *fakeBlobStore) ObjectURL(id string) string { return "http://blobs/" + id }

// --- helpers ---

type testEnv struct {
	rm    *fakeRepoManager
	id    *fakeIdentity
	blobs *fakeBlobStore
	srv   *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		rm:    &fakeRepoManager{users: &fakeUsersRepo{}, files: &fakeFilesRepo{}},
		id:    &fakeIdentity{},
		blobs: &fakeBlobStore{},
	}

	us := services.NewUserService(db, env.rm, env.id, env.blobs, noopLogger{})
	fs := services.NewFileService(db, env.rm, env.blobs, noopLogger{})

	s := NewHTTPServer(":0", noopLogger{}, us, fs)
	env.srv = httptest.NewServer(s.router())
	t.Cleanup(env.srv.Close)

	return env
}

// signIn configures the fakes so the cookie value "sekret" resolves to
// user u-1.
func (e *testEnv) signIn() {
	e.id.accountOut = &models.Account{ID: "acc-1", Email: "alice@example.com"}
	e.rm.users.byAccountOut = &models.User{ID: "u-1", FullName: "Alice", Email: "alice@example.com", AccountID: "acc-1"}
}

func (e *testEnv) do(t *testing.T, method, path string, body string, withCookie bool) *http.Response {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if withCookie {
		req.AddCookie(&http.Cookie{Name: common.SessionCookieName, Value: "sekret"})
	}

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do error: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return v
}

// --- auth ---

func TestSignUp(t *testing.T) {
	env := newTestEnv(t)
	env.rm.users.byEmailErr = common.ErrorNotFound
	env.id.emailTokenOut = "acc-1"

	resp := env.do(t, http.MethodPost, "/api/auth/sign-up", `{"fullName":"Alice","email":"alice@example.com"}`, false)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	body := decodeBody[map[string]any](t, resp)
	if body["accountId"] != "acc-1" {
		t.Fatalf("unexpected body: %v", body)
	}
	if len(env.rm.users.created) != 1 {
		t.Fatalf("want one user row, got %d", len(env.rm.users.created))
	}
}

func TestSignUp_InvalidPayload(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "bad email", body: `{"fullName":"Alice","email":"not-an-email"}`},
		{name: "short name", body: `{"fullName":"A","email":"alice@example.com"}`},
		{name: "long name", body: `{"fullName":"` + strings.Repeat("a", 51) + `","email":"alice@example.com"}`},
		{name: "garbage", body: `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/auth/sign-up", tt.body, false)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d", resp.StatusCode)
			}
		})
	}
	if len(env.id.deleted) != 0 && len(env.rm.users.created) != 0 {
		t.Fatal("invalid payloads must not reach the services")
	}
}

func TestSignIn_UnknownEmail(t *testing.T) {
	env := newTestEnv(t)
	env.rm.users.byEmailErr = common.ErrorNotFound

	resp := env.do(t, http.MethodPost, "/api/auth/sign-in", `{"email":"nobody@example.com"}`, false)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	body := decodeBody[map[string]any](t, resp)
	if body["accountId"] != nil {
		t.Fatalf("accountId must be null, got %v", body["accountId"])
	}
	if body["error"] != "User not found" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestVerify_SetsSessionCookie(t *testing.T) {
	env := newTestEnv(t)
	env.id.sessionOut = &models.Session{ID: "s-1", Secret: "sekret"}

	resp := env.do(t, http.MethodPost, "/api/auth/verify", `{"accountId":"acc-1","password":"123456"}`, false)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == common.SessionCookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("session cookie not set")
	}
	if cookie.Value != "sekret" || cookie.Path != "/" {
		t.Fatalf("unexpected cookie: %+v", cookie)
	}
	if !cookie.HttpOnly || !cookie.Secure || cookie.SameSite != http.SameSiteStrictMode {
		t.Fatalf("cookie must be HttpOnly+Secure+Strict: %+v", cookie)
	}

	body := decodeBody[map[string]string](t, resp)
	if body["sessionId"] != "s-1" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestVerify_WrongCode(t *testing.T) {
	env := newTestEnv(t)
	env.id.sessionErr = common.ErrOtpRedemption

	resp := env.do(t, http.MethodPost, "/api/auth/verify", `{"accountId":"acc-1","password":"000000"}`, false)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(resp.Cookies()) != 0 {
		t.Fatal("no cookie may be set on a failed redemption")
	}
}

func TestSignOut_Redirects(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/auth/sign-out", "", true)
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != common.SignInPath {
		t.Fatalf("Location = %q", loc)
	}
	if len(env.id.deleted) != 1 {
		t.Fatalf("session not destroyed: %v", env.id.deleted)
	}

	var cleared bool
	for _, c := range resp.Cookies() {
		if c.Name == common.SessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("session cookie not cleared")
	}
}

func TestSignOut_RedirectsEvenWhenDeleteFails(t *testing.T) {
	env := newTestEnv(t)
	env.id.deleteErr = errors.New("db down")

	resp := env.do(t, http.MethodPost, "/api/auth/sign-out", "", true)
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != common.SignInPath {
		t.Fatalf("Location = %q", loc)
	}
}

// --- users ---

func TestCurrentUser_SignedOutIsNull(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/users/me", "", false)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body *map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if body != nil {
		t.Fatalf("want null, got %v", *body)
	}
}

func TestCurrentUser_SignedIn(t *testing.T) {
	env := newTestEnv(t)
	env.signIn()

	resp := env.do(t, http.MethodGet, "/api/users/me", "", true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	body := decodeBody[map[string]any](t, resp)
	if body["id"] != "u-1" || body["fullName"] != "Alice" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func multipartBody(t *testing.T, field, filename, contentType string, data []byte, extra map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range extra {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if field != "" {
		h := make(map[string][]string)
		h["Content-Disposition"] = []string{`form-data; name="` + field + `"; filename="` + filename + `"`}
		h["Content-Type"] = []string{contentType}
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return buf, w.FormDataContentType()
}

func (e *testEnv) doMultipart(t *testing.T, method, path string, body *bytes.Buffer, contentType string, withCookie bool) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, e.srv.URL+path, body)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	req.Header.Set("Content-Type", contentType)
	if withCookie {
		req.AddCookie(&http.Cookie{Name: common.SessionCookieName, Value: "sekret"})
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do error: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	env.signIn()
	env.rm.users.updateOut = &models.User{ID: "u-1", FullName: "Alice Smith"}

	body, ct := multipartBody(t, "avatar", "me.png", "image/png", []byte("img"), map[string]string{"fullName": "Alice Smith"})
	resp := env.doMultipart(t, http.MethodPatch, "/api/users/u-1", body, ct, true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	got := decodeBody[map[string]any](t, resp)
	if got["fullName"] != "Alice Smith" {
		t.Fatalf("unexpected body: %v", got)
	}
	if len(env.blobs.uploads) != 1 {
		t.Fatalf("want one avatar upload, got %d", len(env.blobs.uploads))
	}
	if len(env.blobs.deletes) != 0 {
		t.Fatal("the previous avatar blob must be left in place")
	}
}

func TestUpdateProfile_RejectsNonImage(t *testing.T) {
	env := newTestEnv(t)
	env.signIn()

	body, ct := multipartBody(t, "avatar", "evil.exe", "application/octet-stream", []byte("x"), nil)
	resp := env.doMultipart(t, http.MethodPatch, "/api/users/u-1", body, ct, true)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(env.blobs.uploads) != 0 {
		t.Fatal("a rejected avatar must never reach storage")
	}
}

func TestUpdateProfile_ForeignUser(t *testing.T) {
	env := newTestEnv(t)
	env.signIn()

	body, ct := multipartBody(t, "", "", "", nil, map[string]string{"fullName": "Mallory"})
	resp := env.doMultipart(t, http.MethodPatch, "/api/users/u-2", body, ct, true)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

// --- files ---

func TestFiles_RequireSession(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/files/", "", false)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestUpload(t *testing.T) {
	env := newTestEnv(t)
	env.signIn()

	body, ct := multipartBody(t, "file", "report.pdf", "application/pdf", []byte("payload"), nil)
	resp := env.doMultipart(t, http.MethodPost, "/api/files/", body, ct, true)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	got := decodeBody[map[string]any](t, resp)
	if got["name"] != "report.pdf" || got["type"] != "document" || got["ownerId"] != "u-1" {
		t.Fatalf("unexpected body: %v", got)
	}
	if len(env.blobs.uploads) != 1 {
		t.Fatalf("want one blob upload, got %d", len(env.blobs.uploads))
	}
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t)
	env.signIn()
	env.rm.files.listOut = []*models.File{{ID: "f-1", Name: "report.pdf"}}
	env.rm.files.summaryOut = map[string]models.TypeUsage{"document": {Size: 7, Count: 1}}

	resp := env.do(t, http.MethodGet, "/api/files/?type=document&sort=name-asc&limit=10", "", true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	got := decodeBody[map[string]any](t, resp)
	files, ok := got["files"].([]any)
	if !ok || len(files) != 1 {
		t.Fatalf("unexpected files: %v", got["files"])
	}
	usage, ok := got["usage"].(map[string]any)
	if !ok || usage["used"] != float64(7) {
		t.Fatalf("unexpected usage: %v", got["usage"])
	}
}

func TestRename(t *testing.T) {
	env := newTestEnv(t)
	env.signIn()
	env.rm.files.byIDOut = &models.File{ID: "f-1", OwnerID: "u-1", Name: "report.pdf", Extension: "pdf"}

	resp := env.do(t, http.MethodPatch, "/api/files/f-1", `{"name":"q3-report"}`, true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	got := decodeBody[map[string]any](t, resp)
	if got["name"] != "q3-report.pdf" {
		t.Fatalf("unexpected body: %v", got)
	}
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t)
	env.signIn()
	env.rm.files.byIDOut = &models.File{ID: "f-1", OwnerID: "u-1", BlobID: "b-1"}

	resp := env.do(t, http.MethodDelete, "/api/files/f-1", "", true)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(env.rm.files.deleted) != 1 || len(env.blobs.deletes) != 1 {
		t.Fatalf("row and blob must both be removed: rows=%v blobs=%v", env.rm.files.deleted, env.blobs.deletes)
	}
}

func TestDelete_ForeignFile(t *testing.T) {
	env := newTestEnv(t)
	env.signIn()
	env.rm.files.byIDOut = &models.File{ID: "f-1", OwnerID: "u-2", BlobID: "b-1"}

	resp := env.do(t, http.MethodDelete, "/api/files/f-1", "", true)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(env.rm.files.deleted) != 0 {
		t.Fatal("foreign files must not be deleted")
	}
}
