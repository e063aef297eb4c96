package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/storeit-app/storeit/internal/common"
	"github.com/storeit-app/storeit/internal/server/models"
	filesrepo "github.com/storeit-app/storeit/internal/server/repositories/files"
	"github.com/storeit-app/storeit/internal/server/services"
)

// --- request/response DTOs ---

type signUpRequest struct {
	FullName string `json:"fullName" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
}

type signInRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type verifyRequest struct {
	AccountID string `json:"accountId" validate:"required"`
	Password  string `json:"password" validate:"required"`
}

type renameRequest struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
}

type accountResponse struct {
	AccountID *string `json:"accountId"`
	Error     string  `json:"error,omitempty"`
}

type userResponse struct {
	ID        string    `json:"id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar"`
	AccountID string    `json:"accountId"`
	CreatedAt time.Time `json:"createdAt"`
}

type fileResponse struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	Type      string    `json:"type"`
	Extension string    `json:"extension"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}

type typeUsageResponse struct {
	Size   int64     `json:"size"`
	Count  int64     `json:"count"`
	Latest time.Time `json:"latest"`
}

type usageResponse struct {
	Used   int64                        `json:"used"`
	All    int64                        `json:"all"`
	ByType map[string]typeUsageResponse `json:"byType"`
}

type dashboardResponse struct {
	Files []fileResponse `json:"files"`
	Usage usageResponse  `json:"usage"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		FullName:  u.FullName,
		Email:     u.Email,
		Avatar:    u.Avatar,
		AccountID: u.AccountID,
		CreatedAt: u.CreatedAt,
	}
}

func toFileResponse(f *models.File) fileResponse {
	return fileResponse{
		ID:        f.ID,
		OwnerID:   f.OwnerID,
		Name:      f.Name,
		Size:      f.Size,
		Type:      f.Type,
		Extension: f.Extension,
		URL:       f.URL,
		CreatedAt: f.CreatedAt,
	}
}

func toUsageResponse(u *models.SpaceUsage) usageResponse {
	out := usageResponse{
		Used:   u.Used,
		All:    u.All,
		ByType: make(map[string]typeUsageResponse, len(u.ByType)),
	}
	for t, tu := range u.ByType {
		out.ByType[t] = typeUsageResponse{Size: tu.Size, Count: tu.Count, Latest: tu.Latest}
	}
	return out
}

// --- plumbing ---

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error(context.Background(), "response encoding error", "error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrOtpRedemption):
		status = http.StatusUnauthorized
	case errors.Is(err, common.ErrorNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrFileTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, common.ErrNotAnImage):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrOtpDelivery):
		status = http.StatusBadGateway
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// decodeAndValidate reads a JSON body into v and runs its validate tags.
func (s *HTTPServer) decodeAndValidate(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return s.validate.Struct(v)
}

func sessionCookie(secret string) *http.Cookie {
	return &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    secret,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

func expiredSessionCookie() *http.Cookie {
	c := sessionCookie("")
	c.MaxAge = -1
	return c
}

// --- auth handlers ---

func (s *HTTPServer) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	accountID, err := s.users.CreateAccount(r.Context(), req.FullName, req.Email)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, accountResponse{AccountID: &accountID})
}

func (s *HTTPServer) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	res, err := s.users.SignIn(r.Context(), req.Email)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if res.Err != "" {
		s.writeJSON(w, http.StatusOK, accountResponse{Error: res.Err})
		return
	}
	s.writeJSON(w, http.StatusOK, accountResponse{AccountID: &res.AccountID})
}

func (s *HTTPServer) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	session, err := s.users.VerifySecret(r.Context(), req.AccountID, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}

	http.SetCookie(w, sessionCookie(session.Secret))
	s.writeJSON(w, http.StatusOK, map[string]string{"sessionId": session.ID})
}

// handleSignOut destroys the session and clears the cookie. The redirect
// to the sign-in page is deferred so it fires on every exit path, a
// failed session deletion included.
func (s *HTTPServer) handleSignOut(w http.ResponseWriter, r *http.Request) {
	defer http.Redirect(w, r, common.SignInPath, http.StatusFound)

	secret := sessionSecret(r)
	if secret == "" {
		return
	}
	if err := s.users.SignOut(r.Context(), secret); err != nil {
		return
	}
	http.SetCookie(w, expiredSessionCookie())
}

// --- user handlers ---

// handleCurrentUser renders the signed-in user, or a JSON null for any
// kind of signed-out or broken session.
func (s *HTTPServer) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	user := s.users.CurrentUser(r.Context(), sessionSecret(r))
	if user == nil {
		s.writeJSON(w, http.StatusOK, nil)
		return
	}
	s.writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *HTTPServer) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(common.MaxUploadSize); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	upd := services.ProfileUpdate{FullName: r.FormValue("fullName")}
	if err := s.validate.Var(upd.FullName, "omitempty,min=2,max=50"); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if file, header, err := r.FormFile("avatar"); err == nil {
		defer file.Close()

		contentType := header.Header.Get("Content-Type")
		if !strings.HasPrefix(contentType, "image/") {
			s.writeError(w, common.ErrNotAnImage)
			return
		}
		if header.Size > common.MaxUploadSize {
			s.writeError(w, common.ErrFileTooLarge)
			return
		}

		data, err := io.ReadAll(file)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		upd.Avatar = &services.AvatarUpload{ContentType: contentType, Data: data}
	}

	user, err := s.users.UpdateProfile(r.Context(), sessionSecret(r), chi.URLParam(r, "userID"), upd)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, toUserResponse(user))
}

// --- file handlers ---

func (s *HTTPServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	if err := r.ParseMultipartForm(common.MaxUploadSize); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	defer file.Close()

	if header.Size > common.MaxUploadSize {
		s.writeError(w, common.ErrFileTooLarge)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	created, err := s.files.Upload(r.Context(), user.ID, header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, toFileResponse(created))
}

func listQueryFromRequest(r *http.Request) filesrepo.ListQuery {
	q := filesrepo.ListQuery{
		Search: r.URL.Query().Get("query"),
		Sort:   r.URL.Query().Get("sort"),
	}
	if types := r.URL.Query().Get("type"); types != "" {
		q.Types = strings.Split(types, ",")
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 {
		q.Limit = limit
	}
	return q
}

func (s *HTTPServer) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	q := listQueryFromRequest(r)
	if q.Limit == 0 {
		q.Limit = services.RecentFilesLimit
	}

	d, err := s.files.Dashboard(r.Context(), user.ID, q)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := dashboardResponse{
		Files: make([]fileResponse, 0, len(d.Files)),
		Usage: toUsageResponse(d.Usage),
	}
	for _, f := range d.Files {
		resp.Files = append(resp.Files, toFileResponse(f))
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleRename(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	var req renameRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	file, err := s.files.Rename(r.Context(), user.ID, chi.URLParam(r, "fileID"), req.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, toFileResponse(file))
}

func (s *HTTPServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	if err := s.files.Delete(r.Context(), user.ID, chi.URLParam(r, "fileID")); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
