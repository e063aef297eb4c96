// Package httpapi exposes the user and file operations over HTTP. The
// browser talks to it with JSON and multipart requests; authentication
// rides in the session cookie.
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/storeit-app/storeit/internal/logging"
	"github.com/storeit-app/storeit/internal/server/services"
)

type HTTPServer struct {
	address  string
	users    *services.UserService
	files    *services.FileService
	logger   logging.Logger
	validate *validator.Validate
}

func NewHTTPServer(a string, l logging.Logger, us *services.UserService, fs *services.FileService) *HTTPServer {
	return &HTTPServer{
		address:  a,
		logger:   l.With("module", "http_server"),
		users:    us,
		files:    fs,
		validate: validator.New(),
	}
}

func (s *HTTPServer) router() chi.Router {
	r := chi.NewRouter()
	r.Use(s.logRequests)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/sign-up", s.handleSignUp)
			r.Post("/sign-in", s.handleSignIn)
			r.Post("/verify", s.handleVerify)
			r.Post("/sign-out", s.handleSignOut)
		})

		r.Get("/users/me", s.handleCurrentUser)
		r.Patch("/users/{userID}", s.handleUpdateProfile)

		r.Route("/files", func(r chi.Router) {
			r.Use(s.requireUser)
			r.Post("/", s.handleUpload)
			r.Get("/", s.handleDashboard)
			r.Patch("/{fileID}", s.handleRename)
			r.Delete("/{fileID}", s.handleDelete)
		})
	})

	return r
}

func (s *HTTPServer) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:    s.address,
		Handler: s.router(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
