// Package gatewaytest runs an in-memory auth API for tests of code that
// talks to it through gateway.Client.
package gatewaytest

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ErlanBelekov/vsm-auth/internal/gateway"
	"github.com/ErlanBelekov/vsm-auth/internal/requestid"
	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"
	"golang.org/x/crypto/bcrypt"
)

const (
	msgBadRequest    = "Invalid request"
	msgCodeInvalid   = "Invalid or expired OTP"
	msgNoChallenge   = "No OTP pending for this email"
	msgUserNotFound  = "User not found"
	msgUserExists    = "User already exists"
	msgAdminRejected = "Invalid email or password"
	msgInternal      = "Internal server error"
)

// AdminRedirect is the redirectUrl sent on a successful admin login.
const AdminRedirect = "/admin/dashboard"

type Server struct {
	URL string

	tb     testing.TB
	srv    *httptest.Server
	otp    *issuer
	logger *slog.Logger

	mu       sync.Mutex
	admins   map[string][]byte // email -> bcrypt hash
	requests []Request
}

// Request is what the server saw of one call.
type Request struct {
	Path      string
	RequestID string
	Bearer    string
}

func NewServer(tb testing.TB, logger *slog.Logger) *Server {
	tb.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{
		tb:     tb,
		otp:    newIssuer([]byte("gatewaytest-signing-key-not-secret")),
		logger: logger.With("component", "fake_auth_api"),
		admins: make(map[string][]byte),
	}
	s.srv = httptest.NewServer(s.router())
	s.URL = s.srv.URL
	tb.Cleanup(s.srv.Close)
	return s
}

// AddUser registers email so it can sign in.
func (s *Server) AddUser(email, name string) {
	s.otp.addUser(email, name)
}

func (s *Server) AddAdmin(email, password string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		s.tb.Fatalf("hash admin password: %v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins[email] = hash
}

// Registered reports whether email has completed registration.
func (s *Server) Registered(email string) bool {
	return s.otp.registered(email)
}

// Code is the last code sent to email.
func (s *Server) Code(email string) (string, bool) {
	return s.otp.lastCode(email)
}

func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestID())
	r.Use(sloggin.New(s.logger))

	r.HEAD("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST(gateway.EndpointLoginOTP.Path, s.requestLoginOTP)
	r.POST(gateway.EndpointRegisterOTP.Path, s.requestRegisterOTP)
	r.POST(gateway.EndpointLoginVerify.Path, s.verifyLogin)
	r.POST(gateway.EndpointRegisterVerify.Path, s.verifyRegister)
	r.POST(gateway.EndpointResendOTP.Path, s.resend)
	r.POST(gateway.EndpointAdminLogin.Path, s.adminLogin)
	return r
}

// requestID keeps the caller's X-Request-ID, or makes one, and records the
// call.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestid.Header)
		if id == "" {
			id = requestid.New()
		}
		c.Request = c.Request.WithContext(requestid.WithRequestID(c.Request.Context(), id))
		c.Header(requestid.Header, id)

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Path:      c.Request.URL.Path,
			RequestID: id,
			Bearer:    strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "),
		})
		s.mu.Unlock()
		c.Next()
	}
}

type emailBody struct {
	Email string `json:"email" binding:"required,email"`
}

type registerBody struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	MobileNumber string `json:"mobileNumber"`
}

type verifyBody struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,len=4,numeric"`
}

type adminBody struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"rememberMe"`
}

func reply(c *gin.Context, body gin.H) {
	body["success"] = true
	c.JSON(http.StatusOK, body)
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "message": msg})
}

// failFor maps issuer errors to the reply the real API gives.
func (s *Server) failFor(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errCodeInvalid):
		fail(c, http.StatusUnauthorized, msgCodeInvalid)
	case errors.Is(err, errNoChallenge):
		fail(c, http.StatusBadRequest, msgNoChallenge)
	case errors.Is(err, errUserNotFound):
		fail(c, http.StatusNotFound, msgUserNotFound)
	case errors.Is(err, errUserExists):
		fail(c, http.StatusConflict, msgUserExists)
	default:
		s.logger.Error("fake auth api", "path", c.FullPath(), "error", err)
		fail(c, http.StatusInternalServerError, msgInternal)
	}
}

// POST /api/auth/login/otp
func (s *Server) requestLoginOTP(c *gin.Context) {
	var req emailBody
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, msgBadRequest)
		return
	}
	if err := s.otp.startLogin(req.Email); err != nil {
		s.failFor(c, err)
		return
	}
	reply(c, gin.H{"message": "OTP sent to your email"})
}

// POST /api/auth/register/otp
func (s *Server) requestRegisterOTP(c *gin.Context) {
	var req registerBody
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, msgBadRequest)
		return
	}
	if err := s.otp.startRegister(req.Name, req.Email, req.MobileNumber); err != nil {
		s.failFor(c, err)
		return
	}
	reply(c, gin.H{"message": "OTP sent to your email"})
}

// POST /api/auth/login/verify
// The token comes back as {"data": {"accessToken": "<jwt>"}}.
func (s *Server) verifyLogin(c *gin.Context) {
	var req verifyBody
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, msgBadRequest)
		return
	}
	if _, err := s.otp.claim(req.Email, req.OTP, purposeLogin); err != nil {
		s.failFor(c, err)
		return
	}
	token, err := s.otp.sign(req.Email)
	if err != nil {
		s.failFor(c, err)
		return
	}
	reply(c, gin.H{
		"message": "Login successful",
		"data":    gin.H{"accessToken": token, "tokenType": "Bearer"},
	})
}

// POST /api/auth/register/verify
// The token comes back as a bare string in "data".
func (s *Server) verifyRegister(c *gin.Context) {
	var req verifyBody
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, msgBadRequest)
		return
	}
	if _, err := s.otp.claim(req.Email, req.OTP, purposeRegister); err != nil {
		s.failFor(c, err)
		return
	}
	token, err := s.otp.sign(req.Email)
	if err != nil {
		s.failFor(c, err)
		return
	}
	reply(c, gin.H{"message": "Registration successful", "data": token})
}

// POST /api/auth/otp/resend
func (s *Server) resend(c *gin.Context) {
	var req emailBody
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, msgBadRequest)
		return
	}
	if err := s.otp.reissue(req.Email); err != nil {
		s.failFor(c, err)
		return
	}
	reply(c, gin.H{"message": "A new OTP has been sent"})
}

// POST /auth/admin/login
func (s *Server) adminLogin(c *gin.Context) {
	var req adminBody
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, msgBadRequest)
		return
	}

	s.mu.Lock()
	hash, known := s.admins[req.Email]
	s.mu.Unlock()
	if !known || bcrypt.CompareHashAndPassword(hash, []byte(req.Password)) != nil {
		fail(c, http.StatusUnauthorized, msgAdminRejected)
		return
	}
	reply(c, gin.H{"redirectUrl": AdminRedirect})
}
