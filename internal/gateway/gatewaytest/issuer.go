package gatewaytest

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultCodeTTL = 5 * time.Minute
	defaultJWTTTL  = 24 * time.Hour
)

var (
	errCodeInvalid  = errors.New("code is invalid or expired")
	errNoChallenge  = errors.New("no pending code")
	errUserNotFound = errors.New("user not found")
	errUserExists   = errors.New("user already exists")
)

type purpose int

const (
	purposeLogin purpose = iota
	purposeRegister
)

type challenge struct {
	hash      string
	purpose   purpose
	name      string
	mobile    string
	expiresAt time.Time
}

// issuer hands out single-use numeric codes and signs a JWT once one is
// claimed. Only code hashes are kept; the last raw code per address is the
// mailbox tests read from.
type issuer struct {
	mu      sync.Mutex
	jwtKey  []byte
	codeTTL time.Duration
	jwtTTL  time.Duration
	now     func() time.Time

	users   map[string]string // email -> name
	pending map[string]challenge
	mailbox map[string]string
}

func newIssuer(jwtKey []byte) *issuer {
	return &issuer{
		jwtKey:  jwtKey,
		codeTTL: defaultCodeTTL,
		jwtTTL:  defaultJWTTTL,
		now:     time.Now,
		users:   make(map[string]string),
		pending: make(map[string]challenge),
		mailbox: make(map[string]string),
	}
}

func (i *issuer) addUser(email, name string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.users[email] = name
}

func (i *issuer) registered(email string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, ok := i.users[email]
	return ok
}

func (i *issuer) startLogin(email string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.users[email]; !ok {
		return errUserNotFound
	}
	return i.issueLocked(email, challenge{purpose: purposeLogin})
}

func (i *issuer) startRegister(name, email, mobile string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.users[email]; ok {
		return errUserExists
	}
	return i.issueLocked(email, challenge{purpose: purposeRegister, name: name, mobile: mobile})
}

// reissue replaces the pending code for email with a fresh one.
func (i *issuer) reissue(email string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	ch, ok := i.pending[email]
	if !ok {
		return errNoChallenge
	}
	return i.issueLocked(email, ch)
}

func (i *issuer) issueLocked(email string, ch challenge) error {
	code, err := randomCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	ch.hash = hashCode(code)
	ch.expiresAt = i.now().Add(i.codeTTL)
	i.pending[email] = ch
	i.mailbox[email] = code
	return nil
}

// claim consumes the pending code for email if it matches and is still
// valid for p.
func (i *issuer) claim(email, code string, p purpose) (challenge, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	ch, ok := i.pending[email]
	if !ok || ch.purpose != p || ch.hash != hashCode(code) || i.now().After(ch.expiresAt) {
		return challenge{}, errCodeInvalid
	}
	delete(i.pending, email)
	if p == purposeRegister {
		i.users[email] = ch.name
	}
	return ch, nil
}

func (i *issuer) sign(email string) (string, error) {
	now := i.now()
	claims := jwt.MapClaims{
		"sub":   "user_" + hashCode(email)[:12],
		"email": email,
		"iat":   now.Unix(),
		"exp":   now.Add(i.jwtTTL).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.jwtKey)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

func (i *issuer) lastCode(email string) (string, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	code, ok := i.mailbox[email]
	return code, ok
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}

func hashCode(code string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(code)))
}
