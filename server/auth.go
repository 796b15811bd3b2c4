package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	jwtExpiry        = 7 * 24 * time.Hour
	jwtIssuer        = "debrisfield"
	bcryptCost       = 12
	minPasswordLen   = 4
	minUsernameLen   = 2
	maxUsernameLen   = 16
	loginRateWindow  = 60 * time.Second
	maxLoginAttempts = 10
	secretSetting    = "jwt_secret"
)

var (
	errBadCredentials = errors.New("invalid username or password")
	errRateLimited    = errors.New("too many login attempts, try again later")
	errUsernameTaken  = errors.New("username already taken")
)

// pilotClaims is the JWT payload of a pilot token
type pilotClaims struct {
	PilotID  int64  `json:"pid"`
	Username string `json:"usr"`
	jwt.RegisteredClaims
}

// Auth handles pilot accounts and tokens
type Auth struct {
	db        *DB
	jwtSecret []byte
	cost      int

	rateMu  sync.Mutex
	rateMap map[string]*rateEntry
}

type rateEntry struct {
	Count   int
	ResetAt time.Time
}

// NewAuth creates an Auth handler with the default bcrypt cost
func NewAuth(db *DB) *Auth {
	return newAuthWithCost(db, bcryptCost)
}

func newAuthWithCost(db *DB, cost int) *Auth {
	return &Auth{
		db:        db,
		jwtSecret: loadOrCreateSecret(db),
		cost:      cost,
		rateMap:   make(map[string]*rateEntry),
	}
}

// loadOrCreateSecret loads the signing secret from the settings table, or
// generates and persists a new one.
func loadOrCreateSecret(db *DB) []byte {
	if db != nil {
		if h := db.GetSetting(secretSetting); h != "" {
			if b, err := hex.DecodeString(h); err == nil && len(b) == 32 {
				return b
			}
		}
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic("failed to generate JWT secret: " + err.Error())
	}
	if db != nil {
		if err := db.SetSetting(secretSetting, hex.EncodeToString(secret)); err != nil {
			log.Printf("auth: could not persist JWT secret: %v", err)
		}
	}
	return secret
}

// Register creates a pilot account and returns its ID and a token
func (a *Auth) Register(username, password string) (int64, string, error) {
	username = strings.TrimSpace(username)

	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return 0, "", fmt.Errorf("username must be %d-%d characters", minUsernameLen, maxUsernameLen)
	}
	if len(password) < minPasswordLen {
		return 0, "", fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}

	exists, err := a.db.UsernameExists(username)
	if err != nil {
		return 0, "", fmt.Errorf("check username: %w", err)
	}
	if exists {
		return 0, "", errUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return 0, "", fmt.Errorf("hash password: %w", err)
	}

	id, err := a.db.CreatePilot(username, string(hash))
	if err != nil {
		return 0, "", fmt.Errorf("create pilot: %w", err)
	}

	token, err := a.generateToken(id, username)
	if err != nil {
		return 0, "", err
	}
	return id, token, nil
}

// Login checks a password and returns the pilot ID and a fresh token
func (a *Auth) Login(username, password, ip string) (int64, string, error) {
	if !a.checkRate(ip) {
		return 0, "", errRateLimited
	}

	pilot, err := a.db.GetPilotByUsername(strings.TrimSpace(username))
	if err != nil {
		return 0, "", fmt.Errorf("load pilot: %w", err)
	}
	if pilot == nil || pilot.PassHash == "" {
		return 0, "", errBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(pilot.PassHash), []byte(password)); err != nil {
		return 0, "", errBadCredentials
	}

	token, err := a.generateToken(pilot.ID, pilot.Username)
	if err != nil {
		return 0, "", err
	}
	return pilot.ID, token, nil
}

// ValidateToken validates a token and returns (pilotID, username, error)
func (a *Auth) ValidateToken(tokenStr string) (int64, string, error) {
	claims := &pilotClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return a.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(jwtIssuer),
	)
	if err != nil {
		return 0, "", err
	}
	if !token.Valid || claims.PilotID <= 0 || claims.Username == "" {
		return 0, "", fmt.Errorf("invalid token claims")
	}
	return claims.PilotID, claims.Username, nil
}

func (a *Auth) generateToken(pilotID int64, username string) (string, error) {
	now := time.Now()
	claims := pilotClaims{
		PilotID:  pilotID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    jwtIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(jwtExpiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(a.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

func (a *Auth) checkRate(ip string) bool {
	a.rateMu.Lock()
	defer a.rateMu.Unlock()

	now := time.Now()
	entry, ok := a.rateMap[ip]
	if !ok || now.After(entry.ResetAt) {
		a.rateMap[ip] = &rateEntry{Count: 1, ResetAt: now.Add(loginRateWindow)}
		return true
	}
	entry.Count++
	return entry.Count <= maxLoginAttempts
}
