// Package auth manages the application's user accounts: a small JSON file of
// usernames mapped to PBKDF2 password hashes, roles and an active flag. It
// gates the admin surfaces (reference table imports, user management); the
// processing core takes no dependency on it.
package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Roles recognized by the admin surfaces.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is one account as stored on disk.
type User struct {
	PasswordHash string `json:"password_hash"`
	Role         string `json:"role"`
	Active       bool   `json:"active"`
	CreatedAt    string `json:"created_at"`
}

// Identity is the result of a successful authentication.
type Identity struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// UserInfo is a User plus its name, for listings.
type UserInfo struct {
	Username  string `json:"username"`
	Role      string `json:"role"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

type userFile struct {
	Users map[string]User `json:"users"`
}

// Store reads and writes the users file.
type Store struct {
	path string
}

// NewStore creates a store over dataDir/users.json.
func NewStore(dataDir string) *Store {
	return &Store{path: filepath.Join(dataDir, "users.json")}
}

func (s *Store) load() (*userFile, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &userFile{Users: map[string]User{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read users file: %w", err)
	}
	var f userFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse users file: %w", err)
	}
	if f.Users == nil {
		f.Users = map[string]User{}
	}
	return &f, nil
}

func (s *Store) save(f *userFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create users dir: %w", err)
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	// Write-then-rename keeps the file readable if the process dies
	// mid-write.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write users file: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// EnsureAdmin creates the bootstrap admin account when it does not exist yet.
func (s *Store) EnsureAdmin(username, password string) error {
	f, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := f.Users[username]; ok {
		return nil
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	f.Users[username] = User{
		PasswordHash: hash,
		Role:         RoleAdmin,
		Active:       true,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	return s.save(f)
}

// Authenticate verifies credentials and returns the identity, or nil when the
// user is unknown, inactive or the password does not match.
func (s *Store) Authenticate(username, password string) (*Identity, error) {
	f, err := s.load()
	if err != nil {
		return nil, err
	}
	u, ok := f.Users[username]
	if !ok || !u.Active {
		return nil, nil
	}
	if !VerifyPassword(password, u.PasswordHash) {
		return nil, nil
	}
	role := u.Role
	if role == "" {
		role = RoleUser
	}
	return &Identity{Username: username, Role: role}, nil
}

// AddUser creates a new account. Fails if the username is taken.
func (s *Store) AddUser(username, password, role string, active bool) error {
	f, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := f.Users[username]; ok {
		return fmt.Errorf("user %s already exists", username)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	if role == "" {
		role = RoleUser
	}
	f.Users[username] = User{
		PasswordHash: hash,
		Role:         role,
		Active:       active,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	return s.save(f)
}

// SetActive toggles an account's active flag.
func (s *Store) SetActive(username string, active bool) error {
	f, err := s.load()
	if err != nil {
		return err
	}
	u, ok := f.Users[username]
	if !ok {
		return fmt.Errorf("user %s not found", username)
	}
	u.Active = active
	f.Users[username] = u
	return s.save(f)
}

// List returns all accounts sorted by username, without password hashes.
func (s *Store) List() ([]UserInfo, error) {
	f, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]UserInfo, 0, len(f.Users))
	for name, u := range f.Users {
		role := u.Role
		if role == "" {
			role = RoleUser
		}
		out = append(out, UserInfo{
			Username:  name,
			Role:      role,
			Active:    u.Active,
			CreatedAt: u.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}
