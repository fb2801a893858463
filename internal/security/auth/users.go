package auth

import (
	"fmt"
	"net/mail"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
)

// defaultOrganizations is used when a login does not name an organization
var defaultOrganizations = map[domain.Role]string{
	domain.RoleNGO:   "Blue Marine NGO",
	domain.RoleAdmin: "NCCR Government",
}

const fallbackOrganization = "Private Sector"

// Directory is the login stub: any well-formed email may sign in as any role.
// Identities are derived deterministically so the same (email, role) pair
// always maps to the same user id across restarts.
type Directory struct {
	mu    sync.RWMutex
	users map[string]domain.User // id -> user
}

// NewDirectory creates an empty identity directory
func NewDirectory() *Directory {
	return &Directory{users: make(map[string]domain.User)}
}

// LoginRequest is the input of Resolve
type LoginRequest struct {
	Email        string
	Role         string
	Organization string
	Region       string
}

// Resolve builds (or returns) the user for a login request
func (d *Directory) Resolve(req LoginRequest) (domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return domain.User{}, &domain.ValidationError{Field: "email", Reason: "must be a valid address"}
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return domain.User{}, err
	}

	org := strings.TrimSpace(req.Organization)
	if org == "" {
		org = organizationFor(role)
	}
	user := domain.User{
		ID:           UserID(email, role),
		Email:        email,
		Name:         email[:strings.IndexByte(email, '@')],
		Role:         role,
		Organization: org,
		Region:       strings.TrimSpace(req.Region),
	}

	d.mu.Lock()
	d.users[user.ID] = user
	d.mu.Unlock()
	return user, nil
}

// GetUser returns a previously resolved user
func (d *Directory) GetUser(id string) (domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	user, exists := d.users[id]
	if !exists {
		return domain.User{}, fmt.Errorf("user not found")
	}
	return user, nil
}

// UserID derives the stable identifier for an (email, role) pair
func UserID(email string, role domain.Role) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("bluecarbon:"+email+"|"+string(role))).String()
}

func organizationFor(role domain.Role) string {
	if org, ok := defaultOrganizations[role]; ok {
		return org
	}
	return fallbackOrganization
}
