// Package session implements the identity gate in front of the booking
// core: login and logout, token verification, and the ownership checks that
// scope each mutating operation to the actor allowed to perform it.
package session

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"bookcore/internal/auth"
	"bookcore/internal/core"
	"bookcore/pkg/domain"
)

// DefaultTTL is the session lifetime applied when none is configured.
const DefaultTTL = 24 * time.Hour

// Environment variables read by NewGateFromEnv.
const (
	EnvSecret = "BOOKCORE_SESSION_SECRET"
	EnvTTL    = "BOOKCORE_SESSION_TTL"
)

// Session is an authenticated actor's live session.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Gate authenticates actors and enforces ownership before delegating to the
// core service. Tokens are signed HS256 and additionally tracked in an
// in-process table so Logout revokes them before expiry.
type Gate struct {
	svc    *core.Service
	secret []byte
	ttl    time.Duration

	mu       sync.Mutex
	sessions map[string]Session
}

// GateOption customizes a Gate.
type GateOption func(*Gate)

// WithTTL overrides the session lifetime.
func WithTTL(ttl time.Duration) GateOption {
	return func(g *Gate) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// NewGate constructs a gate over svc signing tokens with secret.
func NewGate(svc *core.Service, secret []byte, opts ...GateOption) *Gate {
	g := &Gate{
		svc:      svc,
		secret:   secret,
		ttl:      DefaultTTL,
		sessions: map[string]Session{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewGateFromEnv constructs a gate configured from the environment. A
// missing secret falls back to a fixed development value; production
// deployments set EnvSecret.
func NewGateFromEnv(svc *core.Service) *Gate {
	secret := os.Getenv(EnvSecret)
	if secret == "" {
		secret = "bookcore-dev-secret"
	}
	var opts []GateOption
	if raw := os.Getenv(EnvTTL); raw != "" {
		if ttl, err := time.ParseDuration(raw); err == nil {
			opts = append(opts, WithTTL(ttl))
		}
	}
	return NewGate(svc, []byte(secret), opts...)
}

// Service exposes the wrapped core service for read-only surfaces that need
// no ownership check.
func (g *Gate) Service() *core.Service {
	return g.svc
}

// Login verifies credentials and opens a session. Unknown email and wrong
// password are indistinguishable to the caller.
func (g *Gate) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := g.svc.UserByEmail(ctx, email)
	if err != nil {
		return Session{}, domain.InvalidCredentialsError{}
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return Session{}, domain.InvalidCredentialsError{}
	}
	now := g.svc.Now()
	token, err := auth.MakeToken(g.secret, user.ID, now, g.ttl)
	if err != nil {
		return Session{}, err
	}
	sess := Session{Token: token, UserID: user.ID, IssuedAt: now, ExpiresAt: now.Add(g.ttl)}
	g.mu.Lock()
	g.sessions[token] = sess
	g.mu.Unlock()
	return sess, nil
}

// Logout revokes a session token. Revoking an unknown token is a no-op.
func (g *Gate) Logout(token string) {
	g.mu.Lock()
	delete(g.sessions, token)
	g.mu.Unlock()
}

// CurrentActor resolves a token to its user. Expired, revoked, and forged
// tokens all fail identically.
func (g *Gate) CurrentActor(ctx context.Context, token string) (core.User, error) {
	claims, err := auth.ParseToken(g.secret, token)
	if err != nil {
		return core.User{}, domain.InvalidCredentialsError{}
	}
	g.mu.Lock()
	sess, ok := g.sessions[token]
	g.mu.Unlock()
	if !ok || g.svc.Now().After(sess.ExpiresAt) {
		return core.User{}, domain.InvalidCredentialsError{}
	}
	user, err := g.svc.GetUser(ctx, claims.UserID)
	if err != nil {
		return core.User{}, domain.InvalidCredentialsError{}
	}
	return user, nil
}

// UpdateProfile lets the actor mutate their own user record only.
func (g *Gate) UpdateProfile(ctx context.Context, token string, mutator func(*core.User) error) (core.User, error) {
	actor, err := g.CurrentActor(ctx, token)
	if err != nil {
		return core.User{}, err
	}
	updated, _, err := g.svc.UpdateUser(ctx, actor.ID, mutator)
	return updated, err
}

// ownsCompany resolves the company administered by actor, or a ForbiddenError.
func (g *Gate) ownsCompany(ctx context.Context, actor core.User, companyID string) error {
	company, err := g.svc.GetCompany(ctx, companyID)
	if err != nil {
		return err
	}
	if actor.Role != core.RoleAdmin || company.AdminID != actor.ID {
		return domain.ForbiddenError{ActorID: actor.ID, Entity: core.EntityCompany, EntityID: companyID}
	}
	return nil
}

// SaveCompany creates the actor's company on first call and updates it on
// later ones. The actor must hold the admin role; one company per admin.
func (g *Gate) SaveCompany(ctx context.Context, token string, company core.Company) (core.Company, error) {
	actor, err := g.CurrentActor(ctx, token)
	if err != nil {
		return core.Company{}, err
	}
	if actor.Role != core.RoleAdmin {
		return core.Company{}, domain.ForbiddenError{ActorID: actor.ID, Entity: core.EntityCompany}
	}
	existing, err := g.svc.CompanyByAdmin(ctx, actor.ID)
	var notFound domain.NotFoundError
	if errors.As(err, &notFound) {
		company.AdminID = actor.ID
		created, _, createErr := g.svc.CreateCompany(ctx, company)
		return created, createErr
	}
	if err != nil {
		return core.Company{}, err
	}
	updated, _, err := g.svc.UpdateCompany(ctx, existing.ID, func(c *core.Company) error {
		c.Name = company.Name
		c.Category = company.Category
		c.Address = company.Address
		c.Phone = company.Phone
		c.Email = company.Email
		c.Description = company.Description
		return nil
	})
	return updated, err
}

// CreateService adds an offering to the actor's own company.
func (g *Gate) CreateService(ctx context.Context, token string, service core.ServiceOffering) (core.ServiceOffering, error) {
	actor, err := g.CurrentActor(ctx, token)
	if err != nil {
		return core.ServiceOffering{}, err
	}
	if err := g.ownsCompany(ctx, actor, service.CompanyID); err != nil {
		return core.ServiceOffering{}, err
	}
	created, _, err := g.svc.CreateService(ctx, service)
	return created, err
}

// UpdateService mutates an offering of the actor's own company.
func (g *Gate) UpdateService(ctx context.Context, token, serviceID string, mutator func(*core.ServiceOffering) error) (core.ServiceOffering, error) {
	actor, err := g.CurrentActor(ctx, token)
	if err != nil {
		return core.ServiceOffering{}, err
	}
	service, err := g.svc.GetService(ctx, serviceID)
	if err != nil {
		return core.ServiceOffering{}, err
	}
	if err := g.ownsCompany(ctx, actor, service.CompanyID); err != nil {
		return core.ServiceOffering{}, err
	}
	updated, _, err := g.svc.UpdateService(ctx, serviceID, mutator)
	return updated, err
}

// DeleteService removes an offering of the actor's own company.
func (g *Gate) DeleteService(ctx context.Context, token, serviceID string) error {
	actor, err := g.CurrentActor(ctx, token)
	if err != nil {
		return err
	}
	service, err := g.svc.GetService(ctx, serviceID)
	if err != nil {
		return err
	}
	if err := g.ownsCompany(ctx, actor, service.CompanyID); err != nil {
		return err
	}
	_, err = g.svc.DeleteService(ctx, serviceID)
	return err
}

// RegisterEmployee registers a provider attached to the actor's company.
func (g *Gate) RegisterEmployee(ctx context.Context, token string, input core.RegisterUserInput) (core.User, error) {
	actor, err := g.CurrentActor(ctx, token)
	if err != nil {
		return core.User{}, err
	}
	if actor.Role != core.RoleAdmin {
		return core.User{}, domain.ForbiddenError{ActorID: actor.ID, Entity: core.EntityUser}
	}
	company, err := g.svc.CompanyByAdmin(ctx, actor.ID)
	if err != nil {
		return core.User{}, err
	}
	input.Role = core.RoleProvider
	companyID := company.ID
	input.CompanyID = &companyID
	created, _, err := g.svc.RegisterUser(ctx, input)
	return created, err
}

// SetAvailability lets a provider declare their own slots only.
func (g *Gate) SetAvailability(ctx context.Context, token, date string, slots []string) (core.Availability, error) {
	actor, err := g.CurrentActor(ctx, token)
	if err != nil {
		return core.Availability{}, err
	}
	if actor.Role != core.RoleProvider {
		return core.Availability{}, domain.ForbiddenError{ActorID: actor.ID, Entity: core.EntityAvailability}
	}
	saved, _, err := g.svc.SetAvailability(ctx, actor.ID, date, slots)
	return saved, err
}

// BookAppointment books a slot for the actor as patient.
func (g *Gate) BookAppointment(ctx context.Context, token string, input core.CreateAppointmentInput) (core.Appointment, error) {
	actor, err := g.CurrentActor(ctx, token)
	if err != nil {
		return core.Appointment{}, err
	}
	input.PatientID = actor.ID
	created, _, err := g.svc.CreateAppointment(ctx, input)
	return created, err
}

// mayManageAppointment reports whether actor is the appointment's provider
// or the admin of its company. Patients are additionally allowed when
// includePatient is set.
func (g *Gate) mayManageAppointment(ctx context.Context, actor core.User, a core.Appointment, includePatient bool) bool {
	if includePatient && a.PatientID == actor.ID {
		return true
	}
	if a.ProviderID == actor.ID {
		return true
	}
	if actor.Role == core.RoleAdmin {
		company, err := g.svc.GetCompany(ctx, a.CompanyID)
		if err == nil && company.AdminID == actor.ID {
			return true
		}
	}
	return false
}

// ConfirmAppointment confirms a booking as its provider or the owning admin.
func (g *Gate) ConfirmAppointment(ctx context.Context, token, appointmentID string) (core.Appointment, error) {
	actor, err := g.CurrentActor(ctx, token)
	if err != nil {
		return core.Appointment{}, err
	}
	a, err := g.svc.GetAppointment(ctx, appointmentID)
	if err != nil {
		return core.Appointment{}, err
	}
	if !g.mayManageAppointment(ctx, actor, a, false) {
		return core.Appointment{}, domain.ForbiddenError{ActorID: actor.ID, Entity: core.EntityAppointment, EntityID: appointmentID}
	}
	updated, _, err := g.svc.ConfirmAppointment(ctx, appointmentID)
	return updated, err
}

// CancelAppointment cancels a booking as its patient, its provider, or the
// owning admin.
func (g *Gate) CancelAppointment(ctx context.Context, token, appointmentID string) (core.Appointment, error) {
	actor, err := g.CurrentActor(ctx, token)
	if err != nil {
		return core.Appointment{}, err
	}
	a, err := g.svc.GetAppointment(ctx, appointmentID)
	if err != nil {
		return core.Appointment{}, err
	}
	if !g.mayManageAppointment(ctx, actor, a, true) {
		return core.Appointment{}, domain.ForbiddenError{ActorID: actor.ID, Entity: core.EntityAppointment, EntityID: appointmentID}
	}
	updated, _, err := g.svc.CancelAppointment(ctx, appointmentID)
	return updated, err
}
