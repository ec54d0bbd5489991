package tenant

import (
	"time"

	"github.com/google/uuid"
)

type Tenant struct {
	id                uuid.UUID
	name              string
	schemaName        string
	state             State
	contactEmail      string
	notificationEmail string
	primaryColor      string
	secondaryColor    string
	theme             string
	analyticsID       string
	createdAt         time.Time
	updatedAt         time.Time
}

type Option func(*Tenant)

func WithID(id uuid.UUID) Option {
	return func(t *Tenant) {
		t.id = id
	}
}

func WithSchemaName(schemaName string) Option {
	return func(t *Tenant) {
		t.schemaName = schemaName
	}
}

func WithState(state State) Option {
	return func(t *Tenant) {
		t.state = state
	}
}

func WithContactEmail(email string) Option {
	return func(t *Tenant) {
		t.contactEmail = email
	}
}

func WithNotificationEmail(email string) Option {
	return func(t *Tenant) {
		t.notificationEmail = email
	}
}

func WithBranding(primaryColor, secondaryColor, theme string) Option {
	return func(t *Tenant) {
		t.primaryColor = primaryColor
		t.secondaryColor = secondaryColor
		t.theme = theme
	}
}

func WithAnalyticsID(analyticsID string) Option {
	return func(t *Tenant) {
		t.analyticsID = analyticsID
	}
}

func WithCreatedAt(createdAt time.Time) Option {
	return func(t *Tenant) {
		t.createdAt = createdAt
	}
}

func WithUpdatedAt(updatedAt time.Time) Option {
	return func(t *Tenant) {
		t.updatedAt = updatedAt
	}
}

func New(name string, opts ...Option) *Tenant {
	t := &Tenant{
		id:        uuid.New(),
		name:      name,
		state:     StatePending,
		createdAt: time.Now(),
		updatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tenant) ID() uuid.UUID {
	return t.id
}

func (t *Tenant) Name() string {
	return t.name
}

// SchemaName is immutable after creation; there is deliberately no setter.
func (t *Tenant) SchemaName() string {
	return t.schemaName
}

func (t *Tenant) State() State {
	return t.state
}

func (t *Tenant) IsActive() bool {
	return t.state == StateActive
}

func (t *Tenant) ContactEmail() string {
	return t.contactEmail
}

func (t *Tenant) NotificationEmail() string {
	return t.notificationEmail
}

func (t *Tenant) PrimaryColor() string {
	return t.primaryColor
}

func (t *Tenant) SecondaryColor() string {
	return t.secondaryColor
}

func (t *Tenant) Theme() string {
	return t.theme
}

func (t *Tenant) AnalyticsID() string {
	return t.analyticsID
}

func (t *Tenant) CreatedAt() time.Time {
	return t.createdAt
}

func (t *Tenant) UpdatedAt() time.Time {
	return t.updatedAt
}

// Transition moves the tenant to newState, enforcing the legal state machine.
func (t *Tenant) Transition(newState State) error {
	if err := t.state.ValidateTransition(newState); err != nil {
		return err
	}
	t.state = newState
	t.updatedAt = time.Now()
	return nil
}

func (t *Tenant) SetContactEmail(email string) {
	t.contactEmail = email
	t.updatedAt = time.Now()
}

func (t *Tenant) SetNotificationEmail(email string) {
	t.notificationEmail = email
	t.updatedAt = time.Now()
}

func (t *Tenant) SetBranding(primaryColor, secondaryColor, theme string) {
	t.primaryColor = primaryColor
	t.secondaryColor = secondaryColor
	t.theme = theme
	t.updatedAt = time.Now()
}

func (t *Tenant) SetAnalyticsID(analyticsID string) {
	t.analyticsID = analyticsID
	t.updatedAt = time.Now()
}
