package location

import (
	"context"
	"fmt"
	"time"
)

type PermissionStatus string

const (
	StatusPrompt      PermissionStatus = "prompt"
	StatusGranted     PermissionStatus = "granted"
	StatusDenied      PermissionStatus = "denied"
	StatusUnavailable PermissionStatus = "unavailable"
)

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.5f,%.5f", c.Latitude, c.Longitude)
}

// Region is the human readable place derived from coordinates.
// Any field may be empty when the lookup service does not know it.
type Region struct {
	City        string `json:"city,omitempty"`
	Country     string `json:"country,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
}

// State is a point-in-time copy of the machine's fields. Mutating it has no
// effect on the machine.
type State struct {
	Coordinates *Coordinates
	Region      *Region
	Status      PermissionStatus
	LastError   *Error
	Resolving   bool
}

func (s State) HasCoordinates() bool { return s.Coordinates != nil }

func (s State) City() string {
	if s.Region == nil {
		return ""
	}
	return s.Region.City
}

func (s State) clone() State {
	out := s
	if s.Coordinates != nil {
		c := *s.Coordinates
		out.Coordinates = &c
	}
	if s.Region != nil {
		r := *s.Region
		out.Region = &r
	}
	if s.LastError != nil {
		e := *s.LastError
		out.LastError = &e
	}
	return out
}

const DefaultTimeout = 10 * time.Second

// FixOptions mirrors the platform's position request options.
type FixOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	// MaxAge of a cached fix the platform may return; zero asks for a fresh fix.
	MaxAge time.Duration
}

func DefaultFixOptions() FixOptions {
	return FixOptions{HighAccuracy: true, Timeout: DefaultTimeout, MaxAge: 0}
}

// Locator is the platform geolocation capability. Each call yields exactly
// one outcome; a denial must be reported as an *Error of kind PermissionDenied.
type Locator interface {
	RequestFix(ctx context.Context, opts FixOptions) (Coordinates, error)
}

// PermissionSource reports the platform's stored permission, when the
// platform can tell.
type PermissionSource interface {
	Permission(ctx context.Context) (PermissionStatus, error)
	OnChange(fn func(PermissionStatus))
}

type Geocoder interface {
	ReverseGeocode(ctx context.Context, c Coordinates) (Region, error)
}
