package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// NominatimGeocoder resolves coordinates through an OpenStreetMap Nominatim
// compatible reverse endpoint.
type NominatimGeocoder struct {
	httpClient *resty.Client
}

var _ Geocoder = (*NominatimGeocoder)(nil)

type nominatimAddress struct {
	City        string `json:"city"`
	Town        string `json:"town"`
	Village     string `json:"village"`
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
}

type nominatimResponse struct {
	Address *nominatimAddress `json:"address"`
	Error   string            `json:"error"`
}

// NewNominatimGeocoder creates a client for baseURL. Nominatim's usage policy
// requires an identifying User-Agent.
func NewNominatimGeocoder(baseURL, userAgent string, timeout time.Duration) *NominatimGeocoder {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)

	return &NominatimGeocoder{httpClient: client}
}

func (g *NominatimGeocoder) ReverseGeocode(ctx context.Context, c Coordinates) (Region, error) {
	resp, err := g.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"format":         "json",
			"lat":            strconv.FormatFloat(c.Latitude, 'f', -1, 64),
			"lon":            strconv.FormatFloat(c.Longitude, 'f', -1, 64),
			"zoom":           "10",
			"addressdetails": "1",
		}).
		Get("/reverse")
	if err != nil {
		return Region{}, NewError(LocalityResolutionFailed, fmt.Errorf("reverse geocoding request failed: %w", err))
	}
	if !resp.IsSuccess() {
		return Region{}, NewError(LocalityResolutionFailed, fmt.Errorf("reverse geocoding error (status %d): %s", resp.StatusCode(), resp.Status()))
	}

	var body nominatimResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return Region{}, NewError(LocalityResolutionFailed, fmt.Errorf("decode reverse geocoding response: %w", err))
	}
	if body.Address == nil {
		reason := "no address found for the coordinates"
		if body.Error != "" {
			reason = body.Error
		}
		return Region{}, NewError(LocalityResolutionFailed, errors.New(reason))
	}

	a := body.Address
	city := a.City
	if city == "" {
		city = a.Town
	}
	if city == "" {
		city = a.Village
	}
	return Region{
		City:        city,
		Country:     a.Country,
		CountryCode: strings.ToUpper(a.CountryCode),
	}, nil
}
