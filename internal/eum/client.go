// Package eum polls the Pohang EUM port API for realtime vessel positions.
package eum

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/model"
)

const (
	DefaultBaseURL   = "https://dpg-apis.pohang-eum.co.kr"
	realtimeEndpoint = "/ship/devices/realtime"
	logTimeLayout    = "2006-01-02T15:04:05"
)

// ErrStatus is returned when the API envelope reports a non-success status.
var ErrStatus = errors.New("eum api returned error status")

// realtimeResponse matches the API payload
type realtimeResponse struct {
	Status string             `json:"status"`
	Data   []realtimeLocation `json:"data"`
}

type realtimeLocation struct {
	DevID       json.Number `json:"devId"`
	LogDateTime string      `json:"logDateTime"`
	Lati        *float64    `json:"lati"`
	Longi       *float64    `json:"longi"`
	Azimuth     *float64    `json:"azimuth"`
	Course      *float64    `json:"course"`
	Speed       *float64    `json:"speed"`
}

// Client fetches realtime locations. It implements scheduler.PositionSource.
type Client struct {
	baseURL    string
	serviceKey string
	http       *http.Client
	logger     *zap.Logger
}

// NewClient returns a client for baseURL (DefaultBaseURL when empty).
func NewClient(baseURL, serviceKey string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		http:       &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Positions polls the realtime endpoint and returns one Position per device.
// Entries without a device id are dropped; entries with missing coordinates
// are returned as-is so downstream stages can skip them.
func (c *Client) Positions(ctx context.Context) ([]model.Position, error) {
	u, err := url.Parse(c.baseURL + realtimeEndpoint)
	if err != nil {
		return nil, fmt.Errorf("eum: bad base url: %w", err)
	}
	q := u.Query()
	q.Set("serviceKey", c.serviceKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("eum: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("eum: request realtime locations: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("eum: unexpected http status %d", resp.StatusCode)
	}

	var body realtimeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("eum: decode realtime locations: %w", err)
	}
	if body.Status != "success" {
		return nil, fmt.Errorf("%w: %q", ErrStatus, body.Status)
	}

	now := time.Now()
	positions := make([]model.Position, 0, len(body.Data))
	for _, loc := range body.Data {
		id := loc.DevID.String()
		if id == "" {
			c.logger.Debug("dropping realtime location without devId")
			continue
		}
		p := model.Position{
			ID:        deviceID(id),
			Latitude:  loc.Lati,
			Longitude: loc.Longi,
			Heading:   loc.Course,
			Speed:     loc.Speed,
			Timestamp: now,
		}
		if p.Heading == nil {
			p.Heading = loc.Azimuth
		}
		if ts, err := time.ParseInLocation(logTimeLayout, trimFraction(loc.LogDateTime), time.Local); err == nil {
			p.Timestamp = ts
		}
		positions = append(positions, p)
	}
	return positions, nil
}

// deviceID maps numeric EUM device ids onto dashboard vessel ids.
func deviceID(dev string) string {
	n, err := strconv.Atoi(dev)
	if err != nil {
		return dev
	}
	return fmt.Sprintf("SHIP%03d", n)
}

func trimFraction(s string) string {
	if len(s) > len(logTimeLayout) {
		return s[:len(logTimeLayout)]
	}
	return s
}
