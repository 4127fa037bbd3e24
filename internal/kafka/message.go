package kafka

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/model"
)

// PositionMessage is the wire format of the positions topic.
type PositionMessage struct {
	ID        string   `json:"id"`
	Name      string   `json:"name,omitempty"`
	Latitude  *float64 `json:"lat"`
	Longitude *float64 `json:"lng"`
	Heading   *float64 `json:"heading,omitempty"`
	Speed     *float64 `json:"speed_knots,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

// EncodePosition serializes p for the positions topic.
func EncodePosition(p model.Position) ([]byte, error) {
	return json.Marshal(PositionMessage{
		ID:        p.ID,
		Name:      p.Name,
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Heading:   p.Heading,
		Speed:     p.Speed,
		Timestamp: p.Timestamp.Unix(),
	})
}

// DecodePosition parses a positions topic message
func DecodePosition(data []byte) (model.Position, error) {
	var m PositionMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return model.Position{}, err
	}

	ts := time.Now()
	if m.Timestamp != 0 {
		ts = time.Unix(m.Timestamp, 0)
	}

	return model.Position{
		ID:        strings.TrimSpace(m.ID),
		Name:      strings.TrimSpace(strings.ReplaceAll(m.Name, "\x00", "")),
		Latitude:  m.Latitude,
		Longitude: m.Longitude,
		Heading:   m.Heading,
		Speed:     m.Speed,
		Timestamp: ts,
	}, nil
}
