package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// RiskLevel is the collision-risk band of a vessel pair.
type RiskLevel int

const (
	RiskNone RiskLevel = iota
	RiskWarning
	RiskDanger
)

func (l RiskLevel) String() string {
	switch l {
	case RiskWarning:
		return "warning"
	case RiskDanger:
		return "danger"
	default:
		return "none"
	}
}

func (l RiskLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *RiskLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "none", "":
		*l = RiskNone
	case "warning":
		*l = RiskWarning
	case "danger":
		*l = RiskDanger
	default:
		return fmt.Errorf("unknown risk level %q", s)
	}
	return nil
}

// PairKey identifies an unordered pair of vessels.
type PairKey struct {
	A, B string
}

// NewPairKey orders the ids so that NewPairKey(a, b) == NewPairKey(b, a).
func NewPairKey(a, b string) PairKey {
	if b < a {
		a, b = b, a
	}
	return PairKey{A: a, B: b}
}

func (k PairKey) String() string {
	return k.A + "|" + k.B
}

// AlertPairState is the suppression state of one pair.
type AlertPairState struct {
	Level        RiskLevel
	Notified     bool
	Acknowledged bool
	LastDistance float64
}

// Alert represents a transition of a vessel pair into a risk band
type Alert struct {
	HomeID   string    `json:"home_id"`
	OtherID  string    `json:"other_id"`
	Distance float64   `json:"distance_nm"`
	Bearing  float64   `json:"bearing_deg"`
	Level    RiskLevel `json:"level"`
	RaisedAt time.Time `json:"raised_at"`
}

// Key returns the pair key of the alert.
func (a Alert) Key() PairKey {
	return NewPairKey(a.HomeID, a.OtherID)
}

// ActivePair is a pair currently inside the alert envelope.
type ActivePair struct {
	OtherID      string    `json:"other_id"`
	Level        RiskLevel `json:"level"`
	Distance     float64   `json:"distance_nm"`
	Acknowledged bool      `json:"acknowledged"`
}
