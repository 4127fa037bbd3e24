package kafka

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/geo"
	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/model"
)

// MessageReader is the subset of *kafka.Reader used by the consumer.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// PositionSink receives decoded positions.
type PositionSink interface {
	Update(p model.Position)
}

// NewReader returns a configured kafka.Reader
func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:         brokers,
		Topic:           topic,
		GroupID:         groupID,
		MinBytes:        1e3,
		MaxBytes:        10e6,
		MaxWait:         time.Second,
		ReadLagInterval: -1,
		StartOffset:     kafka.LastOffset,
	})
}

// ConsumePositions reads position reports until ctx is done and folds them
// into sink. Undecodable messages and out-of-range coordinates are logged
// and skipped.
func ConsumePositions(ctx context.Context, r MessageReader, sink PositionSink, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn("kafka read error", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		p, err := DecodePosition(cleanJSON(m.Value))
		if err != nil {
			logger.Warn("dropping undecodable position", zap.Error(err), zap.ByteString("raw", m.Value))
			continue
		}
		if p.ID == "" {
			p.ID = string(m.Key)
		}
		if p.ID == "" {
			continue
		}
		if lat, lng, ok := p.Coordinates(); ok && !geo.ValidCoordinate(lat, lng) {
			logger.Debug("dropping out-of-range position", zap.String("vessel", p.ID))
			continue
		}
		sink.Update(p)
	}
}

var quotedTimestamp = regexp.MustCompile(`"timestamp"\s*:\s*['"]*(\d+)['"]*`)

// cleanJSON strips a leading BOM or NBSP and unquotes a timestamp that an
// upstream producer sent as a string.
func cleanJSON(raw []byte) []byte {
	s := strings.TrimLeftFunc(string(raw), func(r rune) bool {
		return unicode.IsSpace(r) || r == '\ufeff' || r == '\u00a0'
	})
	s = quotedTimestamp.ReplaceAllString(s, `"timestamp":$1`)
	return []byte(s)
}
