package pipeline

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/posedaemon/posed/pkg/pose"
)

type KeypointEntry struct {
	Label      string  `json:"label"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
}

type PersonMessage struct {
	Parts []KeypointEntry `json:"parts"`
}

type KeypointMessage struct {
	FrameID string          `json:"frame_id"`
	People  []PersonMessage `json:"people"`
}

// KeypointSink emits one structured message per routed result that
// contains at least one person. Every person carries the full fixed
// part list in body part index order, zero-confidence parts included,
// so consumers can index parts positionally.
type KeypointSink struct {
	parts pose.BodyPartMap
	mu    sync.Mutex
	enc   *json.Encoder
}

func NewKeypointSink(parts pose.BodyPartMap, out io.Writer) *KeypointSink {
	return &KeypointSink{parts: parts, enc: json.NewEncoder(out)}
}

func (s *KeypointSink) Name() string { return "keypoints" }

func (s *KeypointSink) Consume(result *pose.Result) error {
	if len(result.People) == 0 {
		return nil
	}

	msg := KeypointMessage{
		FrameID: result.ID,
		People:  serializePeople(s.parts, result.People),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(msg)
}
