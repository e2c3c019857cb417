package pipeline

import (
	"encoding/json"

	"github.com/posedaemon/posed/pkg/database/models"
	"github.com/posedaemon/posed/pkg/database/repos"
	"github.com/posedaemon/posed/pkg/pose"
	"github.com/tauraamui/xerror"
)

// EventSink persists one pose event row per routed result so detections
// can be queried after the stream has gone. Results with zero people
// are skipped like the keypoint sink skips them.
type EventSink struct {
	streamTitle string
	parts       pose.BodyPartMap
	repo        *repos.PoseEventRepository
}

func NewEventSink(streamTitle string, parts pose.BodyPartMap, repo *repos.PoseEventRepository) *EventSink {
	return &EventSink{streamTitle: streamTitle, parts: parts, repo: repo}
}

func (s *EventSink) Name() string { return "pose-events" }

func (s *EventSink) Consume(result *pose.Result) error {
	if len(result.People) == 0 {
		return nil
	}

	serialized, err := json.Marshal(serializePeople(s.parts, result.People))
	if err != nil {
		return xerror.Errorf("unable to serialize keypoints for event record: %w", err)
	}

	return s.repo.Create(&models.PoseEvent{
		FrameUUID:   result.ID,
		StreamTitle: s.streamTitle,
		PeopleCount: len(result.People),
		Keypoints:   string(serialized),
	})
}

func serializePeople(parts pose.BodyPartMap, people []pose.Person) []PersonMessage {
	messages := make([]PersonMessage, 0, len(people))
	for _, person := range people {
		pm := PersonMessage{Parts: make([]KeypointEntry, 0, pose.NumBodyParts)}
		for part := 0; part < pose.NumBodyParts; part++ {
			kp := person.KeypointAt(part)
			pm.Parts = append(pm.Parts, KeypointEntry{
				Label:      parts.Label(part),
				X:          kp.X,
				Y:          kp.Y,
				Confidence: kp.Score,
			})
		}
		messages = append(messages, pm)
	}
	return messages
}
