package parse

import (
	"strings"
	"time"
)

// nowMillis is the fallback timestamp for pairs whose messages carry none.
var nowMillis = func() int64 { return time.Now().UnixMilli() }

// Pair folds a page-ordered message list into user/assistant turn pairs.
//
// Consecutive user messages flush the earlier one as an incomplete pair, a
// model message with no pending user message becomes an orphaned pair, and
// unknown-speaker or blank messages are dropped. The input is not modified.
func Pair(messages []RawMessage) []TurnPair {
	var pairs []TurnPair
	var pending *RawMessage

	for i := range messages {
		msg := messages[i]
		if strings.TrimSpace(msg.Text) == "" {
			continue
		}

		switch msg.Speaker {
		case SpeakerUser:
			if pending != nil {
				pairs = append(pairs, TurnPair{
					UserText:  pending.Text,
					Timestamp: pairTimestamp(pending, nil),
				})
			}
			pending = &msg

		case SpeakerModel:
			if pending != nil {
				pairs = append(pairs, TurnPair{
					UserText:      pending.Text,
					AssistantText: msg.Text,
					Timestamp:     pairTimestamp(pending, &msg),
				})
				pending = nil
				continue
			}
			pairs = append(pairs, TurnPair{
				AssistantText: msg.Text,
				Timestamp:     pairTimestamp(nil, &msg),
			})
		}
	}

	if pending != nil {
		pairs = append(pairs, TurnPair{
			UserText:  pending.Text,
			Timestamp: pairTimestamp(pending, nil),
		})
	}
	return pairs
}

func pairTimestamp(user, assistant *RawMessage) int64 {
	if user != nil && user.Timestamp != 0 {
		return user.Timestamp
	}
	if assistant != nil && assistant.Timestamp != 0 {
		return assistant.Timestamp
	}
	return nowMillis()
}
