package modlog

import "encoding/json"

// Entry is one moderation log record. Timestamp and Action are stamped by
// Append; Extra carries free-form fields and is flattened into the JSON
// object alongside the fixed keys.
type Entry struct {
	Timestamp  string
	Action     string
	UserID     int64
	Content    string
	Confidence float64
	Extra      map[string]interface{}
}

func (e Entry) MarshalJSON() ([]byte, error) {
	obj := make(map[string]interface{}, len(e.Extra)+5)
	for k, v := range e.Extra {
		obj[k] = v
	}

	obj["timestamp"] = e.Timestamp
	obj["action"] = e.Action
	obj["user_id"] = e.UserID
	if e.Content != "" {
		obj["content"] = e.Content
	}
	if e.Confidence != 0 {
		obj["confidence"] = e.Confidence
	}

	return json.Marshal(obj)
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	obj := make(map[string]interface{})
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}

	if v, ok := obj["timestamp"].(string); ok {
		e.Timestamp = v
		delete(obj, "timestamp")
	}
	if v, ok := obj["action"].(string); ok {
		e.Action = v
		delete(obj, "action")
	}
	if v, ok := obj["user_id"].(float64); ok {
		e.UserID = int64(v)
		delete(obj, "user_id")
	}
	if v, ok := obj["content"].(string); ok {
		e.Content = v
		delete(obj, "content")
	}
	if v, ok := obj["confidence"].(float64); ok {
		e.Confidence = v
		delete(obj, "confidence")
	}

	if len(obj) > 0 {
		e.Extra = obj
	}

	return nil
}
