package repository

import (
	"encoding/json"
	"fmt"
)

const (
	FormsCollection       = "lavender_forms"
	OwnersCollection      = "lavender_form_owners"
	ControlsCollection    = "lavender_controls"
	SubmissionsCollection = "lavender_submissions"
	UsersCollection       = "lavender_users"
)

// normalizeID moves OxiDB's auto-increment _id into the model's id field.
func normalizeID(doc map[string]any) {
	if id, ok := doc["_id"]; ok {
		switch v := id.(type) {
		case float64:
			doc["id"] = int64(v)
		case int:
			doc["id"] = int64(v)
		}
		delete(doc, "_id")
	}
}

// extractID gets the inserted document ID from an OxiDB insert response.
func extractID(result map[string]any) (int64, error) {
	switch v := result["id"].(type) {
	case float64:
		return int64(v), nil
	case int64:
		return v, nil
	}
	return 0, fmt.Errorf("insert response has no numeric id: %v", result)
}

// toDoc turns a model into an OxiDB document without the id, which the
// server assigns.
func toDoc(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	delete(doc, "id")
	return doc, nil
}

func fromDoc(doc map[string]any, v any) error {
	normalizeID(doc)
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal doc: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %T: %w", v, err)
	}
	return nil
}
