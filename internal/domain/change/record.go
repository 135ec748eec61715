package change

import (
	"encoding/json"
	"strings"
)

// Record is a change record as emitted by the data store, in change-stream
// shape. Feeds decode their payloads into it.
type Record struct {
	OperationType     string             `json:"operationType"`
	Namespace         Namespace          `json:"ns"`
	DocumentKey       map[string]any     `json:"documentKey,omitempty"`
	FullDocument      Document           `json:"fullDocument,omitempty"`
	UpdateDescription *UpdateDescription `json:"updateDescription,omitempty"`
}

type Namespace struct {
	DB         string `json:"db,omitempty"`
	Collection string `json:"coll"`
}

type UpdateDescription struct {
	UpdatedFields Document `json:"updatedFields"`
	RemovedFields []string `json:"removedFields,omitempty"`
}

// Decode parses a raw record. Payloads that are not a JSON object become
// Unhandled with the raw text as data.
func Decode(raw []byte) Event {
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Unhandled{Raw: string(raw)}
	}
	return rec.Event()
}

// Event classifies the record.
func (r Record) Event() Event {
	entity := EntityName(r.Namespace.Collection)

	switch r.OperationType {
	case "insert":
		return Inserted{EntityType: entity, Document: r.FullDocument}
	case "update", "replace":
		ev := Updated{
			EntityType:   entity,
			DocumentID:   r.documentID(),
			FullDocument: r.FullDocument,
		}
		if r.UpdateDescription != nil {
			ev.ChangedFields = r.UpdateDescription.UpdatedFields
		}
		return ev
	case "delete":
		doc := r.FullDocument
		if doc == nil {
			doc = Document{"_id": r.documentID()}
		}
		return Deleted{EntityType: entity, Document: doc}
	default:
		return Unhandled{EntityType: entity, Raw: r}
	}
}

func (r Record) documentID() any {
	if id, ok := r.DocumentKey["_id"]; ok {
		return id
	}
	if id, ok := r.DocumentKey["id"]; ok {
		return id
	}
	if id, ok := r.FullDocument["_id"]; ok {
		return id
	}
	return r.FullDocument["id"]
}

// EntityName turns a collection name into the entity name used in envelope
// types: "plants" -> "plant", "testPlants" -> "testPlant".
func EntityName(collection string) string {
	switch {
	case strings.HasSuffix(collection, "ies") && len(collection) > 3:
		return strings.TrimSuffix(collection, "ies") + "y"
	case strings.HasSuffix(collection, "sses"), strings.HasSuffix(collection, "xes"):
		return strings.TrimSuffix(collection, "es")
	case strings.HasSuffix(collection, "ss"):
		return collection
	case strings.HasSuffix(collection, "s"):
		return strings.TrimSuffix(collection, "s")
	default:
		return collection
	}
}
