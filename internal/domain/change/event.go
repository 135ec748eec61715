// Package change models data-store mutations and the envelopes pushed to
// live-update clients for them.
package change

// Document is an entity as it is serialized to clients.
type Document = map[string]any

// Event is one mutation on a watched collection. The concrete types are
// Inserted, Updated, Deleted and Unhandled.
type Event interface {
	// Entity is the singular entity name, e.g. "plant".
	Entity() string
	// Payload is the value sent as the envelope's data.
	Payload() any

	isEvent()
}

type Inserted struct {
	EntityType string
	Document   Document
}

type Updated struct {
	EntityType    string
	DocumentID    any
	ChangedFields Document
	// FullDocument is set when the record carried the whole document or
	// when it was read back from the store.
	FullDocument Document
}

type Deleted struct {
	EntityType string
	Document   Document
}

// Unhandled carries any mutation whose operation is not modeled.
type Unhandled struct {
	EntityType string
	Raw        any
}

func (e Inserted) Entity() string  { return e.EntityType }
func (e Updated) Entity() string   { return e.EntityType }
func (e Deleted) Entity() string   { return e.EntityType }
func (e Unhandled) Entity() string { return e.EntityType }

func (e Inserted) Payload() any { return e.Document }
func (e Deleted) Payload() any  { return e.Document }
func (e Unhandled) Payload() any {
	return e.Raw
}

// Payload of an update is the full document when known, otherwise the id
// together with the changed fields.
func (e Updated) Payload() any {
	if e.FullDocument != nil {
		return e.FullDocument
	}
	return UpdatePayload{ID: e.DocumentID, UpdatedFields: e.ChangedFields}
}

type UpdatePayload struct {
	ID            any      `json:"_id"`
	UpdatedFields Document `json:"updatedFields"`
}

func (Inserted) isEvent()  {}
func (Updated) isEvent()   {}
func (Deleted) isEvent()   {}
func (Unhandled) isEvent() {}

// Kind names the variant for logs and metrics.
func Kind(ev Event) string {
	switch ev.(type) {
	case Inserted:
		return "insert"
	case Updated:
		return "update"
	case Deleted:
		return "delete"
	default:
		return "unhandled"
	}
}
