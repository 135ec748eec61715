package change

import "encoding/json"

const TypeUnhandled = "unhandled"

// Envelope is the notification frame sent to every live client.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// EnvelopeFor maps an event onto its envelope. The mapping is total: any
// event that is not an insert, update or delete becomes "unhandled".
func EnvelopeFor(ev Event) Envelope {
	switch e := ev.(type) {
	case Inserted:
		return Envelope{Type: e.EntityType + "Added", Data: e.Payload()}
	case Updated:
		return Envelope{Type: e.EntityType + "Updated", Data: e.Payload()}
	case Deleted:
		return Envelope{Type: e.EntityType + "Deleted", Data: e.Payload()}
	case Unhandled:
		return Envelope{Type: TypeUnhandled, Data: e.Payload()}
	case nil:
		return Envelope{Type: TypeUnhandled}
	default:
		return Envelope{Type: TypeUnhandled, Data: ev.Payload()}
	}
}

// Marshal encodes the envelope as a JSON text frame.
func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
