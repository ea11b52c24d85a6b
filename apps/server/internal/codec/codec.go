// Package codec defines the websocket envelopes exchanged with clients and
// their two wire forms: JSON text frames and protobuf binary frames carrying a
// google.protobuf.Struct with the same shape.
package codec

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"settlers-lite/settlers"
)

// Client message types.
const (
	ClientJoin       = "join"
	ClientLeave      = "leave"
	ClientSit        = "sit"
	ClientStand      = "stand"
	ClientAddBot     = "add_bot"
	ClientStart      = "start"
	ClientAction     = "action"
	ClientListTables = "list_tables"
)

// Server message types.
const (
	TypeWelcome  = "welcome"
	TypeSnapshot = "snapshot"
	TypePrompt   = "prompt"
	TypeEvent    = "event"
	TypeSeats    = "seats"
	TypeMatchEnd = "match_end"
	TypeTables   = "tables"
	TypeError    = "error"
)

// Error codes carried by TypeError messages.
const (
	ErrCodeBadMessage int32 = 1
	ErrCodeNoTable    int32 = 2
	ErrCodeNotInTable int32 = 3
	ErrCodeRejected   int32 = 4
	ErrCodeAction     int32 = 5
)

type ClientEnvelope struct {
	Type    string                   `json:"type"`
	TableID string                   `json:"table_id,omitempty"`
	Persona string                   `json:"persona,omitempty"`
	Action  *settlers.ActionEnvelope `json:"action,omitempty"`
}

type ServerEnvelope struct {
	Type       string `json:"type"`
	TableID    string `json:"table_id,omitempty"`
	ServerSeq  uint64 `json:"server_seq"`
	ServerTsMs int64  `json:"server_ts_ms"`
	Payload    any    `json:"payload,omitempty"`
}

// Wrap stamps a payload with the table, sequence number and server time.
func Wrap(tableID string, seq uint64, typ string, payload any) *ServerEnvelope {
	return &ServerEnvelope{
		Type:       typ,
		TableID:    tableID,
		ServerSeq:  seq,
		ServerTsMs: time.Now().UnixMilli(),
		Payload:    payload,
	}
}

//go:embed client.schema.json
var clientSchemaJSON string

var clientSchema = jsonschema.MustCompileString("client.schema.json", clientSchemaJSON)

// Encode renders env as a JSON text frame or, when binary is set, as a
// marshalled structpb.Struct.
func Encode(env *ServerEnvelope, binary bool) ([]byte, error) {
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	if !binary {
		return raw, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(st)
}

// DecodeClient parses and schema-validates a client frame.
func DecodeClient(data []byte, binary bool) (*ClientEnvelope, error) {
	var doc any
	if binary {
		var st structpb.Struct
		if err := proto.Unmarshal(data, &st); err != nil {
			return nil, fmt.Errorf("decode protobuf frame: %w", err)
		}
		doc = st.AsMap()
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, err
		}
		data = raw
	} else if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode json frame: %w", err)
	}
	if err := clientSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("invalid client message: %w", err)
	}

	var env ClientEnvelope
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("decode client message: %w", err)
	}
	return &env, nil
}

// EncodeClient is the client-side counterpart of DecodeClient, used by tools and tests.
func EncodeClient(env *ClientEnvelope, binary bool) ([]byte, error) {
	raw, err := json.Marshal(env)
	if err != nil || !binary {
		return raw, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(st)
}

// DecodeServer parses a server frame back into an envelope with a generic payload.
func DecodeServer(data []byte, binary bool) (*ServerEnvelope, json.RawMessage, error) {
	if binary {
		var st structpb.Struct
		if err := proto.Unmarshal(data, &st); err != nil {
			return nil, nil, err
		}
		raw, err := json.Marshal(st.AsMap())
		if err != nil {
			return nil, nil, err
		}
		data = raw
	}
	var wire struct {
		ServerEnvelope
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, nil, err
	}
	env := wire.ServerEnvelope
	env.Payload = nil
	return &env, wire.Payload, nil
}
