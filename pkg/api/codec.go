// Package api holds the request and response messages of the sign-in RPC
// services. Messages are plain structs exchanged as JSON over Connect.
package api

import (
	"encoding/json"
)

// Codec is the Connect codec for this package's messages. It registers under
// the "json" name so browsers and curl can call the services with
// Content-Type application/json.
type Codec struct{}

func (Codec) Name() string { return "json" }

func (Codec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}
