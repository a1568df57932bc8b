package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixDocument = "doc"
	PrefixNode     = "node"
	PrefixEdge     = "edge"
	PrefixCommand  = "cmd"
	PrefixClient   = "client"
	PrefixRoom     = "room"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewDocumentID() string { return New(PrefixDocument) }
func NewNodeID() string     { return New(PrefixNode) }
func NewEdgeID() string     { return New(PrefixEdge) }
func NewCommandID() string  { return New(PrefixCommand) }
func NewClientID() string   { return New(PrefixClient) }
func NewRoomID() string     { return New(PrefixRoom) }

func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}
