package domain

import "github.com/google/uuid"

// NodeIdentity is a stable 128-bit identity for a model node. Equal nodes
// resolve to equal identities on every run over an unchanged model.
type NodeIdentity uuid.UUID

// ParseNodeIdentity parses the canonical textual form.
func ParseNodeIdentity(s string) (NodeIdentity, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return NodeIdentity{}, err
	}
	return NodeIdentity(u), nil
}

func (id NodeIdentity) String() string {
	return uuid.UUID(id).String()
}

func (id NodeIdentity) IsZero() bool {
	return uuid.UUID(id) == uuid.Nil
}

// Ptr returns a pointer to a copy of id.
func (id NodeIdentity) Ptr() *NodeIdentity {
	return &id
}
