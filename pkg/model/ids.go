package model

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// IDGenerator hands out node and edge ids. Implementations only need to avoid
// collisions within one session.
type IDGenerator interface {
	NodeID() string
	EdgeID() string
}

// RandomIDs produces short random ids like "n_3fa85f" and "e_9c1d02".
type RandomIDs struct{}

func (RandomIDs) NodeID() string { return "n_" + shortHex() }

func (RandomIDs) EdgeID() string { return "e_" + shortHex() }

// shortHex returns the first six hex characters of a random UUID.
func shortHex() string {
	u := uuid.New()
	return hex.EncodeToString(u[:3])
}

// SequentialIDs produces deterministic ids ("n1", "n2", ... / "e1", "e2", ...).
type SequentialIDs struct {
	nodes int
	edges int
}

func (s *SequentialIDs) NodeID() string {
	s.nodes++
	return fmt.Sprintf("n%d", s.nodes)
}

func (s *SequentialIDs) EdgeID() string {
	s.edges++
	return fmt.Sprintf("e%d", s.edges)
}
