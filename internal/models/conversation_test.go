package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPairKeyIsOrderIndependent(t *testing.T) {
	assert.Equal(t, PairKey(3, 7), PairKey(7, 3))
	// ids sort as strings, not numbers
	assert.Equal(t, "10_9", PairKey(9, 10))
	assert.Equal(t, "10_9", PairKey(10, 9))
}

func TestConversationParticipants(t *testing.T) {
	c := &Conversation{Participants: []uint{4, 9}}
	assert.True(t, c.HasParticipant(4))
	assert.False(t, c.HasParticipant(5))
	assert.Equal(t, uint(9), c.Other(4))
	assert.Equal(t, uint(4), c.Other(9))
}

func TestStoryViewedBy(t *testing.T) {
	s := &Story{Viewers: []uint{2, 3}}
	assert.True(t, s.ViewedBy(3))
	assert.False(t, s.ViewedBy(1))
}
