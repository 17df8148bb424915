package aisdk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleValid(t *testing.T) {
	tests := []struct {
		role Role
		want bool
	}{
		{RoleSystem, true},
		{RoleUser, true},
		{RoleAssistant, true},
		{Role("tool"), false},
		{Role(""), false},
		{Role("User"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.Valid())
		})
	}
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("assistant")
	require.NoError(t, err)
	assert.Equal(t, RoleAssistant, r)

	_, err = ParseRole("narrator")
	assert.Error(t, err)
}

func TestConversationAppendKeepsOrder(t *testing.T) {
	conv := NewConversation()
	assert.Equal(t, 0, conv.Len())
	assert.Empty(t, conv.Snapshot())

	conv.Append(UserMessage("hi"))
	conv.Append(AssistantMessage("hello"))
	conv.Append(UserMessage("hi"))

	assert.Equal(t, 3, conv.Len())
	assert.Equal(t, []Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
		{Role: RoleUser, Content: "hi"},
	}, conv.Snapshot())
}

func TestConversationSnapshotIsACopy(t *testing.T) {
	conv := NewConversation(UserMessage("a"))

	snap := conv.Snapshot()
	snap[0].Content = "mutated"
	_ = append(snap, UserMessage("b"))

	assert.Equal(t, "a", conv.Snapshot()[0].Content)
	assert.Equal(t, 1, conv.Len())
}

func TestNewConversationCopiesSeed(t *testing.T) {
	seed := []Message{UserMessage("q"), AssistantMessage("a")}
	conv := NewConversation(seed...)
	seed[0].Content = "changed"

	assert.Equal(t, "q", conv.Snapshot()[0].Content)
}
