package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShow_UnmarshalKeepsUnknownFields(t *testing.T) {
	var s Show
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","title":"X","seats":[1,2],"sold":true}`), &s))

	assert.Equal(t, "a", s.ID)
	require.NotNil(t, s.Sold)
	assert.True(t, *s.Sold)
	assert.Nil(t, s.Ready)
	assert.JSONEq(t, `"X"`, string(s.Extra["title"]))
	assert.JSONEq(t, `[1,2]`, string(s.Extra["seats"]))

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a","title":"X","seats":[1,2],"sold":true}`, string(out))
}

func TestShow_MarshalSortsKeysAndKeepsValues(t *testing.T) {
	var s Show
	require.NoError(t, json.Unmarshal([]byte(`{"z":2,"id":"x","a":{"n":1.50},"ready":false}`), &s))

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"n":1.50},"id":"x","ready":false,"z":2}`, string(out))
}

func TestShow_NonStringIDIsPreservedButNotAKey(t *testing.T) {
	var s Show
	require.NoError(t, json.Unmarshal([]byte(`{"id":7,"ready":"yes"}`), &s))

	assert.Empty(t, s.ID)
	assert.Nil(t, s.Ready)

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7,"ready":"yes"}`, string(out))
}

func TestShow_SetFlagReplacesNonBooleanValue(t *testing.T) {
	var s Show
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","ready":"yes","sold":null}`), &s))

	s.SetFlag(FieldReady, false)
	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a","ready":false,"sold":null}`, string(out))
}

func TestShow_RejectsNonObject(t *testing.T) {
	var shows []Show
	assert.Error(t, json.Unmarshal([]byte(`[null]`), &shows))
	assert.Error(t, json.Unmarshal([]byte(`["a"]`), &shows))
}

func TestShowEvent_Payload(t *testing.T) {
	ev := NewFieldEvent("a", FieldIntervalDone, true)
	assert.Equal(t, EventUpdateInterval, ev.Name)
	assert.Equal(t, map[string]any{"showId": "a", "intervalDone": true}, ev.Payload())

	assert.Nil(t, NewClearEvent().Payload())
	assert.Equal(t, EventUpdateSold, EventForField(FieldSold))
	assert.Equal(t, EventUpdateReady, EventForField(FieldReady))
	assert.False(t, Field("title").Valid())
}
