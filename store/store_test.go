package store

import (
	"testing"

	"github.com/firstpersontravel/charter-sub005/core"
	. "github.com/firstpersontravel/charter-sub005/util/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryImpl(t *testing.T) {
	var _ TripStore = NewMemory()
}

func TestApply(t *testing.T) {
	trip := &core.Trip{
		ID: "t",
		Players: []*core.Player{
			{ID: "p1", RoleName: "Traveler"},
			{ID: "p2", RoleName: "Guide"},
		},
	}

	unapplied := Apply(trip, []core.ResultOp{
		&core.UpdateTripFields{Fields: core.Values{
			"currentSceneName": "TOUR",
			"schedule":         map[string]interface{}{"dinner": "2017-02-16T21:00:00Z"},
		}},
		&core.UpdateTripValues{Values: core.Values{"monkeys": float64(3)}},
		&core.UpdateTripHistory{History: core.Values{"greeting": "2017-02-16T20:00:00Z"}},
		&core.Log{Level: core.LevelInfo, Message: "hi"},
		&core.UpdatePlayerFields{RoleName: "Traveler", Fields: core.Values{
			"currentPageName": "TOUR-START",
			"directive":       "ignored",
			"audio":           core.Values{"name": "intro", "isPlaying": true},
		}},
		&core.CreateMessage{Fields: core.Values{"content": "yo"}},
		&core.SwitchRole{RoleName: "Guide", NewRole: "Host"},
	})

	require.Len(t, unapplied, 2)
	assert.Equal(t, "log", unapplied[0].Operation())
	assert.Equal(t, "createMessage", unapplied[1].Operation())

	assert.Equal(t, "TOUR", trip.CurrentSceneName)
	assert.True(t, At("2017-02-16T21:00:00Z").Equal(trip.Schedule["dinner"]))
	assert.True(t, At("2017-02-16T20:00:00Z").Equal(trip.History["greeting"]))
	assert.Equal(t, float64(3), trip.Values["monkeys"])
	assert.Equal(t, "TOUR-START", trip.Players[0].CurrentPageName)
	assert.Equal(t, true, trip.Players[0].Audio["isPlaying"])
	assert.Equal(t, "Host", trip.Players[1].RoleName)

	Apply(trip, []core.ResultOp{
		&core.UpdatePlayerFields{PlayerID: "p1", Fields: core.Values{
			"currentPageName": nil,
			"audio":           nil,
		}},
	})
	assert.Equal(t, "", trip.Players[0].CurrentPageName)
	assert.Nil(t, trip.Players[0].Audio)
}

