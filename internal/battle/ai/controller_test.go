package ai

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
)

func formationView(id core.FormationID, faction core.Faction, x, y, strength, health float64) FormationView {
	return FormationView{
		ID:       id,
		Faction:  faction,
		Centroid: core.V(x, y),
		Strength: strength,
		Health:   health,
		Living:   4,
	}
}

func newController() *Controller {
	return NewController("red", DefaultTuning(), zerolog.Nop())
}

func TestDecideRoutedSideGivesNoOrders(t *testing.T) {
	c := newController()
	view := View{
		Self:          "red",
		Routed:        true,
		OwnStrength:   100,
		EnemyStrength: 10,
		Own:           []FormationView{formationView(1, "red", 0, 0, 100, 400)},
		Enemies:       []FormationView{formationView(2, "blue", 5, 0, 10, 40)},
	}

	assert.Empty(t, c.Decide(0, view))
}

func TestDecideRetreatsWhenOutnumbered(t *testing.T) {
	c := newController()
	view := View{
		Self:          "red",
		OwnStrength:   10,
		EnemyStrength: 100,
		Own:           []FormationView{formationView(1, "red", 10, 10, 10, 50)},
		Enemies:       []FormationView{formationView(2, "blue", 14, 10, 100, 500)},
		Fallback:      core.V(1, 1),
	}

	cmds := c.Decide(0, view)

	require.Len(t, cmds, 1)
	assert.Equal(t, core.FormationID(1), cmds[0].Formation)
	assert.Equal(t, core.OrderRetreat, cmds[0].Order.Kind)
	assert.Equal(t, core.V(1, 1), cmds[0].Order.Target)
}

func TestDecideAttacksWeakestInRange(t *testing.T) {
	testCases := []struct {
		name    string
		enemies []FormationView
		want    core.FormationID
	}{
		{
			name: "lowest strength wins",
			enemies: []FormationView{
				formationView(5, "blue", 16, 10, 30, 300),
				formationView(6, "blue", 18, 10, 20, 200),
			},
			want: 6,
		},
		{
			name: "strength tie goes to the nearer",
			enemies: []FormationView{
				formationView(5, "blue", 18, 10, 20, 200),
				formationView(6, "blue", 15, 10, 20, 200),
			},
			want: 6,
		},
		{
			name: "strength and distance tie goes to lower health",
			enemies: []FormationView{
				formationView(5, "blue", 15, 10, 20, 200),
				formationView(6, "blue", 5, 10, 20, 150),
			},
			want: 6,
		},
		{
			name: "out of range enemies are ignored",
			enemies: []FormationView{
				formationView(5, "blue", 15, 10, 30, 300),
				formationView(6, "blue", 60, 10, 5, 20),
			},
			want: 5,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newController()
			view := View{
				Self:          "red",
				OwnStrength:   200,
				EnemyStrength: 50,
				Own:           []FormationView{formationView(1, "red", 10, 10, 200, 800)},
				Enemies:       tc.enemies,
			}

			cmds := c.Decide(0, view)

			require.Len(t, cmds, 1)
			assert.Equal(t, core.OrderAttack, cmds[0].Order.Kind)
			assert.Equal(t, tc.want, cmds[0].Order.TargetFormation)
		})
	}
}

func TestDecideConcentratesAllFormations(t *testing.T) {
	c := newController()
	view := View{
		Self:          "red",
		OwnStrength:   300,
		EnemyStrength: 50,
		Own: []FormationView{
			formationView(1, "red", 10, 10, 150, 400),
			formationView(2, "red", 10, 20, 150, 400),
		},
		Enemies: []FormationView{
			formationView(7, "blue", 15, 10, 40, 200),
			formationView(8, "blue", 15, 20, 10, 50),
		},
	}

	cmds := c.Decide(0, view)

	require.Len(t, cmds, 2)
	for _, cmd := range cmds {
		assert.Equal(t, core.FormationID(8), cmd.Order.TargetFormation)
	}
}

func TestDecideAdvancesWithoutMargin(t *testing.T) {
	c := newController()
	view := View{
		Self:          "red",
		OwnStrength:   100,
		EnemyStrength: 100,
		Own:           []FormationView{formationView(1, "red", 10, 10, 100, 400)},
		Enemies: []FormationView{
			formationView(5, "blue", 30, 10, 50, 200),
			formationView(6, "blue", 20, 10, 50, 200),
		},
	}

	cmds := c.Decide(0, view)

	require.Len(t, cmds, 1)
	assert.Equal(t, core.OrderMoveTo, cmds[0].Order.Kind)
	assert.Equal(t, core.V(20, 10), cmds[0].Order.Target)
}

func TestDecideAdvancesWhenNothingInRange(t *testing.T) {
	c := newController()
	view := View{
		Self:          "red",
		OwnStrength:   200,
		EnemyStrength: 50,
		Own:           []FormationView{formationView(1, "red", 0, 0, 200, 800)},
		Enemies:       []FormationView{formationView(5, "blue", 50, 0, 50, 200)},
	}

	cmds := c.Decide(0, view)

	require.Len(t, cmds, 1)
	assert.Equal(t, core.OrderMoveTo, cmds[0].Order.Kind)
}

func TestDecideDoesNotRepeatStandingOrders(t *testing.T) {
	c := newController()
	view := View{
		Self:          "red",
		OwnStrength:   100,
		EnemyStrength: 100,
		Own:           []FormationView{formationView(1, "red", 0, 0, 100, 400)},
		Enemies:       []FormationView{formationView(5, "blue", 40, 0, 100, 400)},
	}

	require.Len(t, c.Decide(0, view), 1)

	// Target drifted less than ReissueDistance.
	view.Enemies[0].Centroid = core.V(41, 0)
	assert.Empty(t, c.Decide(10, view))

	view.Enemies[0].Centroid = core.V(45, 0)
	assert.Len(t, c.Decide(20, view), 1)

	c.Forget(1)
	assert.Len(t, c.Decide(30, view), 1)
}

func TestDecideWithoutEnemies(t *testing.T) {
	c := newController()
	view := View{
		Self:        "red",
		OwnStrength: 100,
		Own:         []FormationView{formationView(1, "red", 0, 0, 100, 400)},
	}

	assert.Empty(t, c.Decide(0, view))
}

func TestDue(t *testing.T) {
	c := NewController("red", Tuning{DecisionInterval: 5}, zerolog.Nop())
	assert.True(t, c.Due(0))
	assert.False(t, c.Due(3))
	assert.True(t, c.Due(10))

	every := NewController("blue", Tuning{}, zerolog.Nop())
	assert.True(t, every.Due(7))
	assert.Equal(t, core.Faction("blue"), every.Faction())
}
