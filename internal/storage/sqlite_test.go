package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/rules"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history", "battles.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func redWins(battleID string) *battle.Outcome {
	return &battle.Outcome{
		BattleID:   battleID,
		Seed:       42,
		Winner:     "red",
		Reason:     rules.ReasonDecisive,
		Ticks:      311,
		Casualties: map[core.Faction]int{"red": 1, "blue": 4},
		Survivors: []battle.Survivor{
			{ID: 1, Faction: "red", Type: core.UnitInfantry, Health: 40},
			{ID: 2, Faction: "red", Type: core.UnitArchers, Health: 70, Routed: true},
		},
		Duration: 1500 * time.Millisecond,
	}
}

func stalemate(battleID string) *battle.Outcome {
	return &battle.Outcome{
		BattleID:   battleID,
		Seed:       7,
		Stalemate:  true,
		Reason:     rules.ReasonTickLimit,
		Ticks:      6000,
		Casualties: map[core.Faction]int{"red": 0, "blue": 0},
		Survivors: []battle.Survivor{
			{ID: 1, Faction: "red", Type: core.UnitInfantry, Health: 100},
			{ID: 2, Faction: "blue", Type: core.UnitInfantry, Health: 100},
		},
	}
}

func TestOpenCreatesDatabaseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "battles.db")
	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpenInMemory(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	_, err = store.SaveOutcome(context.Background(), "duel", redWins("b1"))
	require.NoError(t, err)
	recs, err := store.Recent(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestSaveAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	saved, err := store.SaveOutcome(ctx, "duel", redWins("battle-1"))
	require.NoError(t, err)
	_, err = uuid.Parse(saved.ID)
	require.NoError(t, err)

	got, err := store.Get(ctx, saved.ID)
	require.NoError(t, err)

	assert.Equal(t, "battle-1", got.BattleID)
	assert.Equal(t, "duel", got.Scenario)
	assert.Equal(t, int64(42), got.Seed)
	assert.Equal(t, core.Faction("red"), got.Winner)
	assert.False(t, got.Stalemate)
	assert.Equal(t, "last faction standing", got.Reason)
	assert.Equal(t, 311, got.Ticks)
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
	assert.Equal(t, []FactionResult{
		{Faction: "blue", Casualties: 4, Survivors: 0},
		{Faction: "red", Casualties: 1, Survivors: 2},
	}, got.Factions)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestGetMissing(t *testing.T) {
	store := openTestStore(t)
	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveNilOutcome(t *testing.T) {
	store := openTestStore(t)
	_, err := store.SaveOutcome(context.Background(), "duel", nil)
	assert.Error(t, err)
}

func TestRecentNewestFirstWithFilter(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := store.SaveOutcome(ctx, "duel", redWins(id))
		require.NoError(t, err)
	}
	_, err := store.SaveOutcome(ctx, "skirmish", stalemate("d"))
	require.NoError(t, err)

	all, err := store.Recent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "d", all[0].BattleID)
	assert.Equal(t, "a", all[3].BattleID)
	assert.Len(t, all[0].Factions, 2)

	limited, err := store.Recent(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	duels, err := store.Recent(ctx, "duel", 10)
	require.NoError(t, err)
	require.Len(t, duels, 3)
	assert.Equal(t, "c", duels[0].BattleID)
}

func TestSummary(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.SaveOutcome(ctx, "duel", redWins("a"))
	require.NoError(t, err)
	_, err = store.SaveOutcome(ctx, "duel", redWins("b"))
	require.NoError(t, err)
	_, err = store.SaveOutcome(ctx, "duel", stalemate("c"))
	require.NoError(t, err)

	summary, err := store.Summary(ctx)
	require.NoError(t, err)

	assert.Equal(t, []FactionSummary{
		{Faction: "blue", Battles: 3, Wins: 0, Losses: 2, Draws: 1, Casualties: 8},
		{Faction: "red", Battles: 3, Wins: 2, Losses: 0, Draws: 1, Casualties: 2},
	}, summary)
}

func TestClear(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.SaveOutcome(ctx, "duel", redWins("a"))
	require.NoError(t, err)
	require.NoError(t, store.Clear(ctx))

	recs, err := store.Recent(ctx, "", 10)
	require.NoError(t, err)
	assert.Empty(t, recs)

	summary, err := store.Summary(ctx)
	require.NoError(t, err)
	assert.Empty(t, summary)
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "battles.db")
	store, err := Open(path)
	require.NoError(t, err)
	saved, err := store.SaveOutcome(context.Background(), "duel", redWins("a"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Get(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", got.BattleID)
}
