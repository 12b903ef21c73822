package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/config"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/scenario"
)

var flagUnitsList bool

var unitsCmd = &cobra.Command{
	Use:   "units [scenario]",
	Short: "Show the unit data table",
	Long: `Print the built-in unit table, or the table as a scenario overrides it.
With --list, print the builtin scenarios instead.

Examples:
  battlesim units
  battlesim units river_ford
  battlesim units --list`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUnits,
}

func init() {
	unitsCmd.Flags().BoolVar(&flagUnitsList, "list", false, "List builtin scenarios")
}

func runUnits(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if flagUnitsList {
		fmt.Fprintln(out, "Builtin scenarios:")
		fmt.Fprintln(out)
		for _, name := range scenario.BuiltinNames() {
			f, err := scenario.Builtin(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "  %-12s  %-24s  %d units\n", name, f.Name, f.UnitCount())
		}
		return nil
	}

	table := core.DefaultUnitTable()
	if len(args) == 1 {
		f, err := scenario.Resolve(args[0])
		if err != nil {
			return err
		}
		setup, err := f.Build(config.Get().Mapgen)
		if err != nil {
			return err
		}
		table = setup.Units
	}

	fmt.Fprintf(out, "  %-12s  %6s  %6s  %6s  %6s  %6s  %8s  %s\n", "Type", "Health", "Attack", "Def", "Speed", "Range", "Cooldown", "Ranged")
	fmt.Fprintf(out, "  %-12s  %6s  %6s  %6s  %6s  %6s  %8s  %s\n", "----", "------", "------", "---", "-----", "-----", "--------", "------")
	for _, t := range table.Types() {
		s := table[t]
		fmt.Fprintf(out, "  %-12s  %6.0f  %6.1f  %6.1f  %6.2f  %6.1f  %8.2f  %t\n",
			t, s.MaxHealth, s.Attack, s.Defense, s.Speed, s.Range, s.AttackCooldown, s.Ranged)
	}
	return nil
}
