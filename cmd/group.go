package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/geocontext/internal/geo"
	"github.com/sells-group/geocontext/internal/registry"
)

var (
	groupX    float64
	groupY    float64
	groupSRID int
	groupJSON bool
)

var groupCmd = &cobra.Command{
	Use:   "group <group-key>",
	Short: "Resolve every service of a registered group at a point",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("resolve"); err != nil {
			return err
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		pt := geo.Point{X: groupX, Y: groupY, SRID: groupSRID}
		grp, err := env.Resolver.ResolveGroup(cmd.Context(), pt, args[0])
		if err != nil {
			return err
		}

		if groupJSON {
			return json.NewEncoder(os.Stdout).Encode(grp)
		}

		fmt.Printf("Group: %s (%s)\n", grp.Key, grp.Name)
		for _, m := range grp.Services {
			switch {
			case m.Error != "":
				fmt.Printf("  %-24s error: %s\n", m.Key, m.Error)
			case !m.Value.Found:
				fmt.Printf("  %-24s (no matching feature)\n", m.Key)
			default:
				fmt.Printf("  %-24s %s\n", m.Key, m.Value.Value)
			}
		}
		return nil
	},
}

func init() {
	groupCmd.Flags().Float64Var(&groupX, "x", 0, "x coordinate (longitude for EPSG:4326)")
	groupCmd.Flags().Float64Var(&groupY, "y", 0, "y coordinate (latitude for EPSG:4326)")
	groupCmd.Flags().IntVar(&groupSRID, "srid", registry.DefaultSRID, "spatial reference of the input point")
	groupCmd.Flags().BoolVar(&groupJSON, "json", false, "emit JSON instead of text")
	_ = groupCmd.MarkFlagRequired("x")
	_ = groupCmd.MarkFlagRequired("y")
	rootCmd.AddCommand(groupCmd)
}
