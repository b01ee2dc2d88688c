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
	resolveX    float64
	resolveY    float64
	resolveSRID int
	resolveJSON bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <service-key>...",
	Short: "Resolve context values at a point",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("resolve"); err != nil {
			return err
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		pt := geo.Point{X: resolveX, Y: resolveY, SRID: resolveSRID}

		if len(args) == 1 {
			val, err := env.Resolver.Resolve(cmd.Context(), pt, args[0])
			if err != nil {
				return err
			}

			if resolveJSON {
				return json.NewEncoder(os.Stdout).Encode(val)
			}

			fmt.Printf("Service:  %s (%s)\n", val.Key, val.Name)
			fmt.Printf("Point:    %s\n", pt)
			if val.Found {
				fmt.Printf("Value:    %s\n", val.Value)
			} else {
				fmt.Println("Value:    (no matching feature)")
			}
			fmt.Printf("Cached:   %t\n", val.Cached)
			if val.SourceURI != "" {
				fmt.Printf("Source:   %s\n", val.SourceURI)
			}
			return nil
		}

		results := env.Resolver.ResolveKeys(cmd.Context(), pt, args)
		if resolveJSON {
			return json.NewEncoder(os.Stdout).Encode(results)
		}
		for _, m := range results {
			switch {
			case m.Error != "":
				fmt.Printf("%-24s error: %s\n", m.Key, m.Error)
			case !m.Value.Found:
				fmt.Printf("%-24s (no matching feature)\n", m.Key)
			default:
				fmt.Printf("%-24s %s\n", m.Key, m.Value.Value)
			}
		}
		return nil
	},
}

func init() {
	resolveCmd.Flags().Float64Var(&resolveX, "x", 0, "x coordinate (longitude for EPSG:4326)")
	resolveCmd.Flags().Float64Var(&resolveY, "y", 0, "y coordinate (latitude for EPSG:4326)")
	resolveCmd.Flags().IntVar(&resolveSRID, "srid", registry.DefaultSRID, "spatial reference of the input point")
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "emit JSON instead of text")
	_ = resolveCmd.MarkFlagRequired("x")
	_ = resolveCmd.MarkFlagRequired("y")
	rootCmd.AddCommand(resolveCmd)
}
