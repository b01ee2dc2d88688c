package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/geocontext/internal/seed"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the spatial cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry count and hit counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		stats, err := env.Cache.Stats(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Entries:  %d\n", stats.Entries)
		fmt.Printf("Hits:     %d\n", stats.Hits)
		fmt.Printf("Misses:   %d\n", stats.Misses)
		fmt.Printf("Expired:  %d\n", stats.Expired)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Cache.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("cache cleared")
		return nil
	},
}

var (
	warmShapefile string
	warmAttribute string
)

var cacheWarmCmd = &cobra.Command{
	Use:   "warm <service-key>",
	Short: "Preload the cache for a service from a polygon shapefile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("warm"); err != nil {
			return err
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		desc, ok := env.Registry.GetByKey(args[0])
		if !ok {
			return fmt.Errorf("unknown service %q", args[0])
		}

		loader := seed.New(env.Cache, nil)
		n, err := loader.Warm(cmd.Context(), desc, warmShapefile, warmAttribute)
		if err != nil {
			return err
		}
		fmt.Printf("inserted %d entries for %s\n", n, desc.Key)
		return nil
	},
}

func init() {
	cacheWarmCmd.Flags().StringVar(&warmShapefile, "shapefile", "", "path to the .shp file")
	cacheWarmCmd.Flags().StringVar(&warmAttribute, "attribute", "", "DBF attribute holding the context value")
	_ = cacheWarmCmd.MarkFlagRequired("shapefile")
	_ = cacheWarmCmd.MarkFlagRequired("attribute")

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheWarmCmd)
	rootCmd.AddCommand(cacheCmd)
}
