package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/geocontext/internal/registry"
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect the service registry",
}

var registryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered services and groups",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry.LoadFile(cfg.Registry.Path)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tNAME\tPROTOCOL\tLAYER\tSRID")
		for _, d := range reg.All() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", d.Key, d.Name, d.Protocol, d.LayerName, d.SRID)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		groups := reg.Groups()
		if len(groups) > 0 {
			fmt.Println()
			for _, g := range groups {
				fmt.Printf("group %s: %s\n", g.Key, strings.Join(g.Services, ", "))
			}
		}
		return nil
	},
}

var registryShowCmd = &cobra.Command{
	Use:   "show <service-key>",
	Short: "Show one service descriptor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry.LoadFile(cfg.Registry.Path)
		if err != nil {
			return err
		}
		d, ok := reg.GetByKey(args[0])
		if !ok {
			return fmt.Errorf("unknown service %q", args[0])
		}

		fmt.Printf("Key:         %s\n", d.Key)
		fmt.Printf("Name:        %s\n", d.Name)
		if d.Description != "" {
			fmt.Printf("Description: %s\n", d.Description)
		}
		fmt.Printf("Protocol:    %s\n", d.Protocol)
		fmt.Printf("URL:         %s\n", d.URL)
		if d.LayerName != "" {
			fmt.Printf("Layer:       %s\n", d.LayerName)
		}
		if d.ServiceVersion != "" {
			fmt.Printf("Version:     %s\n", d.ServiceVersion)
		}
		fmt.Printf("Rule:        %s\n", d.ExtractionRule)
		fmt.Printf("SRID:        %d\n", d.SRID)
		fmt.Printf("Cache TTL:   %s\n", d.CacheTTL)
		return nil
	},
}

func init() {
	registryCmd.AddCommand(registryListCmd)
	registryCmd.AddCommand(registryShowCmd)
	rootCmd.AddCommand(registryCmd)
}
