package graphstreams

import (
	"fmt"
	"maps"
	"slices"

	"github.com/edgeflare/graphstreams/pkg/sink"
	"github.com/edgeflare/graphstreams/pkg/streams"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective sink configuration",
	Long:  `Print the sink properties after defaults, aliases and --set flags are applied, then validate them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		props := streamsProperties()
		out := cmd.OutOrStdout()
		for _, k := range slices.Sorted(maps.Keys(props)) {
			v := props[k]
			if k == streams.KeySASLPassword && v != "" {
				v = "********"
			}
			fmt.Fprintf(out, "%s=%s\n", k, v)
		}
		_, err := sink.ParseConfig(props)
		return err
	},
}

func init() {
	configCmd.Flags().StringToStringVar(&overrides, "set", nil, "sink property, eg --set kafka.group.id=ingest (repeatable)")
}
