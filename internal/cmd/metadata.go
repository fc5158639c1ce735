package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tinkerbell/vultrds/internal/metadata"
)

func newMetadataCommand(root *RootCommand) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Print instance metadata",
		Long: `Fetch instance metadata from the metadata API. With --field a single endpoint is printed
verbatim. Otherwise the v1.json instance document is filtered through the jq expression given by
--query.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if root.Opts.Field != "" && root.Opts.Query != "." {
				return errors.New("--field and --query are mutually exclusive")
			}

			cfg, err := root.Opts.MetadataConfig()
			if err != nil {
				return err
			}
			client := metadata.NewClient(root.log.WithName("metadata"), cfg)

			if root.Opts.Field != "" {
				v, err := client.Fetch(root.ctx, metadata.Field(root.Opts.Field))
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), v)
				return nil
			}

			doc, err := client.Fetch(root.ctx, metadata.FieldV1)
			if err != nil {
				return err
			}

			filtered, err := filterMetadata([]byte(doc), root.Opts.Query)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(filtered))
			return nil
		},
	}

	cmd.Flags().String("field", "", "Print a single metadata field, e.g. hostname or app-wordpress")
	cmd.Flags().String("query", ".", "jq expression applied to the v1.json instance document")

	return cmd
}

// filterMetadata runs filter over the JSON document doc. String results are written raw, other
// results as compact JSON, one per line.
func filterMetadata(doc []byte, filter string) ([]byte, error) {
	var result bytes.Buffer
	query, err := gojq.Parse(filter)
	if err != nil {
		return nil, errors.Wrap(err, "parse query")
	}

	input := make(map[string]interface{})
	if err := json.Unmarshal(doc, &input); err != nil {
		return nil, errors.Wrap(err, "decode instance document")
	}

	iter := query.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}

		if v == nil {
			continue
		}

		switch vv := v.(type) {
		case error:
			return nil, errors.Wrap(vv, "error while filtering with gojq")
		case string:
			result.WriteString(vv)
		default:
			marshalled, err := json.Marshal(vv)
			if err != nil {
				return nil, errors.Wrap(err, "error marshalling jq result")
			}
			result.Write(marshalled)
		}
		result.WriteRune('\n')
	}

	return bytes.TrimSuffix(result.Bytes(), []byte("\n")), nil
}
