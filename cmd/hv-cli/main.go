package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/healthvault/sdk/internal/config"
	"github.com/healthvault/sdk/pkg/person"
	"github.com/healthvault/sdk/pkg/platform"
	"github.com/healthvault/sdk/pkg/thing"
	"github.com/healthvault/sdk/pkg/transport"
	"github.com/healthvault/sdk/pkg/vocabulary"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hv-cli",
		Short: "HealthVault platform command line client",
	}

	rootCmd.AddCommand(thingsCmd())
	rootCmd.AddCommand(vocabCmd())
	rootCmd.AddCommand(personCmd())
	rootCmd.AddCommand(serviceCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
}

// newConnection loads configuration and opens an authenticated connection.
func newConnection(ctx context.Context) (*transport.HTTPConnection, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	appID, err := cfg.AppUUID()
	if err != nil {
		return nil, nil, err
	}

	conn := transport.NewHTTPConnection(cfg.PlatformURL, appID,
		transport.WithHTTPClient(&http.Client{Timeout: cfg.Timeout()}),
		transport.WithLogger(newLogger(cfg.LogLevel)),
	)
	if err := conn.EnsureSession(ctx); err != nil {
		return nil, nil, fmt.Errorf("establish session: %w", err)
	}
	return conn, cfg, nil
}

func requireRecord(cfg *config.Config) (uuid.UUID, error) {
	id, err := cfg.RecordUUID()
	if err != nil {
		return uuid.Nil, err
	}
	if id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("HV_RECORD_ID is required for this command")
	}
	return id, nil
}

// =========== things ===========

func thingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "things",
		Short: "Query and manage health record items",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List items of a type in the record",
		RunE: func(cmd *cobra.Command, args []string) error {
			typeArg, _ := cmd.Flags().GetString("type")
			max, _ := cmd.Flags().GetInt("max")

			typeID, err := uuid.Parse(typeArg)
			if err != nil {
				return fmt.Errorf("--type is not a valid guid: %w", err)
			}

			ctx := context.Background()
			conn, cfg, err := newConnection(ctx)
			if err != nil {
				return err
			}
			recordID, err := requireRecord(cfg)
			if err != nil {
				return err
			}

			q := &thing.Query{TypeIDs: []uuid.UUID{typeID}}
			if max > 0 {
				q.MaxResults = &max
			}
			col, err := thing.NewClient(conn, nil).GetThingsByQuery(ctx, recordID, q)
			if err != nil {
				return err
			}

			fmt.Printf("%s (%d full, %d total)\n",
				color.CyanString("results"), col.MaxResultsPerRequest(), col.Count())
			for i := 0; i < col.Count(); i++ {
				if col.IsStub(i) {
					fmt.Printf("  %s %s\n", color.YellowString("stub"), col.KeyAt(i).ID)
					continue
				}
				t := col.ThingAt(i)
				fmt.Printf("  %s %s %s\n", color.GreenString(t.Key.ID.String()), t.TypeName, t.EffDate.Format(time.RFC3339))
			}
			return nil
		},
	}
	listCmd.Flags().String("type", thing.WeightTypeID.String(), "Type id to query")
	listCmd.Flags().Int("max", 0, "Maximum results (0 for no cap)")
	cmd.AddCommand(listCmd)

	getCmd := &cobra.Command{
		Use:   "get <thing-id>",
		Short: "Fetch one item by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			thingID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("thing id is not a valid guid: %w", err)
			}

			ctx := context.Background()
			conn, cfg, err := newConnection(ctx)
			if err != nil {
				return err
			}
			recordID, err := requireRecord(cfg)
			if err != nil {
				return err
			}

			t, err := thing.NewClient(conn, nil).GetThing(ctx, recordID, thingID)
			if err != nil {
				return err
			}
			if t == nil {
				fmt.Println(color.YellowString("not found"))
				return nil
			}
			fmt.Printf("%s %s\n", color.CyanString("id:"), t.Key.ID)
			fmt.Printf("%s %s (%s)\n", color.CyanString("type:"), t.TypeName, t.TypeID)
			fmt.Printf("%s %s\n", color.CyanString("state:"), t.State)
			fmt.Printf("%s %s\n", color.CyanString("effective:"), t.EffDate.Format(time.RFC3339))
			fmt.Printf("%s %s\n", color.CyanString("data:"), t.DataXML)
			return nil
		},
	}
	cmd.AddCommand(getCmd)

	putWeightCmd := &cobra.Command{
		Use:   "put-weight <kilograms>",
		Short: "Store a weight measurement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kg, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("kilograms is not a number: %w", err)
			}

			ctx := context.Background()
			conn, cfg, err := newConnection(ctx)
			if err != nil {
				return err
			}
			recordID, err := requireRecord(cfg)
			if err != nil {
				return err
			}

			t := &thing.Thing{Payload: &thing.Weight{When: time.Now(), Kilograms: kg}}
			if err := thing.NewClient(conn, nil).CreateNewThings(ctx, recordID, []*thing.Thing{t}); err != nil {
				return err
			}
			fmt.Printf("%s %s\n", color.GreenString("created"), t.Key.ID)
			return nil
		},
	}
	cmd.AddCommand(putWeightCmd)

	removeCmd := &cobra.Command{
		Use:   "remove <thing-id>...",
		Short: "Remove items from the record",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys := make([]thing.Key, 0, len(args))
			for _, arg := range args {
				id, err := uuid.Parse(arg)
				if err != nil {
					return fmt.Errorf("thing id %q is not a valid guid: %w", arg, err)
				}
				keys = append(keys, thing.Key{ID: id})
			}

			ctx := context.Background()
			conn, cfg, err := newConnection(ctx)
			if err != nil {
				return err
			}
			recordID, err := requireRecord(cfg)
			if err != nil {
				return err
			}

			if err := thing.NewClient(conn, nil).RemoveThings(ctx, recordID, keys); err != nil {
				return err
			}
			fmt.Printf("%s %d item(s)\n", color.GreenString("removed"), len(keys))
			return nil
		},
	}
	cmd.AddCommand(removeCmd)

	return cmd
}

// =========== vocab ===========

func vocabCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "Look up platform vocabularies",
	}

	searchCmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Search vocabulary names",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			max, _ := cmd.Flags().GetInt("max")

			ctx := context.Background()
			conn, _, err := newConnection(ctx)
			if err != nil {
				return err
			}

			var maxResults *int
			if max > 0 {
				maxResults = &max
			}
			keys, err := vocabulary.NewClient(conn).Search(ctx, args[0], maxResults)
			if err != nil {
				return err
			}
			for _, k := range keys {
				fmt.Printf("%s %s/%s v%s %s\n",
					color.GreenString(k.Name), k.Family, k.Name, k.Version, k.Description)
			}
			return nil
		},
	}
	searchCmd.Flags().Int("max", 0, "Maximum results (0 for no cap)")
	cmd.AddCommand(searchCmd)

	getCmd := &cobra.Command{
		Use:   "get <name>",
		Short: "Fetch a vocabulary's code items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			family, _ := cmd.Flags().GetString("family")
			version, _ := cmd.Flags().GetString("version")

			ctx := context.Background()
			conn, _, err := newConnection(ctx)
			if err != nil {
				return err
			}

			v, err := vocabulary.NewClient(conn).Get(ctx, vocabulary.Key{
				Name: args[0], Family: family, Version: version,
			}, false)
			if err != nil {
				return err
			}
			if v.IsTruncated {
				fmt.Println(color.YellowString("warning: vocabulary truncated by the platform"))
			}
			for _, item := range v.Items {
				fmt.Printf("  %s %s\n", color.GreenString(item.Code), item.DisplayText)
			}
			return nil
		},
	}
	getCmd.Flags().String("family", "", "Vocabulary family")
	getCmd.Flags().String("version", "", "Vocabulary version")
	cmd.AddCommand(getCmd)

	return cmd
}

// =========== person ===========

func personCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "person",
		Short: "Show the authenticated person",
	}

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Show the person snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			conn, _, err := newConnection(ctx)
			if err != nil {
				return err
			}

			info, err := person.NewClient(conn).GetPersonInfo(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%s %s\n", color.CyanString("person:"), info.Name)
			fmt.Printf("%s %s\n", color.CyanString("id:"), info.PersonID)
			if info.SelectedRecordID != nil {
				fmt.Printf("%s %s\n", color.CyanString("selected record:"), info.SelectedRecordID)
			}
			return nil
		},
	}
	cmd.AddCommand(infoCmd)

	recordsCmd := &cobra.Command{
		Use:   "records",
		Short: "List records the person can access",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			conn, _, err := newConnection(ctx)
			if err != nil {
				return err
			}

			info, err := person.NewClient(conn).GetPersonInfo(ctx)
			if err != nil {
				return err
			}
			for _, r := range info.Records {
				marker := " "
				if r.IsCustodian {
					marker = color.GreenString("*")
				}
				fmt.Printf("%s %s %s (%s)\n", marker, r.ID, r.Name, r.RelationshipName)
			}
			return nil
		},
	}
	cmd.AddCommand(recordsCmd)

	return cmd
}

// =========== service ===========

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Inspect the platform deployment",
	}

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Show the service definition",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			conn, _, err := newConnection(ctx)
			if err != nil {
				return err
			}

			info, err := platform.NewClient(conn).GetServiceDefinition(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%s %s (version %s)\n", color.CyanString("platform:"), info.PlatformURL, info.PlatformVersion)
			fmt.Printf("%s %s\n", color.CyanString("shell:"), info.ShellURL)
			fmt.Printf("%s %d\n", color.CyanString("methods:"), len(info.Methods))
			for _, inst := range info.Instances {
				marker := " "
				if inst.ID == info.CurrentInstanceID {
					marker = color.GreenString("*")
				}
				fmt.Printf("%s %s %s %s\n", marker, inst.ID, inst.Name, inst.PlatformURL)
			}
			return nil
		},
	}
	cmd.AddCommand(infoCmd)

	return cmd
}
