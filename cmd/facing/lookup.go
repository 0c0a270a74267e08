package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/couchcryptid/facing-direction-service/internal/domain"
	"github.com/couchcryptid/facing-direction-service/internal/facing"
	"github.com/spf13/cobra"
)

var lookupJSON bool

var lookupCmd = &cobra.Command{
	Use:   "lookup [address]",
	Short: "Infer the facing direction for one address",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLookup,
}

func init() {
	lookupCmd.Flags().BoolVar(&lookupJSON, "json", false, "output the result as JSON")
	rootCmd.AddCommand(lookupCmd)
}

// lookupOutput is the --json rendering of a result.
type lookupOutput struct {
	Address   string  `json:"address"`
	Label     string  `json:"label"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Direction string  `json:"direction"`
	Bearing   int     `json:"bearing"`
	Strategy  string  `json:"strategy"`
	Cached    bool    `json:"cached"`
}

func runLookup(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session := facing.NewSession(a.service(true))
	res, err := session.Search(ctx, strings.Join(args, " "))
	if errors.Is(err, domain.ErrCancelled) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup failed: %w", err)
	}

	if lookupJSON {
		return writeLookupJSON(cmd.OutOrStdout(), res)
	}
	writeLookupText(cmd.OutOrStdout(), res)
	return nil
}

func writeLookupJSON(w io.Writer, res facing.Result) error {
	data, err := json.MarshalIndent(lookupOutput{
		Address:   res.Address,
		Label:     res.Label,
		Lat:       res.Point.Lat,
		Lon:       res.Point.Lon,
		Direction: string(res.Direction.Direction),
		Bearing:   res.Direction.Bearing,
		Strategy:  string(res.Strategy),
		Cached:    res.Cached,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writeLookupText(w io.Writer, res facing.Result) {
	fmt.Fprintf(w, "%s\n", res.Label)
	fmt.Fprintf(w, "  location:  %.6f, %.6f\n", res.Point.Lat, res.Point.Lon)
	fmt.Fprintf(w, "  facing:    %s (%d°)\n", res.Direction.Direction, res.Direction.Bearing)
	source := string(res.Strategy)
	if res.Cached {
		source += ", cached"
	}
	fmt.Fprintf(w, "  strategy:  %s\n", source)
}
