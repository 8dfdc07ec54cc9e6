package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dimitrmo/cygaz/internal/petrol"
)

// FetchOptions configure the one-shot fetch command.
type FetchOptions struct {
	Type petrol.Type
	JSON bool
}

// Fetch scrapes the upstream once and prints the station list, bypassing
// the cache entirely.
func (a *App) Fetch(ctx context.Context, opts FetchOptions) error {
	fetch, err := a.newFetcher()
	if err != nil {
		return err
	}
	defer fetch.Close()

	ctx, cancel := context.WithTimeout(ctx, a.Config.Fetcher.Timeout())
	defer cancel()

	stations, err := fetch.Fetch(ctx, opts.Type)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", opts.Type, err)
	}

	if opts.JSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(petrol.NewPriceList(opts.Type, stations, time.Now()))
	}

	if len(stations) == 0 {
		fmt.Fprintln(os.Stdout, "no stations found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Brand\tCompany\tArea\tDistrict\tPrice\tOffline")
	for _, station := range stations {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%t\n",
			station.Brand,
			station.Company,
			station.Area,
			station.District.Name,
			station.Price.String(),
			station.Offline,
		)
	}
	return writer.Flush()
}
