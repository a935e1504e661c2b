// Package seed holds the static catalog and sample history shipped with the
// service, in the wire format of the record store.
package seed

import (
	"bytes"
	"cmp"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dukex/flowdeck/pkg/recordstore"
)

//go:embed data/*.json
var files embed.FS

// Dataset holds the seed records of every table.
type Dataset struct {
	Workflows       []recordstore.Record
	AppIntegrations []recordstore.Record
	Templates       []recordstore.Record
	ExecutionLogs   []recordstore.Record
}

// Default decodes the embedded dataset.
func Default() (*Dataset, error) {
	dataset := &Dataset{}

	for table, target := range dataset.tables() {
		body, err := files.ReadFile("data/" + table + ".json")
		if err != nil {
			return nil, fmt.Errorf("failed to read seed %s: %w", table, err)
		}

		decoder := json.NewDecoder(bytes.NewReader(body))
		decoder.UseNumber()

		err = decoder.Decode(target)
		if err != nil {
			return nil, fmt.Errorf("failed to decode seed %s: %w", table, err)
		}
	}

	return dataset, nil
}

func (d *Dataset) tables() map[string]*[]recordstore.Record {
	return map[string]*[]recordstore.Record{
		recordstore.TableWorkflow:       &d.Workflows,
		recordstore.TableAppIntegration: &d.AppIntegrations,
		recordstore.TableTemplate:       &d.Templates,
		recordstore.TableExecutionLog:   &d.ExecutionLogs,
	}
}

// Load writes the dataset into every table of the store that is still empty.
// Records are created in Id order so a fresh store assigns the seed ids.
func Load(ctx context.Context, logger *slog.Logger, client recordstore.Client, dataset *Dataset) error {
	for _, table := range recordstore.Tables {
		records := slices.Clone(*dataset.tables()[table.Name])
		if len(records) == 0 {
			continue
		}

		existing, err := client.FetchRecords(ctx, table.Name, recordstore.Query{
			PagingInfo: &recordstore.PagingInfo{Limit: 1},
		})
		if err != nil {
			return fmt.Errorf("failed to inspect %s: %w", table.Name, err)
		}

		if !existing.Success {
			return fmt.Errorf("failed to inspect %s: %s", table.Name, existing.Message)
		}

		if len(existing.Data) > 0 {
			logger.Debug("table already populated, skipping seed", "table", table.Name)

			continue
		}

		slices.SortFunc(records, func(a, b recordstore.Record) int {
			x, _ := a.ID()
			y, _ := b.ID()

			return cmp.Compare(x, y)
		})

		stripped := make([]recordstore.Record, len(records))
		for i, record := range records {
			stripped[i] = record.Clone()
			delete(stripped[i], recordstore.IDField)
		}

		resp, err := client.CreateRecord(ctx, table.Name, recordstore.CreateRequest{Records: stripped})
		if err != nil {
			return fmt.Errorf("failed to seed %s: %w", table.Name, err)
		}

		if !resp.Success {
			return fmt.Errorf("failed to seed %s: %s", table.Name, resp.Message)
		}

		for _, result := range resp.Results {
			if !result.Success {
				return fmt.Errorf("failed to seed %s: %s", table.Name, result.Message)
			}
		}

		logger.Info("seeded table", "table", table.Name, "records", len(records))
	}

	return nil
}
