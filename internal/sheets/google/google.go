// Package google appends backup rows to a Google spreadsheet using service
// account credentials.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/config"
	ports "fintrack/internal/sheets"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ ports.RowAppender = (*Client)(nil)

// NewFromConfig creates a Sheets client from the loaded configuration.
// Credentials come from GoogleCredentialsJSON or GoogleCredentialsFile.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Client, error) {
	if cfg.GoogleSpreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName := cfg.GoogleSheetName
	if sheetName == "" {
		sheetName = "Records"
	}

	var credentialsJSON []byte
	switch {
	case cfg.GoogleCredentialsJSON != "":
		credentialsJSON = []byte(cfg.GoogleCredentialsJSON)
	case cfg.GoogleCredentialsFile != "":
		data, err := os.ReadFile(cfg.GoogleCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing Google credentials (set GOOGLE_CREDENTIALS_JSON or GOOGLE_CREDENTIALS_FILE)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.GoogleSpreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// AppendRow appends the row below the sheet's existing data.
func (c *Client) AppendRow(ctx context.Context, row []any) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:Z", c.sheetName)
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append row to sheet %s: %w", c.sheetName, err)
	}

	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}
