package sheetsimpl

import (
	"context"
	"fmt"

	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/dmvasilenko/blog-parser-telegram-bot/pkg/retry"
)

// ensureSheet returns the numeric id of the worksheet with the given title,
// creating it when the spreadsheet does not have one yet.
func (s *Impl) ensureSheet(ctx context.Context, title string) (int64, error) {
	var sheetID int64
	err := retry.Do(ctx, s.logger, "sheets.ensure", func() error {
		spreadsheet, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to get spreadsheet: %w", err)
		}

		for _, sheet := range spreadsheet.Sheets {
			if sheet.Properties.Title == title {
				sheetID = sheet.Properties.SheetId
				return nil
			}
		}

		response, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
			Requests: []*sheetsapi.Request{{
				AddSheet: &sheetsapi.AddSheetRequest{
					Properties: &sheetsapi.SheetProperties{Title: title},
				},
			}},
		}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to add sheet %q: %w", title, err)
		}

		sheetID = response.Replies[0].AddSheet.Properties.SheetId
		s.logger.Info("created worksheet", "title", title)
		return nil
	}, s.retryCfg)
	return sheetID, err
}

func (s *Impl) clearSheet(ctx context.Context, title string) error {
	return retry.Do(ctx, s.logger, "sheets.clear", func() error {
		_, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, title, &sheetsapi.ClearValuesRequest{}).
			Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to clear sheet %q: %w", title, err)
		}
		return nil
	}, s.retryCfg)
}

func (s *Impl) updateValues(ctx context.Context, rangeA1 string, values [][]any) error {
	return retry.Do(ctx, s.logger, "sheets.update", func() error {
		_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rangeA1, &sheetsapi.ValueRange{Values: values}).
			ValueInputOption("USER_ENTERED").
			Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to update range %q: %w", rangeA1, err)
		}
		return nil
	}, s.retryCfg)
}

func (s *Impl) appendValues(ctx context.Context, rangeA1 string, values [][]any) error {
	return retry.Do(ctx, s.logger, "sheets.append", func() error {
		_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, rangeA1, &sheetsapi.ValueRange{Values: values}).
			ValueInputOption("USER_ENTERED").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to append to range %q: %w", rangeA1, err)
		}
		return nil
	}, s.retryCfg)
}

func (s *Impl) readValues(ctx context.Context, rangeA1 string) ([][]any, error) {
	var rows [][]any
	err := retry.Do(ctx, s.logger, "sheets.read", func() error {
		response, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rangeA1).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to read range %q: %w", rangeA1, err)
		}
		rows = response.Values
		return nil
	}, s.retryCfg)
	return rows, err
}

func (s *Impl) freezeHeader(ctx context.Context, sheetID int64) error {
	return retry.Do(ctx, s.logger, "sheets.format", func() error {
		_, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
			Requests: []*sheetsapi.Request{
				{
					UpdateSheetProperties: &sheetsapi.UpdateSheetPropertiesRequest{
						Properties: &sheetsapi.SheetProperties{
							SheetId:        sheetID,
							GridProperties: &sheetsapi.GridProperties{FrozenRowCount: 1},
						},
						Fields: "gridProperties.frozenRowCount",
					},
				},
				{
					RepeatCell: &sheetsapi.RepeatCellRequest{
						Range: &sheetsapi.GridRange{SheetId: sheetID, StartRowIndex: 0, EndRowIndex: 1},
						Cell: &sheetsapi.CellData{
							UserEnteredFormat: &sheetsapi.CellFormat{
								TextFormat: &sheetsapi.TextFormat{Bold: true},
							},
						},
						Fields: "userEnteredFormat.textFormat.bold",
					},
				},
			},
		}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to format header: %w", err)
		}
		return nil
	}, s.retryCfg)
}
