package extraction

import (
	"context"
	"io"
	"strings"

	"bitbucket.org/mmdatafocus/gigbooks_backend/utils"
	"github.com/xuri/excelize/v2"
)

// xlsxAdapter reads spreadsheet statement exports. Sheets go through the same
// header-role detection and row pipeline as CSV.
type xlsxAdapter struct{}

func (a *xlsxAdapter) CanHandle(contentType string) bool {
	switch strings.ToLower(contentType) {
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.ms-excel":
		return true
	}
	return false
}

func (a *xlsxAdapter) Extract(ctx context.Context, r io.Reader, policy ProviderPolicy) ([]LineCandidate, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, utils.NewValidationError("open xlsx: " + err.Error())
	}
	defer f.Close()

	var out []LineCandidate
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, utils.NewValidationError("read xlsx sheet " + sheet + ": " + err.Error())
		}
		roles, headerIdx := detectHeader(rows)
		if roles == nil {
			continue
		}
		out = append(out, rowsToCandidates(roles, rows[headerIdx+1:])...)
	}
	if out == nil {
		return nil, utils.NewValidationError("no recognizable header row in xlsx statement")
	}
	return out, nil
}
