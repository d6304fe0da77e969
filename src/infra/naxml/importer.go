package naxml

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/contre95/posxchange/src/exchange"
)

// Record element names per document type.
const (
	transactionRecord = "saleevent"
	departmentRecord  = "depdetail"
	tenderRecord      = "tenderdetail"
	taxRateRecord     = "taxratedetail"
)

// RecordCounter is the default exchange.Importer. It counts the record elements of each document
// and hands nothing downstream; deployments replace it with real importers.
type RecordCounter struct {
	logger *slog.Logger
}

// NewRecordCounter creates a new RecordCounter.
func NewRecordCounter(logger *slog.Logger) *RecordCounter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordCounter{logger: logger}
}

func (r *RecordCounter) ImportTransactions(ctx context.Context, sc exchange.StoreContext, content []byte) (exchange.ImportResult, error) {
	return r.count(ctx, sc, content, transactionRecord)
}

func (r *RecordCounter) ImportDepartments(ctx context.Context, sc exchange.StoreContext, content []byte) (exchange.ImportResult, error) {
	return r.count(ctx, sc, content, departmentRecord)
}

func (r *RecordCounter) ImportTenderTypes(ctx context.Context, sc exchange.StoreContext, content []byte) (exchange.ImportResult, error) {
	return r.count(ctx, sc, content, tenderRecord)
}

func (r *RecordCounter) ImportTaxRates(ctx context.Context, sc exchange.StoreContext, content []byte) (exchange.ImportResult, error) {
	return r.count(ctx, sc, content, taxRateRecord)
}

func (r *RecordCounter) count(ctx context.Context, sc exchange.StoreContext, content []byte, element string) (exchange.ImportResult, error) {
	if err := ctx.Err(); err != nil {
		return exchange.ImportResult{}, err
	}
	content, err := normalizeBOM(content)
	if err != nil {
		return exchange.ImportResult{}, err
	}
	decoder := xml.NewDecoder(bytes.NewReader(content))
	decoder.CharsetReader = charsetReader

	n := 0
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return exchange.ImportResult{}, fmt.Errorf("failed to read records: %w", err)
		}
		if el, ok := tok.(xml.StartElement); ok && strings.ToLower(el.Name.Local) == element {
			n++
		}
	}
	r.logger.Debug("RecordCounter.count: counted records", "store_id", sc.StoreID, "element", element, "records", n)
	return exchange.ImportResult{RecordCount: n}, nil
}
