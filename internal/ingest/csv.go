// Package ingest turns source files into raw trade records. It knows
// nothing about matching: readers map header-named columns onto RawTrade
// attributes and hand everything else to the normalizer untouched.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rawblock/recon-engine/pkg/models"
)

// Exchange-dialect aliases (CME "lots", EEX "units") arrive via the group
// configuration and rewrite the lower-cased header before assignment.
func canonicalColumn(header string, aliases map[string]string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	h = strings.ReplaceAll(h, " ", "_")
	if mapped, ok := aliases[h]; ok {
		return mapped
	}
	return h
}

// ReadCSV parses one side's records from a header-first CSV stream.
// Unrecognized columns are preserved verbatim in Fields for audit. Records
// without an id column get a positional one so the run can refer to them.
func ReadCSV(r io.Reader, idPrefix string, aliases map[string]string) ([]models.RawTrade, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = canonicalColumn(h, aliases)
	}

	var out []models.RawTrade
	row := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", row+1, err)
		}
		row++

		raw := models.RawTrade{Fields: make(map[string]string)}
		for i, value := range record {
			if i >= len(columns) {
				break
			}
			assign(&raw, columns[i], value)
		}
		if raw.ID == "" {
			raw.ID = fmt.Sprintf("%s-%04d", idPrefix, row)
		}
		out = append(out, raw)
	}
	return out, nil
}

// ReadCSVFile is ReadCSV over a file path.
func ReadCSVFile(path, idPrefix string, aliases map[string]string) ([]models.RawTrade, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f, idPrefix, aliases)
}

func assign(raw *models.RawTrade, column, value string) {
	switch column {
	case "id":
		raw.ID = value
	case "exchange_group":
		raw.ExchangeGroup = value
	case "product":
		raw.Product = value
	case "contract_month":
		raw.ContractMonth = value
	case "quantity":
		raw.Quantity = value
	case "unit":
		raw.Unit = value
	case "price":
		raw.Price = value
	case "buy_sell":
		raw.BuySell = value
	case "broker_group_id":
		raw.BrokerGroupID = value
	case "clearing_acct_id":
		raw.ClearingAcctID = value
	case "deal_id":
		raw.DealID = value
	case "trade_id":
		raw.TradeID = value
	case "strike":
		raw.Strike = value
	case "put_call":
		raw.PutCall = value
	case "spread_flag":
		raw.SpreadFlag = value
	case "trade_time":
		raw.TradeTime = value
	default:
		raw.Fields[column] = value
	}
}
