package bcbApi

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/KotFed0t/liberdade/internal/externalApi"
	"github.com/KotFed0t/liberdade/internal/model/marketModel"
	"github.com/KotFed0t/liberdade/utils"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
)

const (
	headerDate  = "DATA MOV"
	headerCode  = "CODIGO ISIN"
	headerPrice = "PU MED"

	// positions used when the header doesn't carry the expected names
	fallbackDateIdx  = 0
	fallbackCodeIdx  = 1
	fallbackPriceIdx = 3
)

var ErrNoTable = errors.New("archive has no csv entry")

// ParseArchive reads the first csv/txt entry of a negotiation archive.
// The table is ';' separated and ISO-8859-1 encoded. Rows whose date or
// price can't be parsed are dropped.
func ParseArchive(data []byte) ([]marketModel.ArchiveTrade, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", externalApi.ErrMalformed, err)
	}

	var entry *zip.File
	for _, f := range zr.File {
		name := strings.ToLower(f.Name)
		if strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".txt") {
			entry = f
			break
		}
	}
	if entry == nil {
		return nil, ErrNoTable
	}

	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return parseTable(charmap.ISO8859_1.NewDecoder().Reader(rc))
}

func parseTable(r io.Reader) ([]marketModel.ArchiveTrade, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %w", externalApi.ErrMalformed, err)
	}

	dateIdx, codeIdx, priceIdx := indexOf(header, headerDate), indexOf(header, headerCode), indexOf(header, headerPrice)
	if codeIdx < 0 || priceIdx < 0 {
		dateIdx, codeIdx, priceIdx = fallbackDateIdx, fallbackCodeIdx, fallbackPriceIdx
	}
	if dateIdx < 0 {
		dateIdx = fallbackDateIdx
	}
	maxIdx := max(dateIdx, codeIdx, priceIdx)

	var trades []marketModel.ArchiveTrade
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return nil, err
		}
		if len(row) <= maxIdx {
			continue
		}

		date, ok := parseTradeDate(row[dateIdx])
		if !ok {
			continue
		}
		price, ok := utils.ParseLocaleDecimal(row[priceIdx])
		if !ok {
			continue
		}

		trades = append(trades, marketModel.ArchiveTrade{
			Date:         date,
			Code:         strings.TrimSpace(row[codeIdx]),
			AveragePrice: price,
		})
	}

	return trades, nil
}

// LatestPrice returns the average price of the latest trade of code.
// Ties on date go to the later row.
func LatestPrice(trades []marketModel.ArchiveTrade, code string) (decimal.Decimal, bool) {
	var (
		latest time.Time
		price  decimal.Decimal
		found  bool
	)
	for _, t := range trades {
		if !strings.EqualFold(t.Code, code) {
			continue
		}
		if !found || !t.Date.Before(latest) {
			latest = t.Date
			price = t.AveragePrice
			found = true
		}
	}
	return price, found
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

var tradeDateLayouts = []string{"02/01/2006", "2/1/2006", "2006-01-02", "02/01/06"}

func parseTradeDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	for _, layout := range tradeDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
