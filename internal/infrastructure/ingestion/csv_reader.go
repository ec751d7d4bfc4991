package ingestion

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"fraud-ring-analyzer/internal/domain/entity"
)

// requiredColumns must all be present (after normalization) or the batch is
// rejected before any detector runs. This is the only loud failure in the
// pipeline; per-record problems are skipped or coerced.
var requiredColumns = []string{"sender_id", "receiver_id", "amount", "timestamp"}

// ParseCSV reads an uploaded tabular file into normalized transaction
// records. Header names are lower-cased and trimmed; the delimiter is
// sniffed from the header line (comma or semicolon). Unparseable amounts
// coerce to 0.0 and unparseable timestamps stay raw for the core's
// timestamp parser to reject later.
func ParseCSV(r io.Reader) ([]*entity.Transaction, error) {
	buffered := bufio.NewReader(r)

	reader := csv.NewReader(buffered)
	reader.Comma = sniffDelimiter(buffered)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	names := make([]string, 0, len(header))
	for i, name := range header {
		normalized := strings.ToLower(strings.TrimSpace(name))
		names = append(names, normalized)
		if _, dup := columns[normalized]; !dup {
			columns[normalized] = i
		}
	}

	var missing []string
	for _, required := range requiredColumns {
		if _, ok := columns[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns %v, found: %v", missing, names)
	}

	var transactions []*entity.Transaction
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}

		transactions = append(transactions, &entity.Transaction{
			SenderID:   field(record, columns["sender_id"]),
			ReceiverID: field(record, columns["receiver_id"]),
			Amount:     parseAmount(field(record, columns["amount"])),
			Timestamp:  field(record, columns["timestamp"]),
		})
	}
	return transactions, nil
}

// sniffDelimiter picks semicolon over comma when the header line carries
// more of them. Uploads from spreadsheet exports commonly use either.
func sniffDelimiter(r *bufio.Reader) rune {
	peeked, _ := r.Peek(4096)
	if i := bytes.IndexByte(peeked, '\n'); i >= 0 {
		peeked = peeked[:i]
	}
	if bytes.Count(peeked, []byte{';'}) > bytes.Count(peeked, []byte{','}) {
		return ';'
	}
	return ','
}

func field(record []string, idx int) string {
	if idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// parseAmount coerces parse failures to 0.0 rather than failing the batch.
func parseAmount(raw string) float64 {
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0.0
	}
	return amount
}
