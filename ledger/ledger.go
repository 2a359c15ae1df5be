// Package ledger reads and rewrites the CSV content calendar that tracks
// which posts are ready and which have already been published.
package ledger

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
)

// Column names that must be present in the header row
const (
	ColID         = "id"
	ColTitle      = "title"
	ColTags       = "tags"
	ColStatus     = "status"
	ColPostedDate = "posted_date"
	ColContent    = "content"
)

// Columns lists the required columns in their conventional order
var Columns = []string{ColID, ColTitle, ColTags, ColStatus, ColPostedDate, ColContent}

// Record statuses
const (
	StatusReady  = "ready"
	StatusPosted = "posted"
)

// DateFormat is the layout of the posted_date column
const DateFormat = "2006-01-02"

// ErrNoPending means every record has already been posted. It is the normal
// end state of a calendar, not a failure.
var ErrNoPending = errors.New("no ready records in ledger")

// ErrNotFound means a record id was not present in the ledger
var ErrNotFound = errors.New("record not found in ledger")

const utf8BOM = "\ufeff"

// Record is one row of the ledger
type Record struct {
	ID         string
	Title      string
	Tags       []string
	Status     string
	PostedDate string
	Content    string
}

// Ready reports whether the record is waiting to be published
func (r *Record) Ready() bool {
	return isStatus(r.Status, StatusReady)
}

func isStatus(cell, status string) bool {
	return strings.EqualFold(strings.TrimSpace(cell), status)
}

// Ledger is the full record set as read from storage. Rows are kept as raw
// cells so that everything other than the updated cells is written back as
// it was read.
type Ledger struct {
	header []string
	rows   [][]string
	col    map[string]int
	bom    bool
	crlf   bool
}

// Parse decodes a CSV ledger. The header must contain every column in
// Columns, in any order; additional columns are preserved.
func Parse(buf []byte) (*Ledger, error) {
	var l Ledger
	if bytes.HasPrefix(buf, []byte(utf8BOM)) {
		l.bom = true
		buf = buf[len(utf8BOM):]
	}
	if i := bytes.IndexByte(buf, '\n'); i > 0 && buf[i-1] == '\r' {
		l.crlf = true
	}

	r := csv.NewReader(bytes.NewReader(buf))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error parsing ledger csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("ledger has no header row")
	}

	l.header = rows[0]
	l.rows = rows[1:]
	l.col = make(map[string]int)
	for i, name := range l.header {
		name = strings.TrimSpace(name)
		if _, dup := l.col[name]; !dup {
			l.col[name] = i
		}
	}

	var missing []string
	for _, name := range Columns {
		if _, ok := l.col[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("ledger header is missing columns: %s", strings.Join(missing, ", "))
	}

	return &l, nil
}

// Len returns the number of records
func (l *Ledger) Len() int {
	return len(l.rows)
}

// Records returns every record in ledger order
func (l *Ledger) Records() []*Record {
	out := make([]*Record, 0, len(l.rows))
	for _, row := range l.rows {
		out = append(out, l.record(row))
	}
	return out
}

// Pending returns the ready records in ledger order
func (l *Ledger) Pending() []*Record {
	var out []*Record
	for _, row := range l.rows {
		if isStatus(l.cell(row, ColStatus), StatusReady) {
			out = append(out, l.record(row))
		}
	}
	return out
}

// Count returns the number of records with the given status
func (l *Ledger) Count(status string) int {
	var n int
	for _, row := range l.rows {
		if isStatus(l.cell(row, ColStatus), status) {
			n++
		}
	}
	return n
}

// Next returns the first ready record, or ErrNoPending
func (l *Ledger) Next() (*Record, error) {
	for _, row := range l.rows {
		if isStatus(l.cell(row, ColStatus), StatusReady) {
			return l.record(row), nil
		}
	}
	return nil, ErrNoPending
}

// MarkPosted sets status and posted_date on the first ready record with the
// given id. No other cell is touched, except that a row shorter than the
// header is padded with empty cells.
func (l *Ledger) MarkPosted(id, date string) error {
	for i, row := range l.rows {
		if strings.TrimSpace(l.cell(row, ColID)) != id {
			continue
		}
		if !isStatus(l.cell(row, ColStatus), StatusReady) {
			continue
		}
		for len(row) < len(l.header) {
			row = append(row, "")
		}
		row[l.col[ColStatus]] = StatusPosted
		row[l.col[ColPostedDate]] = date
		l.rows[i] = row
		return nil
	}
	return fmt.Errorf("%w: no ready record with id %q", ErrNotFound, id)
}

// Bytes encodes the full ledger, header included
func (l *Ledger) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if l.bom {
		buf.WriteString(utf8BOM)
	}

	w := csv.NewWriter(&buf)
	w.UseCRLF = l.crlf
	if err := w.Write(l.header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(l.rows); err != nil {
		return nil, fmt.Errorf("error encoding ledger csv: %w", err)
	}
	return buf.Bytes(), nil
}

func (l *Ledger) cell(row []string, name string) string {
	i, ok := l.col[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func (l *Ledger) record(row []string) *Record {
	return &Record{
		ID:         strings.TrimSpace(l.cell(row, ColID)),
		Title:      l.cell(row, ColTitle),
		Tags:       ParseTags(l.cell(row, ColTags)),
		Status:     strings.TrimSpace(l.cell(row, ColStatus)),
		PostedDate: l.cell(row, ColPostedDate),
		Content:    l.cell(row, ColContent),
	}
}

// ParseTags splits a comma-separated tags cell, dropping empty entries
func ParseTags(s string) []string {
	var tags []string
	for _, tag := range strings.Split(s, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
