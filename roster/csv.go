package roster

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/vocdoni/anonvote-node/types"
)

const (
	// HeaderID and HeaderClass are the required column names.
	HeaderID    = "id"
	HeaderClass = "class"

	utf8BOM = "\ufeff"
)

// Result is a parsed and deduplicated roster batch.
type Result struct {
	// Voters holds the canonical rows in first-seen order.
	Voters []types.CanonicalVoter
	// Duplicates counts rows dropped because an identical (id, class) pair
	// appeared earlier in the batch.
	Duplicates int
	// Skipped counts rows with an empty field after normalization.
	Skipped int
}

// Parse reads CSV roster text with an "id,class" header. Column order is
// free and extra columns are ignored, but both required columns must be
// present or the whole batch is rejected.
func Parse(text string) (*Result, error) {
	text = strings.TrimPrefix(text, utf8BOM)
	if strings.TrimSpace(text) == "" {
		return nil, types.ErrCSVEmpty
	}

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, types.ErrCSVFormat.WithErr(err)
	}
	idCol, classCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case HeaderID:
			idCol = i
		case HeaderClass:
			classCol = i
		}
	}
	if idCol < 0 || classCol < 0 {
		return nil, types.ErrInvalidCSVHeaders.Withf("required columns: %s,%s", HeaderID, HeaderClass)
	}

	res := &Result{}
	seen := make(map[string]struct{})
	rows := 0
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, types.ErrCSVFormat.WithErr(err)
		}
		rows++
		voter, ok := Canonicalize(field(record, idCol), field(record, classCol))
		if !ok {
			res.Skipped++
			continue
		}
		if _, dup := seen[voter.Key()]; dup {
			res.Duplicates++
			continue
		}
		seen[voter.Key()] = struct{}{}
		res.Voters = append(res.Voters, voter)
	}
	if rows == 0 {
		return nil, types.ErrCSVNoRows
	}
	if len(res.Voters) == 0 {
		return nil, types.ErrCSVNoValidRows
	}
	return res, nil
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return record[i]
}
