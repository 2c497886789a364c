package metadata

import (
	"context"
	"database/sql"
	"strings"

	recerrors "github.com/chrsbats/recollex/pkg/errors"
)

// GetDocsByIDs batch-loads docs rows for the given doc_ids. Missing ids are
// simply absent from the returned map — not-found is never an error here.
func (s *Store) GetDocsByIDs(ctx context.Context, ids []uint64) (map[uint64]*DocRow, error) {
	out := make(map[uint64]*DocRow, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = formatDocID(id)
	}

	query := `SELECT doc_id, segment_id, row_offset, seq, text, tags FROM docs WHERE doc_id IN (` +
		strings.Join(placeholders, ",") + `)`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, recerrors.NewMetadataError(err, recerrors.ErrorCodeMetadataQueryFailed, "failed to batch load docs").WithOperation("get_docs_by_ids").WithRowCount(len(ids))
	}
	defer rows.Close()

	for rows.Next() {
		d, err := scanDocRows(rows)
		if err != nil {
			return nil, recerrors.NewMetadataError(err, recerrors.ErrorCodeMetadataQueryFailed, "failed to scan doc row").WithOperation("get_docs_by_ids")
		}
		out[d.DocID] = d
	}
	return out, rows.Err()
}

func scanDocRows(rows *sql.Rows) (*DocRow, error) {
	var d DocRow
	var docIDStr string
	if err := rows.Scan(&docIDStr, &d.SegmentID, &d.RowOffset, &d.Seq, &d.Text, &d.Tags); err != nil {
		return nil, err
	}
	id, err := parseDocID(docIDStr)
	if err != nil {
		return nil, err
	}
	d.DocID = id
	return &d, nil
}
