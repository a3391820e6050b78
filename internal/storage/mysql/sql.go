package mysql

// Sheets are stored as a header row plus JSON-encoded row cells, so a hand
// edited column set survives without schema migrations.

const upsertSheetSQL = `
INSERT INTO sheets (name, header)
VALUES (?, ?)
ON DUPLICATE KEY UPDATE
  header     = VALUES(header),
  updated_at = CURRENT_TIMESTAMP
`

const deleteRowsSQL = `DELETE FROM sheet_rows WHERE sheet = ?`

const insertRowsPrefix = "INSERT INTO sheet_rows (sheet, row_no, cells)\nVALUES "

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const getHeaderSQL = `SELECT header FROM sheets WHERE name = ?`

const listRowsSQL = `
SELECT cells
FROM sheet_rows
WHERE sheet = ?
ORDER BY row_no
`
