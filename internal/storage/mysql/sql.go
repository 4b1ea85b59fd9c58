package mysql

const upsertSnapshotSQL = `
INSERT INTO deal_snapshots
  (deal_id, title, label, card_label, lead_entry_id, lead_price, lead_start, lead_airport_id,
   price_count, enabled_count, calendar, raw)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  title           = VALUES(title),
  label           = VALUES(label),
  card_label      = VALUES(card_label),
  lead_entry_id   = VALUES(lead_entry_id),
  lead_price      = VALUES(lead_price),
  lead_start      = VALUES(lead_start),
  lead_airport_id = VALUES(lead_airport_id),
  price_count     = VALUES(price_count),
  enabled_count   = VALUES(enabled_count),
  calendar        = VALUES(calendar),
  raw             = VALUES(raw),
  updated_at      = CURRENT_TIMESTAMP
`

const deleteSnapshotSQL = `DELETE FROM deal_snapshots WHERE deal_id = ?`

const insertMissSQL = `
INSERT INTO deal_sync_misses (deal_id, http_status, reason)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE
  http_status = VALUES(http_status),
  reason      = VALUES(reason),
  seen_at     = CURRENT_TIMESTAMP
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const snapshotColumns = `
  deal_id, title, label, card_label, lead_entry_id, lead_price, lead_start, lead_airport_id,
  price_count, enabled_count, calendar, raw`

const getSnapshotSQL = `SELECT` + snapshotColumns + `
FROM deal_snapshots
WHERE deal_id = ?
`

// Deals without a lead price sort last; deal_id keeps the order stable.
const listSnapshotsSQL = `SELECT` + snapshotColumns + `
FROM deal_snapshots
WHERE (? IS NULL OR lead_price <= ?)
ORDER BY lead_price IS NULL, lead_price, deal_id
LIMIT ?
`
