package metadata

const schema = `
CREATE TABLE IF NOT EXISTS docs (
	doc_id TEXT PRIMARY KEY,
	segment_id TEXT NOT NULL,
	row_offset INTEGER NOT NULL,
	seq INTEGER NOT NULL,
	text TEXT,
	tags TEXT
);
CREATE INDEX IF NOT EXISTS idx_docs_segment_row ON docs(segment_id, row_offset);
CREATE INDEX IF NOT EXISTS idx_docs_seq ON docs(seq);

CREATE TABLE IF NOT EXISTS bitmaps (
	name TEXT PRIMARY KEY,
	data BLOB NOT NULL,
	last_used INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS stats (
	key TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS kv (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`
