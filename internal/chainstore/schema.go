package chainstore

// migrations holds the schema history in order; schema_meta.version
// records how many have been applied, so restarting against an
// already-migrated database file is a no-op. The table set mirrors the
// four original migrations (initial schema, token holders, epochs,
// search index) this store was distilled from, translated from DuckDB
// to SQLite DDL.
var migrations = []string{
	// 1: initial schema
	`
	CREATE TABLE IF NOT EXISTS schema_meta (version INTEGER NOT NULL);

	CREATE TABLE IF NOT EXISTS blocks (
		block_id TEXT PRIMARY KEY,
		parent_id TEXT NOT NULL,
		height INTEGER NOT NULL,
		timestamp INTEGER NOT NULL,
		difficulty INTEGER NOT NULL,
		block_size INTEGER NOT NULL,
		block_coins INTEGER NOT NULL,
		tx_count INTEGER NOT NULL,
		miner_address TEXT,
		miner_reward INTEGER NOT NULL,
		main_chain INTEGER NOT NULL DEFAULT 1,
		global_index INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_blocks_height ON blocks(height);
	CREATE INDEX IF NOT EXISTS idx_blocks_main_chain_height ON blocks(height) WHERE main_chain = 1;

	CREATE TABLE IF NOT EXISTS transactions (
		tx_id TEXT PRIMARY KEY,
		block_id TEXT NOT NULL,
		inclusion_height INTEGER NOT NULL,
		timestamp INTEGER NOT NULL,
		index_in_block INTEGER NOT NULL,
		global_index INTEGER NOT NULL,
		coinbase INTEGER NOT NULL DEFAULT 0,
		size INTEGER NOT NULL,
		input_count INTEGER NOT NULL,
		output_count INTEGER NOT NULL,
		main_chain INTEGER NOT NULL DEFAULT 1
	);
	CREATE INDEX IF NOT EXISTS idx_tx_block ON transactions(block_id);
	CREATE INDEX IF NOT EXISTS idx_tx_height ON transactions(inclusion_height);

	CREATE TABLE IF NOT EXISTS boxes (
		box_id TEXT PRIMARY KEY,
		tx_id TEXT NOT NULL,
		output_index INTEGER NOT NULL,
		ergo_tree TEXT NOT NULL,
		ergo_tree_template_hash TEXT NOT NULL,
		address TEXT,
		value INTEGER NOT NULL,
		creation_height INTEGER NOT NULL,
		settlement_height INTEGER NOT NULL,
		global_index INTEGER NOT NULL,
		additional_registers TEXT,
		spent_tx_id TEXT,
		spent_index INTEGER,
		spent_height INTEGER,
		main_chain INTEGER NOT NULL DEFAULT 1
	);
	CREATE INDEX IF NOT EXISTS idx_boxes_address ON boxes(address);
	CREATE INDEX IF NOT EXISTS idx_boxes_tx ON boxes(tx_id);
	CREATE INDEX IF NOT EXISTS idx_boxes_unspent ON boxes(address) WHERE spent_tx_id IS NULL;
	CREATE INDEX IF NOT EXISTS idx_boxes_template ON boxes(ergo_tree_template_hash);

	CREATE TABLE IF NOT EXISTS box_assets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		box_id TEXT NOT NULL,
		token_id TEXT NOT NULL,
		amount INTEGER NOT NULL,
		asset_index INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_box_assets_box ON box_assets(box_id);
	CREATE INDEX IF NOT EXISTS idx_box_assets_token ON box_assets(token_id);

	CREATE TABLE IF NOT EXISTS inputs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tx_id TEXT NOT NULL,
		box_id TEXT NOT NULL,
		input_index INTEGER NOT NULL,
		proof_bytes TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_inputs_tx ON inputs(tx_id);
	CREATE INDEX IF NOT EXISTS idx_inputs_box ON inputs(box_id);

	CREATE TABLE IF NOT EXISTS data_inputs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tx_id TEXT NOT NULL,
		box_id TEXT NOT NULL,
		input_index INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_data_inputs_tx ON data_inputs(tx_id);

	CREATE TABLE IF NOT EXISTS tokens (
		token_id TEXT PRIMARY KEY,
		box_id TEXT NOT NULL,
		emission_amount INTEGER NOT NULL,
		name TEXT,
		description TEXT,
		token_type TEXT,
		decimals INTEGER,
		creation_height INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS address_stats (
		address TEXT PRIMARY KEY,
		tx_count INTEGER NOT NULL DEFAULT 0,
		balance INTEGER NOT NULL DEFAULT 0,
		first_seen_height INTEGER,
		last_seen_height INTEGER,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS network_stats (
		timestamp INTEGER NOT NULL,
		height INTEGER PRIMARY KEY,
		difficulty INTEGER NOT NULL,
		block_size INTEGER NOT NULL,
		block_coins INTEGER NOT NULL,
		total_coins INTEGER NOT NULL,
		hashrate REAL NOT NULL,
		block_time_avg REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sync_status (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		last_synced_height INTEGER NOT NULL DEFAULT 0,
		last_synced_block_id TEXT,
		last_sync_time INTEGER,
		sync_started_at INTEGER,
		is_syncing INTEGER NOT NULL DEFAULT 0,
		error_message TEXT
	);
	INSERT OR IGNORE INTO sync_status (id, last_synced_height) VALUES (1, 0);
	`,
	// 2: token holder materialization
	`
	CREATE TABLE IF NOT EXISTS token_holders (
		token_id TEXT NOT NULL,
		address TEXT NOT NULL,
		amount INTEGER NOT NULL,
		PRIMARY KEY (token_id, address)
	);
	CREATE INDEX IF NOT EXISTS idx_token_holders_token ON token_holders(token_id, amount DESC);
	`,
	// 3: epoch boundaries
	`
	CREATE TABLE IF NOT EXISTS epochs (
		epoch_index INTEGER PRIMARY KEY,
		height_start INTEGER NOT NULL,
		height_end INTEGER NOT NULL,
		timestamp_start INTEGER NOT NULL,
		timestamp_end INTEGER,
		block_count INTEGER NOT NULL
	);
	`,
	// 4: search acceleration index
	`
	CREATE TABLE IF NOT EXISTS search_index (
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		search_text TEXT NOT NULL,
		PRIMARY KEY (entity_type, entity_id)
	);
	CREATE INDEX IF NOT EXISTS idx_search_text ON search_index(search_text);
	`,
}

func (s *Store) migrate() error {
	var applied int
	row := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_meta`)
	// schema_meta may not exist yet on a brand new file; ignore that error
	// and fall through to create it as part of migration 1.
	_ = row.Scan(&applied)

	for i, stmt := range migrations {
		version := i + 1
		if version <= applied {
			continue
		}
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(stmt); err != nil {
			tx.Rollback()
			return err
		}
		if _, err := tx.Exec(`INSERT INTO schema_meta (version) VALUES (?)`, version); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}
