package storage

const schema = `
-- The 'sources' table tracks where decks come from, either a local
-- directory or a git repository of markdown deck files.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local', -- 'local' or 'git'
    last_scanned DATETIME
);

-- One deck per markdown file in a source. The welcome deck has no
-- source.
CREATE TABLE IF NOT EXISTS decks (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    source_id INTEGER,

    FOREIGN KEY(source_id) REFERENCES sources(id)
);

-- Immutable card content. The id is a content hash, unique within the
-- deck.
CREATE TABLE IF NOT EXISTS cards (
    deck_id TEXT NOT NULL,
    id TEXT NOT NULL,
    front TEXT NOT NULL,
    back TEXT NOT NULL,
    hint TEXT NOT NULL DEFAULT '',
    position INTEGER NOT NULL DEFAULT 0,

    PRIMARY KEY(deck_id, id),
    FOREIGN KEY(deck_id) REFERENCES decks(id)
);

-- Per-(user, deck, card) learning record. next_review is stored as an
-- ISO-8601 string and round-trips through the due check unparsed.
CREATE TABLE IF NOT EXISTS card_progress (
    user_id TEXT NOT NULL,
    deck_id TEXT NOT NULL,
    card_id TEXT NOT NULL,
    learning_state TEXT NOT NULL DEFAULT 'new',
    interval REAL NOT NULL DEFAULT 0,
    ease_factor REAL NOT NULL DEFAULT 2.5,
    next_review TEXT NOT NULL DEFAULT '',
    review_count INTEGER NOT NULL DEFAULT 0,
    last_reviewed DATETIME,

    PRIMARY KEY(user_id, deck_id, card_id)
);

-- Resumable checkpoint of an in-progress study session, one per
-- (user, deck), stored as JSON so the card order survives exactly.
CREATE TABLE IF NOT EXISTS session_state (
    user_id TEXT NOT NULL,
    deck_id TEXT NOT NULL,
    payload TEXT NOT NULL,
    updated_at DATETIME NOT NULL,

    PRIMARY KEY(user_id, deck_id)
);

-- Append-only log of completed (or abandoned) study sessions.
CREATE TABLE IF NOT EXISTS study_log (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    deck_id TEXT NOT NULL,
    duration_ms INTEGER NOT NULL,
    cards_studied INTEGER NOT NULL,
    created_at DATETIME NOT NULL
);
`
