package db

// SchemaSQL contains the ledger schema. audit_event rows are append-only by
// construction: nothing in this codebase issues UPDATE or DELETE against
// them outside of test wipes. audit_seq holds the per-session monotonic
// sequence counter so ordering survives coarse clocks.
const SchemaSQL = `
    -- ==========================================================================
    -- AUDIT EVENT TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS audit_event SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS session_id ON audit_event TYPE string;
    DEFINE FIELD IF NOT EXISTS sequence ON audit_event TYPE int;
    DEFINE FIELD IF NOT EXISTS timestamp ON audit_event TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS component ON audit_event TYPE string;
    DEFINE FIELD IF NOT EXISTS action ON audit_event TYPE string;
    DEFINE FIELD IF NOT EXISTS risk ON audit_event TYPE string
        ASSERT $value IN ["LOW", "MEDIUM", "HIGH", "CRITICAL"];
    DEFINE FIELD IF NOT EXISTS context ON audit_event FLEXIBLE TYPE option<object>;

    DEFINE INDEX IF NOT EXISTS audit_session ON audit_event FIELDS session_id;
    DEFINE INDEX IF NOT EXISTS audit_session_seq ON audit_event FIELDS session_id, sequence UNIQUE;

    -- ==========================================================================
    -- PER-SESSION SEQUENCE COUNTER
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS audit_seq SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS next ON audit_seq TYPE int DEFAULT 0;

    -- ==========================================================================
    -- SESSION TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS session SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS session_id ON session TYPE string;
    DEFINE FIELD IF NOT EXISTS created ON session TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS stage ON session TYPE string;
`
