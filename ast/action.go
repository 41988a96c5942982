package ast

// Action identifies the operation a Statement performs. The action decides
// which Statement fields are meaningful; unused fields stay at their zero
// value.
type Action int

const (
	// DML
	ActionGet Action = iota // SELECT
	ActionAdd               // INSERT
	ActionSet               // UPDATE
	ActionDel               // DELETE
	ActionExport            // COPY (SELECT ...) TO STDOUT

	// DDL
	ActionMake       // CREATE TABLE
	ActionMakeIndex  // CREATE INDEX
	ActionDrop       // DROP TABLE
	ActionDropIndex  // DROP INDEX
	ActionAlterAdd   // ALTER TABLE ... ADD COLUMN
	ActionAlterDrop  // ALTER TABLE ... DROP COLUMN
	ActionAlterType  // ALTER TABLE ... ALTER COLUMN ... TYPE
	ActionCreateView
	ActionDropView
	ActionCreateMView
	ActionRefreshMView
	ActionDropMView
	ActionTruncate
	ActionExplain
	ActionExplainAnalyze
	ActionLock

	// Transactions
	ActionTxBegin
	ActionTxCommit
	ActionTxRollback
	ActionSavepoint
	ActionReleaseSavepoint
	ActionRollbackTo

	// Vector backends (Qdrant)
	ActionVectorSearch
	ActionVectorUpsert
	ActionVectorDelete

	// Key-value backends (Redis)
	ActionKvGet
	ActionKvSet
	ActionKvDel
	ActionKvIncr
	ActionKvDecr
	ActionKvTtl
	ActionKvExpire
	ActionKvExists
	ActionKvPing
)

var actionNames = map[Action]string{
	ActionGet:              "GET",
	ActionAdd:              "ADD",
	ActionSet:              "SET",
	ActionDel:              "DEL",
	ActionExport:           "EXPORT",
	ActionMake:             "MAKE",
	ActionMakeIndex:        "INDEX",
	ActionDrop:             "DROP",
	ActionDropIndex:        "DROP_INDEX",
	ActionAlterAdd:         "ALTER_ADD",
	ActionAlterDrop:        "ALTER_DROP",
	ActionAlterType:        "ALTER_TYPE",
	ActionCreateView:       "CREATE_VIEW",
	ActionDropView:         "DROP_VIEW",
	ActionCreateMView:      "CREATE_MATERIALIZED_VIEW",
	ActionRefreshMView:     "REFRESH_MATERIALIZED_VIEW",
	ActionDropMView:        "DROP_MATERIALIZED_VIEW",
	ActionTruncate:         "TRUNCATE",
	ActionExplain:          "EXPLAIN",
	ActionExplainAnalyze:   "EXPLAIN_ANALYZE",
	ActionLock:             "LOCK",
	ActionTxBegin:          "TXN_START",
	ActionTxCommit:         "TXN_COMMIT",
	ActionTxRollback:       "TXN_ROLLBACK",
	ActionSavepoint:        "SAVEPOINT",
	ActionReleaseSavepoint: "RELEASE_SAVEPOINT",
	ActionRollbackTo:       "ROLLBACK_TO",
	ActionVectorSearch:     "VECTOR_SEARCH",
	ActionVectorUpsert:     "VECTOR_UPSERT",
	ActionVectorDelete:     "VECTOR_DELETE",
	ActionKvGet:            "KV_GET",
	ActionKvSet:            "KV_SET",
	ActionKvDel:            "KV_DEL",
	ActionKvIncr:           "KV_INCR",
	ActionKvDecr:           "KV_DECR",
	ActionKvTtl:            "KV_TTL",
	ActionKvExpire:         "KV_EXPIRE",
	ActionKvExists:         "KV_EXISTS",
	ActionKvPing:           "KV_PING",
}

func (a Action) String() string {
	if s, ok := actionNames[a]; ok {
		return s
	}
	return "UNKNOWN"
}
