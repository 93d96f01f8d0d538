package logging

// Field names shared by every component so that log output stays filterable.
const (
	FieldFile          = "file_path"
	FieldFormat        = "source_format"
	FieldTransactionID = "transaction_id"
	FieldAccountID     = "account_id"
	FieldReason        = "reason"
	FieldStatus        = "status"
	FieldCount         = "count"
	FieldURL           = "url"
	FieldTag           = "tag"
	FieldGroupID       = "group_id"
	FieldRunID         = "run_id"
	FieldOutputFile    = "output_file"
	FieldRow           = "row"
)
