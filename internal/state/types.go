package state

// State is the sync history: for each managed record name, the content this
// process last applied or confirmed. It is observational only; reconciliation
// decisions are always made against the provider's stored records.
type State struct {
	Records map[string]RecordState
}

type RecordState struct {
	Content  string `json:"content"`
	SyncedAt int64  `json:"syncedAt"`
}
