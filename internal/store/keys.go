package store

// Key layout. Runs are top-level; everything a run produced lives under its
// id so a whole run can be listed or dropped with one prefix scan.
//
//	run:<runID>                        -> domain.Run
//	run:<runID>:record:<recordID>      -> domain.FileRecord
//	run:<runID>:group:<groupID>        -> domain.DuplicateGroup
//	run:<runID>:evidence:<evidenceID>  -> domain.Evidence
const runPrefix = "run:"

func runKey(runID string) []byte {
	return []byte(runPrefix + runID)
}

func recordPrefix(runID string) string {
	return runPrefix + runID + ":record:"
}

func recordKey(runID, recordID string) []byte {
	return []byte(recordPrefix(runID) + recordID)
}

func groupPrefix(runID string) string {
	return runPrefix + runID + ":group:"
}

func groupKey(runID, groupID string) []byte {
	return []byte(groupPrefix(runID) + groupID)
}

func evidencePrefix(runID string) string {
	return runPrefix + runID + ":evidence:"
}

func evidenceKey(runID, evidenceID string) []byte {
	return []byte(evidencePrefix(runID) + evidenceID)
}
