package config

type WorkerKeyStruct struct {
	PersistAnswersQueue string
	AuditNotesQueue     string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAnswersQueue: "persist_answers_queue",
	AuditNotesQueue:     "audit_notes_queue",
}
