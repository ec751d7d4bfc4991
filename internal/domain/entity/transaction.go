package entity

// Transaction is a single normalized transaction record as delivered by an
// ingestion collaborator (CSV upload or NATS request). The timestamp is kept
// as the raw string and parsed inside the detection engines, so an
// unparseable value degrades to "timestamp unknown" instead of failing the
// batch.
type Transaction struct {
	SenderID   string  `json:"sender_id"`
	ReceiverID string  `json:"receiver_id"`
	Amount     float64 `json:"amount"`
	Timestamp  string  `json:"timestamp"`
}

// IsValid reports whether the record can participate in graph construction.
// Nil records, self-transactions and records missing either id are dropped
// silently. A JSON batch like {"transactions":[null]} unmarshals to a nil
// pointer, so nil must count as just another malformed record.
func (t *Transaction) IsValid() bool {
	return t != nil && t.SenderID != "" && t.ReceiverID != "" && t.SenderID != t.ReceiverID
}
