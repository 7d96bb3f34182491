package eventlog

// TrimHook is an optional callback invoked after entries are deleted.
// count is the number of entries removed in the range [minSeq, maxSeq].
type TrimHook interface {
	EmitTrimRange(topic string, minSeq, maxSeq uint64, count int)
}

type noopTrimHook struct{}

func (noopTrimHook) EmitTrimRange(string, uint64, uint64, int) {}
