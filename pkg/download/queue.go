package download

// QueueItem is what a RangeFetcher hands to the OrderedWriter: either a
// ChunkResult or a *FetchError. Every fetcher sends exactly one.
type QueueItem interface {
	queueItem()
}

// ChunkResult carries the bytes of one part and the file offset they belong
// at (not counting the envelope).
type ChunkResult struct {
	Offset int64
	Data   []byte
}

func (ChunkResult) queueItem() {}
func (*FetchError) queueItem() {}
