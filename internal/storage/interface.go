package storage

// Interface is the contract for blob-style persistence used for aggregation
// snapshots and the JSON report document.
type Interface interface {
	Store(name string, data []byte) error
	Retrieve(name string) ([]byte, error)
	List(prefix string) ([]string, error)
	Delete(name string) error
}
