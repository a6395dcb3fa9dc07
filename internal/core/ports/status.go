package ports

// StatusProvider exposes the live state of a worker pool
type StatusProvider interface {
	WorkerID() string
	ActiveWorkers() int
	TaskTypes() []string
}
