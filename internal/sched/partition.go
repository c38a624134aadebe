package sched

// Backend names an execution target for a batch of reduction work.
type Backend uint8

const (
	BackendCPU Backend = iota
	BackendGPU
)

func (b Backend) String() string {
	switch b {
	case BackendCPU:
		return "cpu"
	case BackendGPU:
		return "gpu"
	default:
		return "backend?"
	}
}

// Task is one schedulable batch: an identifier, the word footprint of the
// subnet it covers, and the backend it is currently assigned to.
type Task struct {
	ID      uint64
	Size    uint64
	Backend Backend
}

// Strategy selects how a task batch is split across backends.
type Strategy uint8

const (
	// AllCPU assigns every task to the CPU.
	AllCPU Strategy = iota
	// AllGPU assigns every task to the GPU.
	AllGPU
	// SizeThreshold sends tasks at or above the threshold to the GPU,
	// smaller ones to the CPU.
	SizeThreshold
	// RoundRobin alternates tasks between the two backends.
	RoundRobin
)

func (s Strategy) String() string {
	switch s {
	case AllCPU:
		return "all-cpu"
	case AllGPU:
		return "all-gpu"
	case SizeThreshold:
		return "size-threshold"
	case RoundRobin:
		return "round-robin"
	default:
		return "strategy?"
	}
}

// Partition is a task batch split by backend.
type Partition struct {
	CPU []Task
	GPU []Task
}

// Total returns the number of tasks across both backends.
func (p Partition) Total() int { return len(p.CPU) + len(p.GPU) }

// Partitioner splits task batches per a fixed strategy. Threshold only
// matters for SizeThreshold.
type Partitioner struct {
	Strategy  Strategy
	Threshold uint64
}

// Split assigns each task to a backend. Task order within each side is
// preserved.
func (pr Partitioner) Split(tasks []Task) Partition {
	var p Partition
	switch pr.Strategy {
	case AllGPU:
		p.GPU = append(p.GPU, tasks...)
	case SizeThreshold:
		for _, t := range tasks {
			if t.Size >= pr.Threshold {
				p.GPU = append(p.GPU, t)
			} else {
				p.CPU = append(p.CPU, t)
			}
		}
	case RoundRobin:
		for i, t := range tasks {
			if i%2 == 0 {
				p.CPU = append(p.CPU, t)
			} else {
				p.GPU = append(p.GPU, t)
			}
		}
	default:
		p.CPU = append(p.CPU, tasks...)
	}
	for i := range p.CPU {
		p.CPU[i].Backend = BackendCPU
	}
	for i := range p.GPU {
		p.GPU[i].Backend = BackendGPU
	}
	return p
}
