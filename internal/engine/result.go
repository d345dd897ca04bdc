package engine

// Result describes one processed source.
type Result struct {
	ID     string            `json:"id"`
	Output string            `json:"output"`
	Bytes  int64             `json:"bytes"`
	Meta   map[string]string `json:"meta,omitempty"`
}
