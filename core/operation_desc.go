package core

// KindOperation is the store kind of *OperationDescription
const KindOperation = "operation"

// OperationDescription describes an operation instance: its type, display
// name and configuration. It is the producer reference stored in provenance
// records, so it is itself a data item.
type OperationDescription struct {
	id        string
	Name      string
	ClassName string
	Config    map[string]any
}

// NewOperationDescription creates a description for the operation with the
// given id. An empty name defaults to className.
func NewOperationDescription(id, className, name string, config map[string]any) *OperationDescription {
	if name == "" {
		name = className
	}
	return &OperationDescription{id: id, Name: name, ClassName: className, Config: config}
}

func (d *OperationDescription) ID() string   { return d.id }
func (d *OperationDescription) Kind() string { return KindOperation }
