package ir

// Program is a whole DAG-IR compilation unit: one arena shared by every
// function, plus the root Function nodes. The first function is the entry
// point, matching the reference implementation's "last function becomes
// entry" convention inverted to "first" for readability — callers needing
// a specific entry point should look it up by name via Func.
type Program struct {
	Arena     *Arena
	Functions []NodeID
}

// Func returns the root node of the named function, or InvalidNode if
// there isn't one.
func (p *Program) Func(name string) NodeID {
	for _, id := range p.Functions {
		if p.Arena.Get(id).FuncName == name {
			return id
		}
	}
	return InvalidNode
}
