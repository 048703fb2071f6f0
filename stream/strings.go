package stream

// StringTable interns strings shared by everything persisted into one blob.
type StringTable struct {
	index   map[string]uint32
	strings []string
}

func NewStringTable() *StringTable {
	return &StringTable{index: make(map[string]uint32)}
}

func (st *StringTable) Intern(s string) uint32 {
	if id, ok := st.index[s]; ok {
		return id
	}
	id := uint32(len(st.strings))
	st.index[s] = id
	st.strings = append(st.strings, s)
	return id
}

func (st *StringTable) Strings() []string {
	return st.strings
}

func (st *StringTable) Len() int {
	return len(st.strings)
}
