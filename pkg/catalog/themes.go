package catalog

// ProjectRef is a lightweight handle on a kept project. Href is the project's
// catalogue href, which is also its location under the output projects
// directory.
type ProjectRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Href  string `json:"href,omitempty"`
}

// ThemeIndex maps theme ids to the kept projects referencing them. Keys
// iterate in first-seen order and each list in insertion order. Duplicates
// are kept as appended.
type ThemeIndex struct {
	order []string
	refs  map[string][]ProjectRef
}

// NewThemeIndex returns an empty index.
func NewThemeIndex() *ThemeIndex {
	return &ThemeIndex{refs: make(map[string][]ProjectRef)}
}

// Add appends ref to the list for theme id, creating the entry if needed.
func (ix *ThemeIndex) Add(id string, ref ProjectRef) {
	if _, ok := ix.refs[id]; !ok {
		ix.order = append(ix.order, id)
	}
	ix.refs[id] = append(ix.refs[id], ref)
}

// IDs returns theme ids in first-seen order.
func (ix *ThemeIndex) IDs() []string {
	if ix == nil {
		return nil
	}
	return append([]string(nil), ix.order...)
}

// Projects returns the refs recorded for theme id.
func (ix *ThemeIndex) Projects(id string) []ProjectRef {
	if ix == nil {
		return nil
	}
	return append([]ProjectRef(nil), ix.refs[id]...)
}

// Has reports whether theme id has at least one project.
func (ix *ThemeIndex) Has(id string) bool {
	return ix != nil && len(ix.refs[id]) > 0
}

// Len returns the number of themes in the index.
func (ix *ThemeIndex) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.order)
}

// RecordProjectThemes appends ref under every theme the project document
// links to. A nil index is allocated. The (possibly new) index is returned
// together with any error from theme extraction, in which case the index is
// left untouched.
func RecordProjectThemes(index *ThemeIndex, ref ProjectRef, doc Document) (*ThemeIndex, error) {
	if index == nil {
		index = NewThemeIndex()
	}
	ids, err := ExtractThemeIDs(doc.Links())
	if err != nil {
		return index, err
	}
	for _, id := range ids {
		index.Add(id, ref)
	}
	return index, nil
}
